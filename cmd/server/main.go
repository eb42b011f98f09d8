package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/uteshop/ute-shop/internal/app"
	"github.com/uteshop/ute-shop/internal/app/handlers"
	appmw "github.com/uteshop/ute-shop/internal/app/middleware"
	"github.com/uteshop/ute-shop/internal/config"
	"github.com/uteshop/ute-shop/internal/lib/logger"
	"github.com/uteshop/ute-shop/internal/lib/logger/handlers/urllog"
	"github.com/uteshop/ute-shop/internal/lib/mailer"
	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
	"github.com/uteshop/ute-shop/internal/storage"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения: конфиг, подключения к MySQL и Redis
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()
	defer application.Redis.Close()

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		log.Error("failed to create uploads dir", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to create uploads dir"))
	}

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(appmw.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	reviewRepo := storage.NewReviewRepository(application.DB)
	cancelRepo := storage.NewCancelRequestRepository(application.DB)
	couponRepo := storage.NewCouponRepository(application.DB)
	paymentRepo := storage.NewPaymentRepository(application.DB)
	otpStore := storage.NewOTPStore(application.Redis)

	// локально коды пишутся в лог, в остальных окружениях уходят по SMTP
	var m mailer.Mailer
	if cfg.Env == logger.EnvLocal {
		m = mailer.NewLogMailer(log)
	} else {
		m = mailer.NewSMTPMailer(cfg.SMTP, cfg.Orders.OTPTTL)
	}

	authService := service.NewAuthService(application.Logger, userRepo, otpStore, m,
		time.Duration(cfg.JWT.TokenTTL)*time.Minute, cfg.Orders.OTPTTL)
	productService := service.NewProductService(application.Logger, productRepo)
	cartService := service.NewCartService(application.Logger, cartRepo, productRepo)
	orderService := service.NewOrderService(application.Logger, application.DB,
		orderRepo, productRepo, cartRepo, couponRepo, paymentRepo, cfg.Orders.CancelWindow)
	cancelService := service.NewCancelRequestService(application.Logger, application.DB,
		orderRepo, productRepo, cancelRepo)
	reviewService := service.NewReviewService(application.Logger, reviewRepo)
	paymentService := service.NewPaymentService(application.Logger, paymentRepo)

	// публичные эндпоинты: аутентификация, каталог, отзывы
	router.Post("/api/auth/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/api/auth/verify", handlers.VerifyEmailHandler(application.Logger, authService))
	router.Post("/api/auth/login", handlers.LoginHandler(application.Logger, authService))
	router.Post("/api/auth/forgot-password", handlers.ForgotPasswordHandler(application.Logger, authService))
	router.Post("/api/auth/reset-password", handlers.ResetPasswordHandler(application.Logger, authService))

	router.Get("/api/products", handlers.ListProductsHandler(application.Logger, productService))
	router.Get("/api/products/{id}", handlers.GetProductHandler(application.Logger, productService))
	router.Get("/api/products/{id}/reviews", handlers.ListReviewsHandler(application.Logger, reviewService))

	// раздача загруженных картинок товаров
	fileServer := http.FileServer(http.Dir(cfg.Uploads.Dir))
	router.Handle("/images/*", http.StripPrefix("/images/", fileServer))

	// эндпоинты под JWT
	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)

		r.Get("/api/cart", handlers.GetCartHandler(application.Logger, cartService))
		r.Post("/api/cart/items", handlers.AddCartItemHandler(application.Logger, cartService))
		r.Put("/api/cart/items/{productID}", handlers.UpdateCartItemHandler(application.Logger, cartService))
		r.Delete("/api/cart/items/{productID}", handlers.RemoveCartItemHandler(application.Logger, cartService))

		r.Post("/api/orders", handlers.PlaceOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListMyOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(application.Logger, orderService))
		r.Post("/api/orders/{id}/cancel", handlers.CancelOrderHandler(application.Logger, orderService))
		r.Post("/api/orders/{id}/cancel-request", handlers.SubmitCancelRequestHandler(application.Logger, cancelService))
		r.Delete("/api/cancel-requests/{id}", handlers.WithdrawCancelRequestHandler(application.Logger, cancelService))

		r.Post("/api/products/{id}/reviews", handlers.AddReviewHandler(application.Logger, reviewService))
		r.Get("/api/payments", handlers.ListMyPaymentsHandler(application.Logger, paymentService))

		// административные эндпоинты
		r.Group(func(admin chi.Router) {
			admin.Use(jwtmiddleware.RequireAdmin)

			admin.Get("/api/admin/orders", handlers.ListAllOrdersHandler(application.Logger, orderService))
			admin.Put("/api/admin/orders/{id}/status", handlers.UpdateOrderStatusHandler(application.Logger, orderService))
			admin.Get("/api/admin/cancel-requests", handlers.ListCancelRequestsHandler(application.Logger, cancelService))
			admin.Put("/api/admin/cancel-requests/{id}", handlers.ProcessCancelRequestHandler(application.Logger, cancelService))
			admin.Post("/api/admin/products", handlers.CreateProductHandler(application.Logger, productService))
			admin.Put("/api/admin/products/{id}", handlers.UpdateProductHandler(application.Logger, productService))
			admin.Delete("/api/admin/products/{id}", handlers.DeleteProductHandler(application.Logger, productService))
			admin.Put("/api/admin/payments/{id}/paid", handlers.MarkPaymentPaidHandler(application.Logger, paymentService))
			admin.Post("/api/admin/uploads", handlers.UploadImageHandler(application.Logger, cfg.Uploads.Dir, cfg.Uploads.MaxSizeMB))
		})
	})

	// фоновое автоподтверждение заказов
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	worker := service.NewAutoConfirmWorker(application.Logger, orderRepo,
		cfg.Orders.AutoConfirmAfter, cfg.Orders.AutoConfirmInterval)
	go worker.Run(workerCtx)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
