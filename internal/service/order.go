package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

var (
	ErrEmptyOrder          = errors.New("order must contain at least one item")
	ErrInvalidQuantity     = errors.New("item quantity must be at least 1")
	ErrNotOrderOwner       = errors.New("order belongs to another user")
	ErrCancelWindowClosed  = errors.New("direct cancellation window has closed")
	ErrInvalidTransition   = errors.New("status transition is not allowed")
	ErrCouponNotApplicable = errors.New("coupon is not applicable to this order")
)

// OrderItemInput — строка заказа из запроса.
type OrderItemInput struct {
	ProductID int64
	Quantity  int
}

// PlaceOrderInput — параметры оформления заказа.
// Либо явный список позиций, либо FromCart — тогда позиции берутся из корзины.
type PlaceOrderInput struct {
	Items           []OrderItemInput
	FromCart        bool
	ShippingAddress string
	Note            string
	PaymentMethod   string
	CouponCode      string
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*models.Order, error)
	ListMyOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	ListAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]*models.Order, int, error)
	UpdateStatus(ctx context.Context, orderID int64, to models.OrderStatus) error
	CancelOwn(ctx context.Context, userID, orderID int64) error
}

type orderService struct {
	log          *slog.Logger
	db           *sql.DB
	orderRepo    storage.OrderStorage
	productRepo  storage.ProductStorage
	cartRepo     storage.CartStorage
	couponRepo   storage.CouponStorage
	paymentRepo  storage.PaymentStorage
	cancelWindow time.Duration
}

func NewOrderService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage,
	cartRepo storage.CartStorage, couponRepo storage.CouponStorage, paymentRepo storage.PaymentStorage,
	cancelWindow time.Duration) OrderService {
	return &orderService{
		log:          log,
		db:           db,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		cartRepo:     cartRepo,
		couponRepo:   couponRepo,
		paymentRepo:  paymentRepo,
		cancelWindow: cancelWindow,
	}
}

// PlaceOrder оформляет заказ в одной транзакции: вставка заказа, позиций,
// списание остатков, запись о платеже, инкремент промокода, очистка корзины.
// Любая ошибка откатывает всё — частично оформленных заказов не бывает.
func (s *orderService) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (*models.Order, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting order transaction")

	items := in.Items
	if in.FromCart {
		cartItems, err := s.cartRepo.GetItemsByUserID(ctx, userID)
		if err != nil {
			logger.Error("failed to load cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to load cart: %w", op, err)
		}
		items = items[:0]
		for _, ci := range cartItems {
			items = append(items, OrderItemInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyOrder)
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Читаем товары с блокировкой строк и считаем сумму по текущим ценам
	var total int64
	products := make(map[int64]*models.Product, len(items))
	for _, it := range items {
		product, err := s.productRepo.LockProductByIDTx(ctx, tx, it.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to get product", slog.Int64("productID", it.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}
		if product.StockQuantity < it.Quantity {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("insufficient stock",
				slog.Int64("productID", it.ProductID),
				slog.Int("stock", product.StockQuantity),
				slog.Int("requested", it.Quantity))
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInsufficientStock)
		}
		products[it.ProductID] = product
		total += product.Price * int64(it.Quantity)
	}

	// Промокод: валидация и инкремент счетчика в той же транзакции
	if in.CouponCode != "" {
		coupon, err := s.couponRepo.GetCouponByCodeTx(ctx, tx, in.CouponCode)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("coupon lookup failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !coupon.Active || time.Now().After(coupon.ExpiresAt) || total < coupon.MinOrderAmount {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			return nil, fmt.Errorf("%s: %w", op, ErrCouponNotApplicable)
		}
		if err := s.couponRepo.IncrementUsageTx(ctx, tx, coupon.ID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("coupon usage increment failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		total -= total * int64(coupon.DiscountPercent) / 100
	}

	order := &models.Order{
		UserID:          userID,
		TotalAmount:     total,
		Status:          models.StatusNew,
		ShippingAddress: in.ShippingAddress,
		Note:            in.Note,
		PaymentMethod:   in.PaymentMethod,
	}
	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	for _, it := range items {
		product := products[it.ProductID]
		item := &models.OrderItem{
			OrderID:      orderID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Price:        product.Price,
			Quantity:     it.Quantity,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		// guard в WHERE — последняя линия защиты от ухода остатка в минус
		if err := s.productRepo.DecrementStockTx(ctx, tx, product.ID, it.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("failed to decrement stock", slog.Int64("productID", product.ID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}
	}

	payment := &models.Payment{
		OrderID:   orderID,
		Method:    in.PaymentMethod,
		Amount:    total,
		Status:    models.PaymentPending,
		Reference: uuid.NewString(),
	}
	if _, err := s.paymentRepo.CreatePaymentTx(ctx, tx, payment); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create payment: %w", op, err)
	}

	if in.FromCart {
		if err := s.cartRepo.ClearTx(ctx, tx, userID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to clear cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order placed", slog.Int64("orderID", orderID), slog.Int64("total", total))

	// Возвращаем заказ, перечитанный после коммита
	return s.hydrateOrder(ctx, orderID)
}

func (s *orderService) hydrateOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	order.Items = items
	return order, nil
}

// GetOrder возвращает заказ с позициями; чужой заказ доступен только админу.
func (s *orderService) GetOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.hydrateOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.UserID != userID && !isAdmin {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOrderOwner)
	}
	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListMyOrders"
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

func (s *orderService) ListAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]*models.Order, int, error) {
	const op = "service.OrderService.ListAllOrders"
	orders, total, err := s.orderRepo.ListOrders(ctx, status, page, limit)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return orders, total, nil
}

// UpdateStatus переводит заказ в новый статус (админ).
// Переход проверяется по таблице допустимых, затем CAS-обновлением в БД.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, to models.OrderStatus) error {
	const op = "service.OrderService.UpdateStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.String("to", string(to)))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !models.CanTransition(order.Status, to) {
		logger.Warn("transition not allowed", slog.String("from", string(order.Status)))
		return fmt.Errorf("%s: %s -> %s: %w", op, order.Status, to, ErrInvalidTransition)
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, to); err != nil {
		logger.Error("failed to update status", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order status updated")
	return nil
}

// CancelOwn — прямая отмена заказа пользователем: только статус new
// и только в пределах окна после оформления. Остатки возвращаются.
func (s *orderService) CancelOwn(ctx context.Context, userID, orderID int64) error {
	const op = "service.OrderService.CancelOwn"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if order.UserID != userID {
		return fmt.Errorf("%s: %w", op, ErrNotOrderOwner)
	}
	if order.Status != models.StatusNew {
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}
	if time.Since(order.CreatedAt) > s.cancelWindow {
		logger.Warn("cancel window closed", slog.Time("createdAt", order.CreatedAt))
		return fmt.Errorf("%s: %w", op, ErrCancelWindowClosed)
	}

	items, err := s.orderRepo.GetOrderItems(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order items", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, models.StatusNew, models.StatusCancelled); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("failed to cancel order", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, item := range items {
		if err := s.productRepo.RestoreStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to restore stock", slog.Any("error", err))
			return fmt.Errorf("%s: failed to restore stock: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order cancelled by owner")
	return nil
}
