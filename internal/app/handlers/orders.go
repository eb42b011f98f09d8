package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
)

// OrderItemRequest — позиция заказа в теле запроса
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// PlaceOrderRequest — тело POST /api/orders.
// Либо items, либо from_cart=true; адрес доставки обязателен.
type PlaceOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"omitempty,dive"`
	FromCart        bool               `json:"from_cart"`
	ShippingAddress string             `json:"shipping_address" validate:"required,min=10,max=500"`
	Note            string             `json:"note" validate:"max=500"`
	PaymentMethod   string             `json:"payment_method" validate:"required,oneof=cod bank_transfer momo zalopay"`
	CouponCode      string             `json:"coupon_code" validate:"omitempty,max=50"`
}

// PlaceOrderHandler обрабатывает POST /api/orders
func PlaceOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PlaceOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid request: decoding error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		in := service.PlaceOrderInput{
			FromCart:        req.FromCart,
			ShippingAddress: req.ShippingAddress,
			Note:            req.Note,
			PaymentMethod:   req.PaymentMethod,
			CouponCode:      req.CouponCode,
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, service.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err := orderService.PlaceOrder(r.Context(), userID, in)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "order placed", order)
	}
}

// ListMyOrdersHandler обрабатывает GET /api/orders
func ListMyOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMyOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := orderService.ListMyOrders(r.Context(), userID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "orders retrieved", orders)
	}
}

// GetOrderHandler обрабатывает GET /api/orders/{id}
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orderID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		role, _ := jwtmiddleware.RoleFromContext(r.Context())
		order, err := orderService.GetOrder(r.Context(), userID, role == models.RoleAdmin, orderID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "order retrieved", order)
	}
}

// CancelOrderHandler обрабатывает POST /api/orders/{id}/cancel —
// прямая отмена в пределах окна после оформления.
func CancelOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		orderID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		if err := orderService.CancelOwn(r.Context(), userID, orderID); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "order cancelled", nil)
	}
}
