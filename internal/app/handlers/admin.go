package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/service"
)

// OrderListResponse — страница заказов для админки.
type OrderListResponse struct {
	Orders interface{} `json:"orders"`
	Total  int         `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ProcessCancelRequest struct {
	Approve       bool   `json:"approve"`
	AdminResponse string `json:"admin_response" validate:"max=500"`
}

type ProductRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=200"`
	Description   string `json:"description" validate:"max=2000"`
	Image         string `json:"image" validate:"max=500"`
	Price         int64  `json:"price" validate:"required,gt=0"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
}

// ListAllOrdersHandler обрабатывает GET /api/admin/orders?status=&page=&limit=
func ListAllOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListAllOrdersHandler"
		logger := log.With(slog.String("op", op))

		status := r.URL.Query().Get("status")
		if status != "" && !models.IsValidStatus(status) {
			respondError(w, logger, http.StatusBadRequest, "unknown order status")
			return
		}
		page, limit := pagination(r)

		orders, total, err := orderService.ListAllOrders(r.Context(), models.OrderStatus(status), page, limit)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "orders retrieved", OrderListResponse{
			Orders: orders,
			Total:  total,
			Page:   page,
			Limit:  limit,
		})
	}
}

// UpdateOrderStatusHandler обрабатывает PUT /api/admin/orders/{id}/status
func UpdateOrderStatusHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateOrderStatusHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid order id")
			return
		}

		var req UpdateOrderStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}
		if !models.IsValidStatus(req.Status) {
			respondError(w, logger, http.StatusBadRequest, "unknown order status")
			return
		}

		if err := orderService.UpdateStatus(r.Context(), orderID, models.OrderStatus(req.Status)); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "order status updated", nil)
	}
}

// ListCancelRequestsHandler обрабатывает GET /api/admin/cancel-requests
func ListCancelRequestsHandler(log *slog.Logger, cancelService service.CancelRequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCancelRequestsHandler"
		logger := log.With(slog.String("op", op))

		requests, err := cancelService.ListPending(r.Context())
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "cancel requests retrieved", requests)
	}
}

// ProcessCancelRequestHandler обрабатывает PUT /api/admin/cancel-requests/{id}
func ProcessCancelRequestHandler(log *slog.Logger, cancelService service.CancelRequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProcessCancelRequestHandler"
		logger := log.With(slog.String("op", op))

		requestID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request id")
			return
		}

		var req ProcessCancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := cancelService.Process(r.Context(), requestID, req.Approve, req.AdminResponse); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "cancel request processed", nil)
	}
}

// CreateProductHandler обрабатывает POST /api/admin/products
func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		var req ProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		product, err := productService.Create(r.Context(), &models.Product{
			Name:          req.Name,
			Description:   req.Description,
			Image:         req.Image,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
		})
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "product created", product)
	}
}

// UpdateProductHandler обрабатывает PUT /api/admin/products/{id}
func UpdateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req ProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := productService.Update(r.Context(), &models.Product{
			ID:            id,
			Name:          req.Name,
			Description:   req.Description,
			Image:         req.Image,
			Price:         req.Price,
			StockQuantity: req.StockQuantity,
		}); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "product updated", nil)
	}
}

// DeleteProductHandler обрабатывает DELETE /api/admin/products/{id}
func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := productService.Delete(r.Context(), id); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "product deleted", nil)
	}
}

// MarkPaymentPaidHandler обрабатывает PUT /api/admin/payments/{id}/paid
func MarkPaymentPaidHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MarkPaymentPaidHandler"
		logger := log.With(slog.String("op", op))

		id, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid payment id")
			return
		}

		if err := paymentService.MarkPaid(r.Context(), id); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "payment marked as paid", nil)
	}
}
