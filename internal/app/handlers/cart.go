package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
)

type CartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// GetCartHandler обрабатывает GET /api/cart
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		cart, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "cart retrieved", cart)
	}
}

// AddCartItemHandler обрабатывает POST /api/cart/items
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "item added to cart", nil)
	}
}

// UpdateCartItemHandler обрабатывает PUT /api/cart/items/{productID}
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := parseID(r, "productID")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req struct {
			Quantity int `json:"quantity" validate:"required,gte=1"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := cartService.UpdateItem(r.Context(), userID, productID, req.Quantity); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "cart item updated", nil)
	}
}

// RemoveCartItemHandler обрабатывает DELETE /api/cart/items/{productID}
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := parseID(r, "productID")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := cartService.RemoveItem(r.Context(), userID, productID); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "item removed from cart", nil)
	}
}
