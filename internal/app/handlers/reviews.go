package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
)

type AddReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// AddReviewHandler обрабатывает POST /api/products/{id}/reviews
func AddReviewHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddReviewHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		productID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req AddReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		review, err := reviewService.AddReview(r.Context(), userID, productID, req.Rating, req.Comment)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "review added", review)
	}
}

// ListReviewsHandler обрабатывает GET /api/products/{id}/reviews
func ListReviewsHandler(log *slog.Logger, reviewService service.ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListReviewsHandler"
		logger := log.With(slog.String("op", op))

		productID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		reviews, err := reviewService.ListByProduct(r.Context(), productID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "reviews retrieved", reviews)
	}
}
