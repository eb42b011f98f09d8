package handlers

import (
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
)

// ListMyPaymentsHandler обрабатывает GET /api/payments
func ListMyPaymentsHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListMyPaymentsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		payments, err := paymentService.ListMy(r.Context(), userID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "payments retrieved", payments)
	}
}
