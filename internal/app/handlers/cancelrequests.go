package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/security/jwtmiddleware"
	"github.com/uteshop/ute-shop/internal/service"
)

type SubmitCancelRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// SubmitCancelRequestHandler обрабатывает POST /api/orders/{id}/cancel-request
func SubmitCancelRequestHandler(log *slog.Logger, cancelService service.CancelRequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SubmitCancelRequestHandler"
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

		var req SubmitCancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		request, err := cancelService.Submit(r.Context(), userID, orderID, req.Reason)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "cancel request submitted", request)
	}
}

// WithdrawCancelRequestHandler обрабатывает DELETE /api/cancel-requests/{id}
func WithdrawCancelRequestHandler(log *slog.Logger, cancelService service.CancelRequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WithdrawCancelRequestHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		requestID, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request id")
			return
		}

		if err := cancelService.Withdraw(r.Context(), userID, requestID); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "cancel request withdrawn", nil)
	}
}
