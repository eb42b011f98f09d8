package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/uteshop/ute-shop/internal/lib/api"
	"github.com/uteshop/ute-shop/internal/service"
	"github.com/uteshop/ute-shop/internal/storage"
)

var validate = validator.New()

// Envelope — единый формат ответа API.
type Envelope = api.Envelope

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, env Envelope) {
	if err := api.WriteJSON(w, status, env); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondOK(w http.ResponseWriter, log *slog.Logger, status int, message string, data interface{}) {
	writeJSON(w, log, status, Envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, log *slog.Logger, status int, message string, errs ...string) {
	writeJSON(w, log, status, Envelope{Success: false, Message: message, Errors: errs})
}

// respondValidationError разворачивает ошибки validator в список по полям.
func respondValidationError(w http.ResponseWriter, log *slog.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Field()+": failed on '"+fe.Tag()+"' rule")
		}
		respondError(w, log, http.StatusBadRequest, "validation error", msgs...)
		return
	}
	respondError(w, log, http.StatusBadRequest, "validation error")
}

// respondServiceError сопоставляет доменные ошибки с HTTP-статусами.
// Неизвестная ошибка превращается в 500 без деталей наружу.
func respondServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrCartItemNotFound),
		errors.Is(err, storage.ErrCancelRequestNotFound),
		errors.Is(err, storage.ErrCouponNotFound),
		errors.Is(err, storage.ErrPaymentNotFound):
		respondError(w, log, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrEmailTaken):
		respondError(w, log, http.StatusConflict, "email is already registered")
	case errors.Is(err, storage.ErrReviewExists):
		respondError(w, log, http.StatusConflict, "you have already reviewed this product")
	case errors.Is(err, storage.ErrActiveCancelExists):
		respondError(w, log, http.StatusConflict, "an active cancel request already exists for this order")
	case errors.Is(err, storage.ErrInsufficientStock):
		respondError(w, log, http.StatusConflict, "insufficient stock")
	case errors.Is(err, storage.ErrOrderStatusChanged),
		errors.Is(err, storage.ErrCouponExhausted):
		respondError(w, log, http.StatusConflict, "conflicting update, please retry")
	case errors.Is(err, storage.ErrOTPInvalid):
		respondError(w, log, http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, log, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		respondError(w, log, http.StatusForbidden, "email is not verified")
	case errors.Is(err, service.ErrNotOrderOwner),
		errors.Is(err, service.ErrNotRequestOwner):
		respondError(w, log, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrCouponNotApplicable),
		errors.Is(err, service.ErrNotPurchased):
		respondError(w, log, http.StatusBadRequest, userMessage(err))
	case errors.Is(err, service.ErrCancelWindowClosed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderNotCancelable),
		errors.Is(err, service.ErrRequestNotPending):
		respondError(w, log, http.StatusUnprocessableEntity, userMessage(err))
	default:
		log.Error("unhandled service error", slog.Any("error", err))
		respondError(w, log, http.StatusInternalServerError, "internal server error")
	}
}

// userMessage возвращает текст sentinel-ошибки без цепочки оберток.
func userMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrEmptyOrder,
		service.ErrInvalidQuantity,
		service.ErrCouponNotApplicable,
		service.ErrNotPurchased,
		service.ErrCancelWindowClosed,
		service.ErrInvalidTransition,
		service.ErrOrderNotCancelable,
		service.ErrRequestNotPending,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "request cannot be processed"
}
