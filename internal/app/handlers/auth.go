package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/uteshop/ute-shop/internal/service"
)

// RegisterRequest — структура запроса регистрации с тегами валидации
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse — ответ с JWT-токеном
type LoginResponse struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RegisterHandler обрабатывает POST /api/auth/register
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("invalid request: decoding error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Warn("invalid request: validation error", slog.Any("error", err))
			respondValidationError(w, logger, err)
			return
		}

		if err := authService.Register(r.Context(), req.Email, req.Password, req.FullName); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusCreated, "registration successful, check your email for the verification code", nil)
	}
}

// VerifyEmailHandler обрабатывает POST /api/auth/verify
func VerifyEmailHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.VerifyEmailHandler"
		logger := log.With(slog.String("op", op))

		var req VerifyEmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := authService.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "email verified, you can log in now", nil)
	}
}

// LoginHandler обрабатывает POST /api/auth/login
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "login successful", LoginResponse{Token: token})
	}
}

// ForgotPasswordHandler обрабатывает POST /api/auth/forgot-password.
// Ответ одинаковый для существующих и несуществующих адресов.
func ForgotPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ForgotPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "if the email is registered, a reset code has been sent", nil)
	}
}

// ResetPasswordHandler обрабатывает POST /api/auth/reset-password
func ResetPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResetPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, logger, err)
			return
		}

		if err := authService.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "password has been reset", nil)
	}
}
