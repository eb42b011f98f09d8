package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/lib/mailer"
	"github.com/uteshop/ute-shop/internal/security"
	"github.com/uteshop/ute-shop/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email is not verified")
)

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	otpStore storage.OTPStore
	mailer   mailer.Mailer
	tokenTTL time.Duration
	otpTTL   time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, otpStore storage.OTPStore, m mailer.Mailer, tokenTTL, otpTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		otpStore: otpStore,
		mailer:   m,
		tokenTTL: tokenTTL,
		otpTTL:   otpTTL,
	}
}

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, fullName string) error
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// Register создает неподтвержденного пользователя и отправляет OTP-код на почту.
// Пароль хэшируется через bcrypt (автоматически добавляет соль).
func (a *AuthService) Register(ctx context.Context, email, password, fullName string) error {
	const op = "auth.Register"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	newUser := &models.User{
		Email:    email,
		FullName: fullName,
		PassHash: passHash,
		Role:     models.RoleCustomer,
		Verified: false,
	}
	if _, err := a.userRepo.CreateUser(ctx, newUser); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			logger.Warn("email already registered")
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	code, err := a.otpStore.IssueCode(ctx, storage.OTPPurposeVerify, email, a.otpTTL)
	if err != nil {
		logger.Error("failed to issue otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to issue otp: %w", op, err)
	}
	if err := a.mailer.SendOTP(email, code, storage.OTPPurposeVerify); err != nil {
		logger.Error("failed to send otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to send otp: %w", op, err)
	}

	logger.Info("user registered, otp sent")
	return nil
}

// VerifyEmail проверяет OTP-код и помечает пользователя подтвержденным.
func (a *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	const op = "auth.VerifyEmail"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if err := a.otpStore.ConsumeCode(ctx, storage.OTPPurposeVerify, email, code); err != nil {
		logger.Warn("otp check failed", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if err := a.userRepo.MarkVerified(ctx, user.ID); err != nil {
		logger.Error("failed to mark verified", slog.Any("error", err))
		return fmt.Errorf("%s: failed to mark verified: %w", op, err)
	}

	logger.Info("email verified")
	return nil
}

// Login осуществляет аутентификацию пользователя.
// Пускаем только подтвержденных пользователей; после успешной проверки
// пароля генерируется JWT-токен (секрет берется из переменной окружения).
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.Verified {
		logger.Warn("email not verified")
		return "", fmt.Errorf("%s: %w", op, ErrEmailNotVerified)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// RequestPasswordReset отправляет OTP-код для сброса пароля.
// Для несуществующего email молча возвращает успех, чтобы не раскрывать базу адресов.
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if _, err := a.userRepo.GetUserByEmail(ctx, email); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Info("reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	code, err := a.otpStore.IssueCode(ctx, storage.OTPPurposeReset, email, a.otpTTL)
	if err != nil {
		logger.Error("failed to issue otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to issue otp: %w", op, err)
	}
	if err := a.mailer.SendOTP(email, code, storage.OTPPurposeReset); err != nil {
		logger.Error("failed to send otp", slog.Any("error", err))
		return fmt.Errorf("%s: failed to send otp: %w", op, err)
	}

	logger.Info("password reset otp sent")
	return nil
}

// ResetPassword проверяет OTP-код и устанавливает новый пароль.
func (a *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "auth.ResetPassword"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	if err := a.otpStore.ConsumeCode(ctx, storage.OTPPurposeReset, email, code); err != nil {
		logger.Warn("otp check failed", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Error("failed to get user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.userRepo.UpdatePassword(ctx, user.ID, passHash); err != nil {
		logger.Error("failed to update password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update password: %w", op, err)
	}

	logger.Info("password reset completed")
	return nil
}
