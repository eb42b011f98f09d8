package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrOTPInvalid = errors.New("invalid or expired code")

// Назначения OTP-кодов: подтверждение почты и сброс пароля
const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

// OTPStore хранит одноразовые коды в Redis с TTL.
type OTPStore interface {
	// IssueCode генерирует шестизначный код и сохраняет его с TTL.
	// Повторный вызов перезаписывает предыдущий код.
	IssueCode(ctx context.Context, purpose, email string, ttl time.Duration) (string, error)
	// ConsumeCode проверяет код и удаляет его — код одноразовый.
	ConsumeCode(ctx context.Context, purpose, email, code string) error
}

type otpStore struct {
	rdb *redis.Client
}

func NewOTPStore(rdb *redis.Client) OTPStore {
	return &otpStore{rdb: rdb}
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func (s *otpStore) IssueCode(ctx context.Context, purpose, email string, ttl time.Duration) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := s.rdb.Set(ctx, otpKey(purpose, email), code, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}
	return code, nil
}

func (s *otpStore) ConsumeCode(ctx context.Context, purpose, email, code string) error {
	stored, err := s.rdb.GetDel(ctx, otpKey(purpose, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrOTPInvalid
		}
		return fmt.Errorf("failed to read code: %w", err)
	}
	if stored != code {
		return ErrOTPInvalid
	}
	return nil
}
