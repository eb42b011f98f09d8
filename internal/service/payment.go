package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

type PaymentService interface {
	ListMy(ctx context.Context, userID int64) ([]*models.Payment, error)
	// MarkPaid помечает платеж оплаченным (админ, после сверки перевода).
	MarkPaid(ctx context.Context, paymentID int64) error
}

type paymentService struct {
	log         *slog.Logger
	paymentRepo storage.PaymentStorage
}

func NewPaymentService(log *slog.Logger, paymentRepo storage.PaymentStorage) PaymentService {
	return &paymentService{log: log, paymentRepo: paymentRepo}
}

func (s *paymentService) ListMy(ctx context.Context, userID int64) ([]*models.Payment, error) {
	const op = "service.PaymentService.ListMy"
	payments, err := s.paymentRepo.GetPaymentsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get payments", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

func (s *paymentService) MarkPaid(ctx context.Context, paymentID int64) error {
	const op = "service.PaymentService.MarkPaid"
	if err := s.paymentRepo.UpdatePaymentStatus(ctx, paymentID, models.PaymentPaid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("payment marked as paid", slog.String("op", op), slog.Int64("paymentID", paymentID))
	return nil
}
