package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

var (
	ErrNotRequestOwner    = errors.New("cancel request belongs to another user")
	ErrRequestNotPending  = errors.New("cancel request is no longer pending")
	ErrOrderNotCancelable = errors.New("order cannot be cancelled at this stage")
)

type CancelRequestService interface {
	// Submit подает заявку на отмену: заказ переходит в cancel_requested.
	Submit(ctx context.Context, userID, orderID int64, reason string) (*models.CancelRequest, error)
	// Withdraw отзывает свою pending-заявку, заказ возвращается в прежний статус.
	Withdraw(ctx context.Context, userID, requestID int64) error
	ListPending(ctx context.Context) ([]*models.CancelRequest, error)
	// Process — решение администратора: approve отменяет заказ и возвращает
	// остатки, reject откатывает заказ в статус на момент подачи.
	Process(ctx context.Context, requestID int64, approve bool, adminResponse string) error
}

type cancelRequestService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	cancelRepo  storage.CancelRequestStorage
}

func NewCancelRequestService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage,
	productRepo storage.ProductStorage, cancelRepo storage.CancelRequestStorage) CancelRequestService {
	return &cancelRequestService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cancelRepo:  cancelRepo,
	}
}

func (s *cancelRequestService) Submit(ctx context.Context, userID, orderID int64, reason string) (*models.CancelRequest, error) {
	const op = "service.CancelRequestService.Submit"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOrderOwner)
	}
	// Заявка возможна только пока заказ не ушел в сборку
	if order.Status != models.StatusNew && order.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotCancelable)
	}

	// Не более одной активной заявки на заказ
	if _, err := s.cancelRepo.GetActiveByOrderID(ctx, orderID); err == nil {
		logger.Warn("active cancel request already exists")
		return nil, fmt.Errorf("%s: %w", op, storage.ErrActiveCancelExists)
	} else if !errors.Is(err, storage.ErrCancelRequestNotFound) {
		logger.Error("failed to check active request", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// CAS-переход защищает от двух конкурентных заявок на один заказ:
	// вторая увидит 0 затронутых строк
	if err := s.orderRepo.UpdateStatusTx(ctx, tx, orderID, order.Status, models.StatusCancelRequested); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("failed to move order to cancel_requested", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req := &models.CancelRequest{
		OrderID:     orderID,
		UserID:      userID,
		Status:      models.CancelPending,
		Reason:      reason,
		PriorStatus: order.Status,
	}
	id, err := s.cancelRepo.CreateRequestTx(ctx, tx, req)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create cancel request", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.ID = id

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("cancel request submitted", slog.Int64("requestID", id))
	return req, nil
}

func (s *cancelRequestService) Withdraw(ctx context.Context, userID, requestID int64) error {
	const op = "service.CancelRequestService.Withdraw"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("requestID", requestID))

	req, err := s.cancelRepo.GetByID(ctx, requestID)
	if err != nil {
		logger.Error("failed to get cancel request", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if req.UserID != userID {
		return fmt.Errorf("%s: %w", op, ErrNotRequestOwner)
	}
	if req.Status != models.CancelPending {
		return fmt.Errorf("%s: %w", op, ErrRequestNotPending)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.cancelRepo.DeleteTx(ctx, tx, requestID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("failed to delete cancel request", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.orderRepo.UpdateStatusTx(ctx, tx, req.OrderID, models.StatusCancelRequested, req.PriorStatus); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to revert order status", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("cancel request withdrawn")
	return nil
}

func (s *cancelRequestService) ListPending(ctx context.Context) ([]*models.CancelRequest, error) {
	const op = "service.CancelRequestService.ListPending"
	requests, err := s.cancelRepo.ListPending(ctx)
	if err != nil {
		s.log.Error("failed to list cancel requests", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return requests, nil
}

func (s *cancelRequestService) Process(ctx context.Context, requestID int64, approve bool, adminResponse string) error {
	const op = "service.CancelRequestService.Process"
	logger := s.log.With(slog.String("op", op), slog.Int64("requestID", requestID), slog.Bool("approve", approve))

	req, err := s.cancelRepo.GetByID(ctx, requestID)
	if err != nil {
		logger.Error("failed to get cancel request", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if req.Status != models.CancelPending {
		return fmt.Errorf("%s: %w", op, ErrRequestNotPending)
	}

	var items []*models.OrderItem
	if approve {
		items, err = s.orderRepo.GetOrderItems(ctx, req.OrderID)
		if err != nil {
			logger.Error("failed to get order items", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if approve {
		if err := s.cancelRepo.UpdateStatusTx(ctx, tx, requestID, models.CancelApproved, adminResponse); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("failed to approve request", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, req.OrderID, models.StatusCancelRequested, models.StatusCancelled); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to cancel order", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		for _, item := range items {
			if err := s.productRepo.RestoreStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					logger.Error("transaction rollback failed", slog.Any("error", rbErr))
				}
				logger.Error("failed to restore stock", slog.Any("error", err))
				return fmt.Errorf("%s: failed to restore stock: %w", op, err)
			}
		}
	} else {
		if err := s.cancelRepo.UpdateStatusTx(ctx, tx, requestID, models.CancelRejected, adminResponse); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("failed to reject request", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, req.OrderID, models.StatusCancelRequested, req.PriorStatus); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to revert order status", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("cancel request processed")
	return nil
}
