package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var (
	ErrCancelRequestNotFound = errors.New("cancel request not found")
	ErrActiveCancelExists    = errors.New("active cancel request already exists")
)

// CancelRequestStorage описывает методы для работы с заявками на отмену.
type CancelRequestStorage interface {
	// CreateRequestTx создает заявку внутри транзакции, которая также
	// переводит заказ в cancel_requested.
	CreateRequestTx(ctx context.Context, tx *sql.Tx, req *models.CancelRequest) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.CancelRequest, error)
	// GetActiveByOrderID возвращает pending/approved заявку по заказу, если есть.
	GetActiveByOrderID(ctx context.Context, orderID int64) (*models.CancelRequest, error)
	ListPending(ctx context.Context) ([]*models.CancelRequest, error)
	// UpdateStatusTx фиксирует решение администратора; guard по статусу pending.
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string, adminResponse string) error
	// DeleteTx удаляет заявку (отзыв пользователем) внутри транзакции отката статуса заказа.
	DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error
}

type cancelRequestRepository struct {
	db *sql.DB
}

func NewCancelRequestRepository(db *sql.DB) CancelRequestStorage {
	return &cancelRequestRepository{db: db}
}

func (r *cancelRequestRepository) CreateRequestTx(ctx context.Context, tx *sql.Tx, req *models.CancelRequest) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO cancel_requests (order_id, user_id, status, reason, prior_status, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		req.OrderID, req.UserID, models.CancelPending, req.Reason, req.PriorStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to create cancel request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *cancelRequestRepository) GetByID(ctx context.Context, id int64) (*models.CancelRequest, error) {
	req := &models.CancelRequest{}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, status, reason, admin_response, prior_status, processed_at, created_at
		FROM cancel_requests WHERE id = ?`, id)
	if err := row.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Status, &req.Reason,
		&req.AdminResponse, &req.PriorStatus, &req.ProcessedAt, &req.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCancelRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *cancelRequestRepository) GetActiveByOrderID(ctx context.Context, orderID int64) (*models.CancelRequest, error) {
	req := &models.CancelRequest{}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, user_id, status, reason, admin_response, prior_status, processed_at, created_at
		FROM cancel_requests
		WHERE order_id = ? AND status IN (?, ?)`,
		orderID, models.CancelPending, models.CancelApproved)
	if err := row.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Status, &req.Reason,
		&req.AdminResponse, &req.PriorStatus, &req.ProcessedAt, &req.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCancelRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *cancelRequestRepository) ListPending(ctx context.Context) ([]*models.CancelRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, status, reason, admin_response, prior_status, processed_at, created_at
		FROM cancel_requests
		WHERE status = ?
		ORDER BY created_at`, models.CancelPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query cancel requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.CancelRequest
	for rows.Next() {
		req := &models.CancelRequest{}
		if err := rows.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Status, &req.Reason,
			&req.AdminResponse, &req.PriorStatus, &req.ProcessedAt, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cancel request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *cancelRequestRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string, adminResponse string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE cancel_requests
		SET status = ?, admin_response = ?, processed_at = NOW()
		WHERE id = ? AND status = ?`,
		status, adminResponse, id, models.CancelPending)
	if err != nil {
		return fmt.Errorf("failed to update cancel request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCancelRequestNotFound
	}
	return nil
}

func (r *cancelRequestRepository) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM cancel_requests WHERE id = ? AND status = ?", id, models.CancelPending)
	if err != nil {
		return fmt.Errorf("failed to delete cancel request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCancelRequestNotFound
	}
	return nil
}
