package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentStorage описывает методы для работы с платежами.
type PaymentStorage interface {
	// CreatePaymentTx создает запись о платеже внутри транзакции оформления заказа.
	CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (int64, error)
	GetPaymentsByUserID(ctx context.Context, userID int64) ([]*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status string) error
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (order_id, method, amount, status, reference, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())`,
		p.OrderID, p.Method, p.Amount, p.Status, p.Reference)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *paymentRepository) GetPaymentsByUserID(ctx context.Context, userID int64) ([]*models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.order_id, p.method, p.amount, p.status, p.reference, p.created_at
		FROM payments p
		JOIN orders o ON p.order_id = o.id
		WHERE o.user_id = ?
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.Reference, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	p := &models.Payment{}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, method, amount, status, reference, created_at
		FROM payments WHERE order_id = ?`, orderID)
	if err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Status, &p.Reference, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) UpdatePaymentStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE payments SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
