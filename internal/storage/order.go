package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStatusChanged = errors.New("order status changed")
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ внутри транзакции и возвращает его id.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// CreateOrderItemTx вставляет позицию заказа внутри транзакции.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	// GetOrderByID возвращает заказ вместе с именем и email владельца.
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// GetOrderItems возвращает позиции заказа.
	GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	// GetOrdersByUserID возвращает заказы пользователя, новые первыми.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// ListOrders возвращает страницу заказов для админки, с фильтром по статусу.
	ListOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]*models.Order, int, error)
	// UpdateStatus переводит заказ из from в to; проверка from в WHERE
	// защищает от гонки двух параллельных переходов.
	UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error
	// UpdateStatusTx — то же самое, но внутри транзакции.
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error
	// ListStaleNew возвращает id заказов в статусе new старше порога.
	ListStaleNew(ctx context.Context, olderThan time.Time, limit int) ([]int64, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, total_amount, status, shipping_address, note, payment_method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		order.UserID, order.TotalAmount, order.Status, order.ShippingAddress, order.Note, order.PaymentMethod)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, product_name, product_image, price, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.OrderID, item.ProductID, item.ProductName, item.ProductImage, item.Price, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.user_id, u.full_name, u.email, o.total_amount, o.status,
		       o.shipping_address, o.note, o.payment_method, o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.id = ?`, id)
	if err := row.Scan(&order.ID, &order.UserID, &order.UserName, &order.UserEmail, &order.TotalAmount,
		&order.Status, &order.ShippingAddress, &order.Note, &order.PaymentMethod,
		&order.CreatedAt, &order.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, product_image, price, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductImage, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, shipping_address, note, payment_method, created_at, updated_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.Status,
			&order.ShippingAddress, &order.Note, &order.PaymentMethod,
			&order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, status models.OrderStatus, page, limit int) ([]*models.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := ""
	args := []any{}
	if status != "" {
		where = "WHERE o.status = ?"
		args = append(args, status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM orders o " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `
		SELECT o.id, o.user_id, u.full_name, u.email, o.total_amount, o.status,
		       o.shipping_address, o.note, o.payment_method, o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		` + where + `
		ORDER BY o.created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.UserName, &order.UserEmail,
			&order.TotalAmount, &order.Status, &order.ShippingAddress, &order.Note,
			&order.PaymentMethod, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?",
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderStatusChanged
	}
	return nil
}

func (r *orderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?",
		to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderStatusChanged
	}
	return nil
}

func (r *orderRepository) ListStaleNew(ctx context.Context, olderThan time.Time, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM orders WHERE status = ? AND created_at < ? ORDER BY created_at LIMIT ?",
		models.StatusNew, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale orders: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
