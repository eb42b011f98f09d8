package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage описывает методы для работы с корзиной.
type CartStorage interface {
	GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	// UpsertItem добавляет товар в корзину или увеличивает количество, если он уже там.
	UpsertItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	// ClearTx очищает корзину внутри транзакции оформления заказа.
	ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

// GetItemsByUserID возвращает позиции корзины с актуальными данными товара через JOIN.
func (r *cartRepository) GetItemsByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.product_id, p.name, p.image, p.price, c.quantity, p.stock_quantity
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = ?
		ORDER BY c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.ProductName,
			&item.ProductImage, &item.Price, &item.Quantity, &item.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, userID, productID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?",
		quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
