package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStorage описывает методы для работы с каталогом товаров.
type ProductStorage interface {
	ListProducts(ctx context.Context, query string, page, limit int) ([]*models.Product, int, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// LockProductByIDTx читает товар с блокировкой строки внутри транзакции.
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	// DecrementStockTx списывает остаток и увеличивает счетчик продаж.
	// Guard stock_quantity >= quantity в WHERE не дает уйти в минус при гонке.
	DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	// RestoreStockTx возвращает остаток при отмене заказа.
	RestoreStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) ListProducts(ctx context.Context, query string, page, limit int) ([]*models.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit
	pattern := "%" + query + "%"

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE name LIKE ?", pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, image, price, stock_quantity, sold_count, created_at
		FROM products
		WHERE name LIKE ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.StockQuantity, &p.SoldCount, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, image, price, stock_quantity, sold_count, created_at
		FROM products WHERE id = ?`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.StockQuantity, &p.SoldCount, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p := &models.Product{}
	row := tx.QueryRowContext(ctx, `
		SELECT id, name, description, image, price, stock_quantity, sold_count, created_at
		FROM products WHERE id = ? FOR UPDATE`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.StockQuantity, &p.SoldCount, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - ?, sold_count = sold_count + ?
		WHERE id = ? AND stock_quantity >= ?`,
		quantity, quantity, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) RestoreStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + ?, sold_count = GREATEST(sold_count - ?, 0)
		WHERE id = ?`,
		quantity, quantity, id)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (name, description, image, price, stock_quantity, sold_count, created_at)
		VALUES (?, ?, ?, ?, ?, 0, NOW())`,
		p.Name, p.Description, p.Image, p.Price, p.StockQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, image = ?, price = ?, stock_quantity = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Image, p.Price, p.StockQuantity, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
