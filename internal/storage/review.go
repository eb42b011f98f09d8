package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/uteshop/ute-shop/internal/domain/models"
)

var ErrReviewExists = errors.New("review already exists")

// ReviewStorage описывает методы для работы с отзывами.
type ReviewStorage interface {
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error)
	// HasDeliveredProduct проверяет, есть ли у пользователя доставленный заказ с этим товаром.
	HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error)
}

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewStorage {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (user_id, product_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, NOW())`,
		review.UserID, review.ProductID, review.Rating, review.Comment)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 { // unique(user_id, product_id)
			return nil, ErrReviewExists
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	review.ID = id
	return review, nil
}

func (r *reviewRepository) GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, u.full_name, r.product_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON r.user_id = u.id
		WHERE r.product_id = ?
		ORDER BY r.created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.Review
	for rows.Next() {
		review := &models.Review{}
		if err := rows.Scan(&review.ID, &review.UserID, &review.UserName, &review.ProductID,
			&review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_items i ON i.order_id = o.id
			WHERE o.user_id = ? AND i.product_id = ? AND o.status = ?
		)`, userID, productID, models.StatusDelivered).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check delivered product: %w", err)
	}
	return exists, nil
}
