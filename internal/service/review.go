package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

var ErrNotPurchased = errors.New("product was not purchased by this user")

// ProductReviews — отзывы на товар вместе со средней оценкой.
type ProductReviews struct {
	Reviews       []*models.Review `json:"reviews"`
	AverageRating float64          `json:"average_rating"`
}

type ReviewService interface {
	// AddReview создает отзыв; разрешено только покупателям с доставленным заказом.
	AddReview(ctx context.Context, userID, productID int64, rating int, comment string) (*models.Review, error)
	ListByProduct(ctx context.Context, productID int64) (*ProductReviews, error)
}

type reviewService struct {
	log        *slog.Logger
	reviewRepo storage.ReviewStorage
}

func NewReviewService(log *slog.Logger, reviewRepo storage.ReviewStorage) ReviewService {
	return &reviewService{log: log, reviewRepo: reviewRepo}
}

func (s *reviewService) AddReview(ctx context.Context, userID, productID int64, rating int, comment string) (*models.Review, error) {
	const op = "service.ReviewService.AddReview"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	purchased, err := s.reviewRepo.HasDeliveredProduct(ctx, userID, productID)
	if err != nil {
		logger.Error("failed to check purchase", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !purchased {
		logger.Warn("review without delivered order")
		return nil, fmt.Errorf("%s: %w", op, ErrNotPurchased)
	}

	review, err := s.reviewRepo.CreateReview(ctx, &models.Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		logger.Warn("failed to create review", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("review created", slog.Int64("reviewID", review.ID))
	return review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID int64) (*ProductReviews, error) {
	const op = "service.ReviewService.ListByProduct"
	reviews, err := s.reviewRepo.GetReviewsByProductID(ctx, productID)
	if err != nil {
		s.log.Error("failed to get reviews", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &ProductReviews{Reviews: reviews}
	if len(reviews) > 0 {
		var sum int
		for _, r := range reviews {
			sum += r.Rating
		}
		result.AverageRating = float64(sum) / float64(len(reviews))
	}
	return result, nil
}
