package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

// Cart — корзина с пересчитанной суммой.
type Cart struct {
	Items []*models.CartItem `json:"items"`
	Total int64              `json:"total"`
}

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateItem(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{log: log, cartRepo: cartRepo, productRepo: productRepo}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	const op = "service.CartService.GetCart"
	items, err := s.cartRepo.GetItemsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get cart", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cart := &Cart{Items: items}
	for _, item := range items {
		cart.Total += item.Price * int64(item.Quantity)
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity < 1 {
		return fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Warn("product lookup failed", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if product.StockQuantity < quantity {
		logger.Warn("insufficient stock", slog.Int("stock", product.StockQuantity), slog.Int("requested", quantity))
		return fmt.Errorf("%s: %w", op, storage.ErrInsufficientStock)
	}

	if err := s.cartRepo.UpsertItem(ctx, userID, productID, quantity); err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int("quantity", quantity))
	return nil
}

func (s *cartService) UpdateItem(ctx context.Context, userID, productID int64, quantity int) error {
	const op = "service.CartService.UpdateItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	if quantity < 1 {
		return fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if product.StockQuantity < quantity {
		return fmt.Errorf("%s: %w", op, storage.ErrInsufficientStock)
	}

	if err := s.cartRepo.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		logger.Warn("failed to update cart item", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	const op = "service.CartService.RemoveItem"
	if err := s.cartRepo.RemoveItem(ctx, userID, productID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
