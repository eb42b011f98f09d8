package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uteshop/ute-shop/internal/domain/models"
	"github.com/uteshop/ute-shop/internal/storage"
)

type ProductService interface {
	List(ctx context.Context, query string, page, limit int) ([]*models.Product, int, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
}

type productService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewProductService(log *slog.Logger, productRepo storage.ProductStorage) ProductService {
	return &productService{log: log, productRepo: productRepo}
}

func (s *productService) List(ctx context.Context, query string, page, limit int) ([]*models.Product, int, error) {
	const op = "service.ProductService.List"
	products, total, err := s.productRepo.ListProducts(ctx, query, page, limit)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return products, total, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.ProductService.Get"
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return product, nil
}

func (s *productService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	const op = "service.ProductService.Create"
	product, err := s.productRepo.CreateProduct(ctx, p)
	if err != nil {
		s.log.Error("failed to create product", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product created", slog.String("op", op), slog.Int64("productID", product.ID))
	return product, nil
}

func (s *productService) Update(ctx context.Context, p *models.Product) error {
	const op = "service.ProductService.Update"
	if err := s.productRepo.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product updated", slog.String("op", op), slog.Int64("productID", p.ID))
	return nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	const op = "service.ProductService.Delete"
	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product deleted", slog.String("op", op), slog.Int64("productID", id))
	return nil
}
