package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/uteshop/ute-shop/internal/service"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// ProductListResponse — страница каталога с метаданными пагинации.
type ProductListResponse struct {
	Products interface{} `json:"products"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	Limit    int         `json:"limit"`
}

// pagination читает page и limit из query-параметров с разумными пределами.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// ListProductsHandler обрабатывает GET /api/products?q=&page=&limit=
func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		page, limit := pagination(r)
		query := r.URL.Query().Get("q")

		products, total, err := productService.List(r.Context(), query, page, limit)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "products retrieved", ProductListResponse{
			Products: products,
			Total:    total,
			Page:     page,
			Limit:    limit,
		})
	}
}

// GetProductHandler обрабатывает GET /api/products/{id}
func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := parseID(r, "id")
		if err != nil {
			respondError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		product, err := productService.Get(r.Context(), id)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}

		respondOK(w, logger, http.StatusOK, "product retrieved", product)
	}
}
