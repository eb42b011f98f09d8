package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uteshop/ute-shop/internal/domain/models"
)

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
)

// CouponStorage описывает методы для работы с промокодами.
type CouponStorage interface {
	// GetCouponByCodeTx читает промокод с блокировкой строки — счетчик
	// использований инкрементируется в той же транзакции.
	GetCouponByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error)
	IncrementUsageTx(ctx context.Context, tx *sql.Tx, id int64) error
}

type couponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) CouponStorage {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetCouponByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error) {
	c := &models.Coupon{}
	row := tx.QueryRowContext(ctx, `
		SELECT id, code, discount_percent, min_order_amount, usage_limit, used_count, expires_at, active
		FROM coupons WHERE code = ? FOR UPDATE`, code)
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.MinOrderAmount,
		&c.UsageLimit, &c.UsedCount, &c.ExpiresAt, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *couponRepository) IncrementUsageTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE id = ? AND (usage_limit = 0 OR used_count < usage_limit)`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCouponExhausted
	}
	return nil
}
