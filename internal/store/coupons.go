package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/models"
)

func GetCouponByCode(ctx context.Context, db *sql.DB, code string) (*models.DiscountCoupon, error) {
	coupon := &models.DiscountCoupon{}

	query := `
		SELECT id, code, type, value, valid_from, valid_until, usage_limit, usage_count,
		       minimum_order_amount, maximum_discount_amount, free_shipping, is_active, created_at
		FROM discount_coupons
		WHERE code = $1`

	err := db.QueryRowContext(ctx, query, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Type,
		&coupon.Value,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.UsageLimit,
		&coupon.UsageCount,
		&coupon.MinOrderAmount,
		&coupon.MaxDiscount,
		&coupon.FreeShipping,
		&coupon.IsActive,
		&coupon.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

func CreateCoupon(ctx context.Context, db *sql.DB, coupon *models.DiscountCoupon) (*models.DiscountCoupon, error) {
	query := `
		INSERT INTO discount_coupons (code, type, value, valid_from, valid_until, usage_limit, usage_count,
		                              minimum_order_amount, maximum_discount_amount, free_shipping, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at`

	err := db.QueryRowContext(ctx, query,
		coupon.Code,
		coupon.Type,
		coupon.Value,
		coupon.ValidFrom,
		coupon.ValidUntil,
		coupon.UsageLimit,
		coupon.UsageCount,
		coupon.MinOrderAmount,
		coupon.MaxDiscount,
		coupon.FreeShipping,
		coupon.IsActive,
	).Scan(&coupon.ID, &coupon.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	return coupon, nil
}
