package checkout

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/models"
	"github.com/safar/go-checkout-core/internal/store"
	"github.com/shopspring/decimal"
)

// Discount is the evaluated result of a coupon against a verified subtotal.
// A zero Discount means no code, an unknown code, or a code that failed
// validation; a bad code never blocks checkout.
type Discount struct {
	Code         string
	AmountMinor  int64
	FreeShipping bool
}

// EvaluateCoupon validates a coupon against server state at now and prices it
// against the verified subtotal. Client-declared discount amounts are never
// consulted; only codes are evaluated.
func EvaluateCoupon(coupon *models.DiscountCoupon, subtotalMinor int64, now time.Time) Discount {
	if coupon == nil || !coupon.IsActive {
		return Discount{}
	}

	if coupon.ValidFrom.Valid && now.Before(coupon.ValidFrom.Time) {
		return Discount{}
	}
	if coupon.ValidUntil.Valid && now.After(coupon.ValidUntil.Time) {
		return Discount{}
	}

	if coupon.UsageLimit.Valid && coupon.UsageCount >= coupon.UsageLimit.Int64 {
		return Discount{}
	}

	if coupon.MinOrderAmount.Valid && subtotalMinor < models.MinorUnits(coupon.MinOrderAmount.Decimal) {
		return Discount{}
	}

	var amount int64
	switch coupon.Type {
	case models.CouponTypePercentage:
		amount = decimal.NewFromInt(subtotalMinor).
			Mul(coupon.Value).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if coupon.MaxDiscount.Valid {
			if limit := models.MinorUnits(coupon.MaxDiscount.Decimal); amount > limit {
				amount = limit
			}
		}
	case models.CouponTypeFixed:
		// Fixed discounts may exceed the subtotal; per-line proration clamps
		// each line at one minor unit downstream.
		amount = models.MinorUnits(coupon.Value)
	default:
		return Discount{}
	}

	if amount < 0 {
		amount = 0
	}

	return Discount{
		Code:         coupon.Code,
		AmountMinor:  amount,
		FreeShipping: coupon.FreeShipping,
	}
}

// EvaluateCode resolves and evaluates a coupon code. Unknown codes evaluate
// to zero discount rather than an error.
func EvaluateCode(ctx context.Context, db *sql.DB, code string, subtotalMinor int64, now time.Time) (Discount, error) {
	if code == "" {
		return Discount{}, nil
	}

	coupon, err := store.GetCouponByCode(ctx, db, code)
	if err != nil {
		if errors.Is(err, database.ErrCouponNotFound) {
			log.Printf("checkout: ignoring unknown coupon code %q", code)
			return Discount{}, nil
		}
		return Discount{}, err
	}

	return EvaluateCoupon(coupon, subtotalMinor, now), nil
}

// ProratedUnitPrice applies the discount uniformly across line items so that
// per-item display prices sum to the discounted total. Each line is clamped
// at one minor unit to avoid zero or negative prices when a fixed discount
// exceeds the subtotal.
func (d Discount) ProratedUnitPrice(unitPriceMinor, subtotalMinor int64) int64 {
	if d.AmountMinor <= 0 || subtotalMinor <= 0 {
		return unitPriceMinor
	}

	lineDiscount := decimal.NewFromInt(unitPriceMinor).
		Mul(decimal.NewFromInt(d.AmountMinor)).
		Div(decimal.NewFromInt(subtotalMinor)).
		Round(0).
		IntPart()

	discounted := unitPriceMinor - lineDiscount
	if discounted < 1 {
		discounted = 1
	}

	return discounted
}
