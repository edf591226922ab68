package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/models"
	"github.com/safar/go-checkout-core/internal/store"
	"github.com/shopspring/decimal"
)

// ItemInput is what the client submits. ClaimedPriceMinor is kept only so a
// tampered price can be logged for audit; billing always uses the catalog.
type ItemInput struct {
	ProductID         int64
	Quantity          int
	ClaimedPriceMinor int64
}

// VerifiedItem carries only server-trusted values frozen at reconciliation
// time from the product catalog.
type VerifiedItem struct {
	ProductID      int64
	Quantity       int
	UnitPriceMinor int64
	Name           string
	Description    string
	ImageURL       string
}

// Reconcile recomputes authoritative prices and availability for the
// submitted items in one batch catalog read. It is the single gate against
// price tampering and must run before any order row is written.
func Reconcile(ctx context.Context, db *sql.DB, items []ItemInput, maxItems int) ([]VerifiedItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if len(items) > maxItems {
		return nil, fmt.Errorf("order has %d items, maximum is %d: %w", len(items), maxItems, ErrTooManyItems)
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidQuantity)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := store.GetProductsByIDs(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	verified := make([]VerifiedItem, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, database.ErrProductNotFound)
		}

		if !product.IsActive || !product.IsAvailable {
			return nil, fmt.Errorf("%s: %w", product.Name, database.ErrProductUnavailable)
		}

		if product.StockQuantity.Valid && product.StockQuantity.Int64 < int64(item.Quantity) {
			return nil, fmt.Errorf("insufficient stock for %s: %w", product.Name, database.ErrInsufficientStock)
		}

		unitPriceMinor := models.MinorUnits(product.Price)

		if item.ClaimedPriceMinor != 0 && item.ClaimedPriceMinor != unitPriceMinor {
			log.Printf("checkout: client price mismatch for product %d: claimed %d, catalog %d",
				product.ID, item.ClaimedPriceMinor, unitPriceMinor)
		}

		verified = append(verified, VerifiedItem{
			ProductID:      product.ID,
			Quantity:       item.Quantity,
			UnitPriceMinor: unitPriceMinor,
			Name:           product.Name,
			Description:    product.Description,
			ImageURL:       product.ImageURL,
		})
	}

	return verified, nil
}

// Subtotal sums verified line totals in minor units.
func Subtotal(items []VerifiedItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPriceMinor * int64(item.Quantity)
	}
	return total
}

// ClaimedPriceFromDecimal converts a client-supplied currency-unit price into
// minor units for audit logging.
func ClaimedPriceFromDecimal(d decimal.Decimal) int64 {
	return models.MinorUnits(d)
}
