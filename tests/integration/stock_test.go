package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/store"
	"github.com/shopspring/decimal"
)

func TestDecrementStockChecked(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "STK-001", "Bench", "", "",
		decimal.RequireFromString("45.00"), trackedStock(3))
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	if err := store.DecrementStockChecked(ctx, db, product.ID, 2); err != nil {
		t.Fatalf("Decrement within stock: %v", err)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity.Int64 != 1 {
		t.Errorf("Expected stock 1, got %d", after.StockQuantity.Int64)
	}

	err = store.DecrementStockChecked(ctx, db, product.ID, 2)
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock error, got: %v", err)
	}

	after, err = store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity.Int64 != 1 {
		t.Errorf("Refused decrement must leave stock untouched, got %d", after.StockQuantity.Int64)
	}
}
