package checkout

import (
	"context"
	"errors"
	"testing"
)

// The rejection checks run before the catalog read, so a nil DB proves no
// query is issued for a cart that fails them.

func TestReconcileRejectsEmptyCart(t *testing.T) {
	_, err := Reconcile(context.Background(), nil, nil, 50)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("Expected empty cart error, got: %v", err)
	}
	if !IsValidationError(err) {
		t.Error("Empty cart should classify as a validation error")
	}
}

func TestReconcileRejectsTooManyItems(t *testing.T) {
	items := []ItemInput{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 1},
	}

	_, err := Reconcile(context.Background(), nil, items, 2)
	if !errors.Is(err, ErrTooManyItems) {
		t.Fatalf("Expected too many items error, got: %v", err)
	}
	if !IsValidationError(err) {
		t.Error("Oversized cart should classify as a validation error")
	}
}

func TestReconcileRejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		items := []ItemInput{{ProductID: 7, Quantity: quantity}}

		_, err := Reconcile(context.Background(), nil, items, 50)
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("Quantity %d: expected invalid quantity error, got: %v", quantity, err)
		}
		if !IsValidationError(err) {
			t.Errorf("Quantity %d should classify as a validation error", quantity)
		}
	}
}
