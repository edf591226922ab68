package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/gateway"
	"github.com/safar/go-checkout-core/internal/models"
	"github.com/safar/go-checkout-core/internal/notify"
	"github.com/safar/go-checkout-core/internal/store"
)

type FinalizeResult struct {
	Order            *models.Order
	Paid             bool
	AlreadyProcessed bool
}

// Finalize confirms payment for a gateway session and transitions the order
// pending->paid exactly once. The conditional update in MarkOrderPaid is the
// only mutual exclusion; repeated or concurrent calls for the same session
// all succeed, but only one performs the stock decrement, payment record,
// and notifications.
func (s *Service) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	session, err := s.Gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("retrieve gateway session %s: %w", sessionID, err)
	}

	if session.PaymentStatus != gateway.PaymentStatusPaid {
		return &FinalizeResult{Paid: false}, nil
	}

	order, err := store.GetOrderByGatewaySession(ctx, s.DB, sessionID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusCompleted {
		return &FinalizeResult{Order: order, Paid: true, AlreadyProcessed: true}, nil
	}

	updated, err := store.MarkOrderPaid(ctx, s.DB, order.ID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotPending) {
			// Another invocation won the transition between our read and the
			// conditional update; the pre-race read is stale.
			order.Status = models.OrderStatusPaid
			return &FinalizeResult{Order: order, Paid: true, AlreadyProcessed: true}, nil
		}
		return nil, err
	}
	updated.Items = order.Items

	// From here this invocation exclusively owns post-payment side effects.
	// Failures below leave a half-finalized order and must surface with
	// enough context for manual reconciliation.
	correlationID := updated.Metadata.CorrelationID

	if err := store.AppendStatusHistory(ctx, s.DB, updated.ID,
		models.OrderStatusPending, models.OrderStatusPaid,
		"payment confirmed, gateway session "+sessionID); err != nil {
		log.Printf("checkout: status history for order %d (correlation %s): %v", updated.ID, correlationID, err)
		return nil, err
	}

	for _, item := range updated.Items {
		if err := store.DecrementStockFloored(ctx, s.DB, item.ProductID, item.Quantity); err != nil {
			log.Printf("checkout: stock decrement for order %d product %d (correlation %s): %v",
				updated.ID, item.ProductID, correlationID, err)
			return nil, err
		}
	}

	if _, err := store.InsertPaymentRecord(ctx, s.DB, &models.PaymentRecord{
		OrderID:              updated.ID,
		GatewaySessionID:     sessionID,
		GatewayPaymentIntent: session.PaymentIntent,
		AmountMinor:          updated.AmountMinor,
		Currency:             updated.Currency,
		Status:               "succeeded",
	}); err != nil {
		log.Printf("checkout: payment record for order %d (correlation %s): %v", updated.ID, correlationID, err)
		return nil, err
	}

	s.dispatchSideEffects(ctx, updated)

	return &FinalizeResult{Order: updated, Paid: true}, nil
}

// dispatchSideEffects runs the non-fatal post-payment steps. Each failure is
// logged and swallowed independently.
func (s *Service) dispatchSideEffects(ctx context.Context, order *models.Order) {
	if s.Notifier == nil {
		return
	}

	score, signals := FraudScore(order)
	if err := s.Notifier.Publish(ctx, notify.KeyFraudScored, map[string]any{
		"order_id":       order.ID,
		"correlation_id": order.Metadata.CorrelationID,
		"score":          score,
		"signals":        signals,
	}); err != nil {
		log.Printf("checkout: publish fraud score for order %d: %v", order.ID, err)
	}

	if err := s.Notifier.Publish(ctx, notify.KeyOrderConfirmed, confirmationEvent(order)); err != nil {
		log.Printf("checkout: publish confirmation for order %d: %v", order.ID, err)
	}
}

func confirmationEvent(order *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"name":             item.ProductName,
			"quantity":         item.Quantity,
			"unit_price_minor": item.UnitPriceMinor,
		})
	}

	return map[string]any{
		"order_id":       order.ID,
		"correlation_id": order.Metadata.CorrelationID,
		"amount_minor":   order.AmountMinor,
		"currency":       order.Currency,
		"customer_name":  order.Metadata.CustomerName,
		"customer_email": order.Metadata.CustomerEmail,
		"items":          items,
	}
}
