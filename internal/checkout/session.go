package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-checkout-core/internal/config"
	"github.com/safar/go-checkout-core/internal/gateway"
	"github.com/safar/go-checkout-core/internal/models"
	"github.com/safar/go-checkout-core/internal/notify"
	"github.com/safar/go-checkout-core/internal/store"
)

// Notifier publishes best-effort events. A nil Notifier disables publishing.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Service struct {
	DB       *sql.DB
	Gateway  gateway.Client
	Notifier Notifier
	Config   *config.Config
}

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

type CheckoutRequest struct {
	Items           []ItemInput
	Customer        CustomerInfo
	DiscountCode    string
	UserID          sql.NullInt64
	ShippingAddress json.RawMessage
	BillingAddress  json.RawMessage
	ClientKey       string
}

type CheckoutResult struct {
	Order         *models.Order
	CheckoutURL   string
	CorrelationID string
}

const settingVIPThreshold = "vip_order_threshold"

// CreateCheckoutSession reconciles the cart against the catalog, creates the
// pending order, and builds the gateway session. Each call creates a fresh
// pending order; a gateway failure leaves it pending for later cleanup.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	verified, err := Reconcile(ctx, s.DB, req.Items, s.Config.Checkout.MaxItemsPerOrder)
	if err != nil {
		return nil, err
	}

	subtotal := Subtotal(verified)

	discount, err := EvaluateCode(ctx, s.DB, req.DiscountCode, subtotal, time.Now())
	if err != nil {
		return nil, fmt.Errorf("evaluate discount: %w", err)
	}

	shipping := s.Config.Checkout.ShippingFeeMinor
	if discount.FreeShipping {
		shipping = 0
	}

	// The order amount and the gateway line items are built from the same
	// prorated unit prices so the two can never disagree.
	lineItems := make([]gateway.LineItem, 0, len(verified)+1)
	orderItems := make([]store.PendingOrderItem, 0, len(verified))
	var amount int64
	for _, item := range verified {
		discountedUnit := discount.ProratedUnitPrice(item.UnitPriceMinor, subtotal)
		amount += discountedUnit * int64(item.Quantity)

		lineItems = append(lineItems, gateway.LineItem{
			Name:            item.Name,
			Description:     item.Description,
			ImageURL:        item.ImageURL,
			UnitAmountMinor: discountedUnit,
			Quantity:        int64(item.Quantity),
		})
		orderItems = append(orderItems, store.PendingOrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPriceMinor:  item.UnitPriceMinor,
			TotalPriceMinor: item.UnitPriceMinor * int64(item.Quantity),
			ProductName:     item.Name,
			ProductDesc:     item.Description,
			ProductImage:    item.ImageURL,
		})
	}

	// Per-line rounding can shift the total by a minor unit, so the recorded
	// discount is the sum of what the lines actually absorbed, not the
	// coupon's nominal amount.
	appliedDiscount := subtotal - amount

	if shipping > 0 {
		lineItems = append(lineItems, gateway.LineItem{
			Name:            "Shipping",
			UnitAmountMinor: shipping,
			Quantity:        1,
		})
	}
	amount += shipping

	vipThreshold, err := store.GetSettingInt64(ctx, s.DB, settingVIPThreshold, s.Config.Checkout.VIPThresholdMinor)
	if err != nil {
		log.Printf("checkout: read %s setting: %v", settingVIPThreshold, err)
		vipThreshold = s.Config.Checkout.VIPThresholdMinor
	}

	correlationID := uuid.NewString()
	order, err := store.CreatePendingOrder(ctx, s.DB, store.CreatePendingOrderRequest{
		UserID:          req.UserID,
		AmountMinor:     amount,
		Currency:        s.Config.Checkout.Currency,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Metadata: models.OrderMetadata{
			CorrelationID: correlationID,
			DiscountCode:  discount.Code,
			DiscountMinor: appliedDiscount,
			FreeShipping:  discount.FreeShipping,
			ClientKey:     req.ClientKey,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
			VIP:           amount >= vipThreshold,
		},
		Items: orderItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create pending order: %w", err)
	}

	if order.Metadata.VIP && s.Notifier != nil {
		if err := s.Notifier.Publish(ctx, notify.KeyVIPOrder, vipOrderEvent(order)); err != nil {
			log.Printf("checkout: publish VIP alert for order %d (correlation %s): %v",
				order.ID, correlationID, err)
		}
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, &gateway.SessionRequest{
		Currency:      s.Config.Checkout.Currency,
		LineItems:     lineItems,
		CustomerEmail: req.Customer.Email,
		SuccessURL:    s.Config.Gateway.SuccessURL,
		CancelURL:     s.Config.Gateway.CancelURL,
		Metadata: map[string]string{
			"order_id":       strconv.FormatInt(order.ID, 10),
			"correlation_id": correlationID,
		},
	})
	if err != nil {
		// The pending order stays behind; it is harmless and can be expired
		// by a cleanup process.
		return nil, fmt.Errorf("create gateway session for order %d: %w", order.ID, err)
	}

	if err := store.SetGatewaySession(ctx, s.DB, order.ID, session.ID); err != nil {
		return nil, fmt.Errorf("persist gateway session for order %d: %w", order.ID, err)
	}
	order.GatewaySessionID = sql.NullString{String: session.ID, Valid: true}

	return &CheckoutResult{
		Order:         order,
		CheckoutURL:   session.URL,
		CorrelationID: correlationID,
	}, nil
}

func vipOrderEvent(order *models.Order) map[string]any {
	return map[string]any{
		"order_id":       order.ID,
		"correlation_id": order.Metadata.CorrelationID,
		"amount_minor":   order.AmountMinor,
		"currency":       order.Currency,
		"customer_email": order.Metadata.CustomerEmail,
	}
}
