package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity sql.NullInt64   `json:"stock_quantity"` // NULL means stock is not tracked
	IsActive      bool            `json:"is_active"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type Order struct {
	ID               int64           `json:"id"`
	UserID           sql.NullInt64   `json:"user_id"` // NULL means guest checkout
	AmountMinor      int64           `json:"amount_minor"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	ShippingAddress  json.RawMessage `json:"shipping_address,omitempty"`
	BillingAddress   json.RawMessage `json:"billing_address,omitempty"`
	GatewaySessionID sql.NullString  `json:"gateway_session_id,omitempty"`
	Metadata         OrderMetadata   `json:"metadata"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
	Items            []OrderItem     `json:"items,omitempty"`
}

// OrderMetadata is persisted as JSONB. The correlation id is threaded through
// gateway metadata and status history, distinct from the order id.
type OrderMetadata struct {
	CorrelationID  string `json:"correlation_id"`
	DiscountCode   string `json:"discount_code,omitempty"`
	DiscountMinor  int64  `json:"discount_minor,omitempty"`
	FreeShipping   bool   `json:"free_shipping,omitempty"`
	ClientKey      string `json:"client_key,omitempty"`
	CustomerName   string `json:"customer_name,omitempty"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	CustomerPhone  string `json:"customer_phone,omitempty"`
	VIP            bool   `json:"vip,omitempty"`
}

type OrderItem struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	ProductID       int64     `json:"product_id"`
	Quantity        int       `json:"quantity"`
	UnitPriceMinor  int64     `json:"unit_price_minor"`
	TotalPriceMinor int64     `json:"total_price_minor"`
	ProductName     string    `json:"product_name"`
	ProductDesc     string    `json:"product_description,omitempty"`
	ProductImage    string    `json:"product_image,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type DiscountCoupon struct {
	ID             int64               `json:"id"`
	Code           string              `json:"code"`
	Type           string              `json:"type"` // percentage or fixed
	Value          decimal.Decimal     `json:"value"`
	ValidFrom      sql.NullTime        `json:"valid_from"`
	ValidUntil     sql.NullTime        `json:"valid_until"`
	UsageLimit     sql.NullInt64       `json:"usage_limit"`
	UsageCount     int64               `json:"usage_count"`
	MinOrderAmount decimal.NullDecimal `json:"minimum_order_amount"`
	MaxDiscount    decimal.NullDecimal `json:"maximum_discount_amount"`
	FreeShipping   bool                `json:"free_shipping"`
	IsActive       bool                `json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
}

type PaymentRecord struct {
	ID                   int64     `json:"id"`
	OrderID              int64     `json:"order_id"`
	GatewaySessionID     string    `json:"gateway_session_id"`
	GatewayPaymentIntent string    `json:"gateway_payment_intent,omitempty"`
	AmountMinor          int64     `json:"amount_minor"`
	Currency             string    `json:"currency"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}

type OrderStatusHistory struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// MinorUnits converts a currency-unit decimal into integer minor units,
// rounding half away from zero (89.00 -> 8900).
func MinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
