// Package gateway talks to the external payment gateway. Card processing and
// PCI concerns live entirely on the gateway side; this client only creates
// checkout sessions and reads their payment status back.
package gateway

import "context"

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

type LineItem struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	UnitAmountMinor int64  `json:"unit_amount"`
	Quantity        int64  `json:"quantity"`
}

type SessionRequest struct {
	Currency      string            `json:"currency"`
	LineItems     []LineItem        `json:"line_items"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Client interface {
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
