package checkout

import (
	"strings"

	"github.com/safar/go-checkout-core/internal/models"
)

var throwawayDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
}

// FraudScore computes a 0-100 heuristic risk score from order and customer
// signals. It runs after the paid transition commits and only feeds a
// best-effort notification; it never gates finalization.
func FraudScore(order *models.Order) (int, []string) {
	score := 0
	var signals []string

	if !order.UserID.Valid {
		score += 20
		signals = append(signals, "guest_checkout")
	}

	switch {
	case order.AmountMinor >= 100000:
		score += 30
		signals = append(signals, "very_high_amount")
	case order.AmountMinor >= 50000:
		score += 15
		signals = append(signals, "high_amount")
	}

	var totalQuantity int
	for _, item := range order.Items {
		totalQuantity += item.Quantity
	}
	if totalQuantity > 20 {
		score += 15
		signals = append(signals, "bulk_quantity")
	}

	if at := strings.LastIndex(order.Metadata.CustomerEmail, "@"); at >= 0 {
		domain := strings.ToLower(order.Metadata.CustomerEmail[at+1:])
		if throwawayDomains[domain] {
			score += 30
			signals = append(signals, "throwaway_email")
		}
	}

	if score > 100 {
		score = 100
	}

	return score, signals
}
