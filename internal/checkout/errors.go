package checkout

import (
	"errors"

	"github.com/safar/go-checkout-core/internal/database"
)

var (
	ErrRateLimited     = errors.New("too many checkout attempts")
	ErrCSRFRejected    = errors.New("request integrity check failed")
	ErrEmptyCart       = errors.New("order must contain at least one item")
	ErrTooManyItems    = errors.New("too many items in order")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
)

// IsValidationError reports whether err should surface to the caller as a
// 4xx-style validation failure rather than a generic internal error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrTooManyItems) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, database.ErrProductNotFound) ||
		errors.Is(err, database.ErrProductUnavailable) ||
		errors.Is(err, database.ErrInsufficientStock)
}
