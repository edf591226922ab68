package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-checkout-core/internal/checkout"
	"github.com/safar/go-checkout-core/internal/database"
	"github.com/safar/go-checkout-core/internal/middlewares"
	"github.com/shopspring/decimal"
)

const (
	headerCSRFToken = "x-csrf-token"
	headerCSRFNonce = "x-csrf-nonce"
	headerCSRFHash  = "x-csrf-hash"
)

type Handler struct {
	Service *checkout.Service
	Limiter *checkout.RateLimiter
	Guard   *checkout.CSRFGuard
}

type checkoutItemRequest struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price"` // ignored for billing, logged on mismatch
}

type checkoutSessionRequest struct {
	Items        []checkoutItemRequest `json:"items" binding:"required,min=1,dive"`
	Customer     customerRequest       `json:"customer" binding:"required"`
	DiscountCode string                `json:"discount_code"`
	UserID       *int64                `json:"user_id"`
	ShippingAddr json.RawMessage       `json:"shipping_address"`
	BillingAddr  json.RawMessage       `json:"billing_address"`
}

type customerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordCheckoutOperation("create_session", success) }()

	clientKey := checkout.MaskClientKey(c.ClientIP())

	allowed, remaining := h.Limiter.Admit(clientKey)
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      checkout.ErrRateLimited.Error(),
			"error_type": "rate_limited",
		})
		return
	}
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

	token := c.GetHeader(headerCSRFToken)
	nonce := c.GetHeader(headerCSRFNonce)
	hash := c.GetHeader(headerCSRFHash)
	if token == "" && nonce == "" && hash == "" {
		// Intentional soft-fail: requests without the CSRF headers pass, the
		// remaining checks still apply.
		log.Printf("api: checkout request from %s without CSRF headers", clientKey)
	} else if !h.Guard.Verify(token, nonce, hash) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":      checkout.ErrCSRFRejected.Error(),
			"error_type": "integrity",
		})
		return
	}

	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      err.Error(),
			"error_type": "validation",
		})
		return
	}

	items := make([]checkout.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, checkout.ItemInput{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			ClaimedPriceMinor: checkout.ClaimedPriceFromDecimal(decimal.NewFromFloat(item.Price)),
		})
	}

	var userID sql.NullInt64
	if req.UserID != nil {
		userID = sql.NullInt64{Int64: *req.UserID, Valid: true}
	}

	result, err := h.Service.CreateCheckoutSession(c.Request.Context(), checkout.CheckoutRequest{
		Items: items,
		Customer: checkout.CustomerInfo{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		DiscountCode:    req.DiscountCode,
		UserID:          userID,
		ShippingAddress: req.ShippingAddr,
		BillingAddress:  req.BillingAddr,
		ClientKey:       clientKey,
	})
	if err != nil {
		if checkout.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      err.Error(),
				"error_type": "validation",
			})
			return
		}
		log.Printf("api: create checkout session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "checkout failed",
			"error_type": "internal",
		})
		return
	}

	success = true
	c.JSON(http.StatusOK, gin.H{
		"checkout_url":   result.CheckoutURL,
		"order_id":       result.Order.ID,
		"correlation_id": result.CorrelationID,
	})
}

type finalizeRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) FinalizeOrder(c *gin.Context) {
	success := false
	defer func() { middlewares.RecordCheckoutOperation("finalize", success) }()

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      err.Error(),
			"error_type": "validation",
		})
		return
	}

	result, err := h.Service.Finalize(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "order not found for session",
			})
			return
		}
		log.Printf("api: finalize session %s: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "finalization failed",
		})
		return
	}

	success = true
	if !result.Paid {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"paid":    false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"paid":              true,
		"order_id":          result.Order.ID,
		"already_processed": result.AlreadyProcessed,
	})
}
