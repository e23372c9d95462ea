package models

import (
	"time"
)

// Payment status constants
const (
	PaymentStatusPending  = "pending"
	PaymentStatusAccepted = "accepted"
	PaymentStatusClosed   = "closed"
)

// UserSubscription represents a user's subscription status
type UserSubscription struct {
	UserID               int64     `json:"user_id"`
	ChatID               int64     `json:"chat_id"`
	Status               string    `json:"status"` // pending, accepted, closed
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"` // when the subscription expires
	PaymentID            string    `json:"payment_id"` // Stripe payment ID
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	StockCode            string    `json:"stock_code"` // Watched security, e.g. sh.600000
	LastReported         time.Time `json:"last_reported,omitempty"`
}
