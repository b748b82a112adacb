package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a purchase attempt.
type OrderStatus string

const (
	OrderStatusCreated             OrderStatus = "created"
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusPaid                OrderStatus = "paid"
	OrderStatusVerificationPending OrderStatus = "verification_pending"
	OrderStatusCompleted           OrderStatus = "completed"
	OrderStatusFailed              OrderStatus = "failed"
)

// Terminal reports whether no further transition is defined out of s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusCompleted, OrderStatusFailed:
		return true
	}
	return false
}

// ProviderKind discriminates which payment provider an order was created
// against. Stored as its own column so provider order ids are never
// ambiguous across providers.
type ProviderKind string

const (
	ProviderUPI      ProviderKind = "upi"
	ProviderRazorpay ProviderKind = "razorpay"
	ProviderCashfree ProviderKind = "cashfree"
)

// Valid reports whether k names a supported provider.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderUPI, ProviderRazorpay, ProviderCashfree:
		return true
	}
	return false
}

// ProviderRef correlates an order with the external provider's records.
// OrderID is the provider-side order id (for UPI, the synthetic payment
// reference embedded in the deep link); PaymentID is the provider-side
// payment/transaction id once one exists.
type ProviderRef struct {
	Kind      ProviderKind `json:"kind"`
	OrderID   string       `json:"order_id"`
	PaymentID string       `json:"payment_id,omitempty"`
}

// Order represents one purchase attempt for a listing. Amount is in the
// smallest currency unit (paise) and, like Currency, is fixed at creation.
type Order struct {
	ID        string      `json:"id"`
	BuyerID   string      `json:"buyer_id"`
	SellerID  string      `json:"seller_id"`
	ListingID string      `json:"listing_id"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	Status    OrderStatus `json:"status"`
	Provider  ProviderRef `json:"provider"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewOrderID generates an order identifier.
func NewOrderID() string {
	return "ord_" + uuid.NewString()
}
