package models

// Listing is the slice of the listing store this service needs: enough to
// price an order and reject self-purchases and inactive listings.
type Listing struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency"`
	OwnerID  string   `json:"owner_id"`
	IsActive bool     `json:"is_active"`
	Images   []string `json:"images,omitempty"`
}

// User is the slice of the user store this service needs.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateOrderRequest starts a purchase for a listing with a chosen payment
// method.
type CreateOrderRequest struct {
	ListingID string       `json:"listing_id" binding:"required"`
	Method    ProviderKind `json:"method"`
}

// ProviderHandle is the provider-specific payable artifact handed back to
// the buyer: a deep link for UPI, an order id for Razorpay checkout, an
// order id plus payment session for Cashfree.
type ProviderHandle struct {
	Kind             ProviderKind `json:"kind"`
	ProviderOrderID  string       `json:"provider_order_id"`
	PaymentSessionID string       `json:"payment_session_id,omitempty"`
	UPILink          string       `json:"upi_link,omitempty"`
	KeyID            string       `json:"key_id,omitempty"`
}

// CreateOrderResponse is returned from POST /orders.
type CreateOrderResponse struct {
	Order   *Order          `json:"order"`
	Payment *ProviderHandle `json:"payment"`
	Listing *ListingSummary `json:"listing"`
}

// ListingSummary is the joined listing view on order listings.
type ListingSummary struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Price  float64  `json:"price"`
	Images []string `json:"images,omitempty"`
}

// UserSummary is the joined buyer view on the seller's verification queue.
type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderWithDetails is an order joined with its listing (and, for seller
// views, the buyer).
type OrderWithDetails struct {
	*Order
	Listing *ListingSummary `json:"listing,omitempty"`
	Buyer   *UserSummary    `json:"buyer,omitempty"`
}

// VerifyOrderRequest is the seller's approve/reject decision on an order
// awaiting manual verification.
type VerifyOrderRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// PaymentEvidence is buyer-supplied proof for synchronous verification:
// signature plus ids for Razorpay, the provider order id for Cashfree.
type PaymentEvidence struct {
	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
	CashfreeOrderID   string `json:"cashfree_order_id,omitempty"`
}
