package providers

import (
	"context"

	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// Outcome is the result of verifying provider-supplied payment evidence.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	// OutcomeIndeterminate means the provider offers no proof either way.
	// The lifecycle controller routes such orders to manual seller
	// verification.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Provider is the uniform contract over the three payment integrations:
// create a provider-side payable artifact for an order, and verify
// buyer-supplied payment evidence.
type Provider interface {
	Kind() models.ProviderKind
	CreateOrder(ctx context.Context, order *models.Order, buyer *models.User) (*models.ProviderHandle, error)
	VerifyPayment(ctx context.Context, order *models.Order, evidence *models.PaymentEvidence) (Outcome, error)

	// VerifyWebhook checks a provider webhook signature against the raw
	// request body. Returns a SignatureError on mismatch.
	VerifyWebhook(payload []byte, signature string) error
}

// Registry resolves a provider adapter by kind.
type Registry map[models.ProviderKind]Provider

// NewRegistry builds a registry from the given adapters.
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Kind()] = p
	}
	return r
}

// Get returns the adapter for kind, or nil if unsupported.
func (r Registry) Get(kind models.ProviderKind) Provider {
	return r[kind]
}
