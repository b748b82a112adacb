package repository

import (
	"context"
	"errors"

	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// ErrAlreadyTransitioned is returned by TransitionStatus when the order is
// already in the requested target status. Webhook replays treat it as a
// no-op; seller verification treats it as a conflict.
var ErrAlreadyTransitioned = errors.New("order already in target status")

// OrderStore is the persistence contract for orders. Orders are never
// deleted once a purchase attempt is underway; Delete exists solely so
// creation can be rolled back when a later step of the same call fails.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByProviderOrderID(ctx context.Context, kind models.ProviderKind, providerOrderID string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error)
	ListBySeller(ctx context.Context, sellerID string, status models.OrderStatus) ([]*models.Order, error)

	// TransitionStatus moves an order to the target status if and only if
	// its current status is one of from. providerPaymentID, when non-empty,
	// is recorded on the provider ref. Returns ErrAlreadyTransitioned when
	// the order already sits at to, apperrors.ErrNotFound when it does not
	// exist, and a ConflictError for any other current status.
	TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus, providerPaymentID string) (*models.Order, error)
}

// OrderCache caches orders for the client-driven status polling loop.
type OrderCache interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id string) error
}

// RateLimiter bounds request rates per client identifier. Backed by an
// external store so limits survive restarts and hold across instances.
type RateLimiter interface {
	Allow(ctx context.Context, scope, clientID string) (bool, error)
}
