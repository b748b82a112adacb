package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/clients"
	"github.com/nearbuy/nearbuy-orders-service/internal/events"
	"github.com/nearbuy/nearbuy-orders-service/internal/metrics"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
	"github.com/nearbuy/nearbuy-orders-service/internal/providers"
	"github.com/nearbuy/nearbuy-orders-service/internal/repository"
)

const rateLimitScopeCreate = "orders:create"

// Statuses an order can still be paid or failed out of. Once an order
// reaches verification_pending only the seller moves it, and terminal
// statuses never move.
var payableStatuses = []models.OrderStatus{
	models.OrderStatusCreated,
	models.OrderStatusPending,
}

// OrderService owns the order lifecycle: creation against a payment
// provider, status transitions driven by buyers, sellers and webhooks, and
// the read paths for polling and history.
type OrderService struct {
	store     repository.OrderStore
	cache     repository.OrderCache
	limiter   repository.RateLimiter
	providers providers.Registry
	listings  clients.ListingAPI
	users     clients.UserAPI
	notifier  clients.NotificationSender
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Deps bundles the collaborators of OrderService. Cache, limiter, notifier,
// publisher and metrics may be nil; the service degrades to doing without
// them.
type Deps struct {
	Store     repository.OrderStore
	Cache     repository.OrderCache
	Limiter   repository.RateLimiter
	Providers providers.Registry
	Listings  clients.ListingAPI
	Users     clients.UserAPI
	Notifier  clients.NotificationSender
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewOrderService creates the order lifecycle service.
func NewOrderService(d Deps) *OrderService {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		store:     d.Store,
		cache:     d.Cache,
		limiter:   d.Limiter,
		providers: d.Providers,
		listings:  d.Listings,
		users:     d.Users,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    logger.With(slog.String("component", "order-service")),
	}
}

// CreateOrder starts a purchase: price the listing, create the
// provider-side order first, then persist locally. If any later step fails
// the local row is removed again, so a stored order always has a live
// provider reference.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID string, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if err := s.allowCreate(ctx, buyerID); err != nil {
		return nil, err
	}
	if err := validateMethod(req.Method); err != nil {
		return nil, err
	}
	provider := s.providers.Get(req.Method)
	if provider == nil {
		return nil, apperrors.NewValidationError("method", fmt.Sprintf("payment method %s is not enabled", req.Method))
	}

	listing, err := s.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}
	if err := validatePurchase(listing, buyerID); err != nil {
		return nil, err
	}

	buyer, err := s.users.GetUser(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("fetch buyer %s: %w", buyerID, err)
	}

	currency := listing.Currency
	if currency == "" {
		currency = "INR"
	}
	now := time.Now()
	order := &models.Order{
		ID:        models.NewOrderID(),
		BuyerID:   buyerID,
		SellerID:  listing.OwnerID,
		ListingID: listing.ID,
		Amount:    ToPaise(listing.Price),
		Currency:  currency,
		Status:    models.OrderStatusCreated,
		Provider:  models.ProviderRef{Kind: req.Method},
		CreatedAt: now,
		UpdatedAt: now,
	}

	handle, err := provider.CreateOrder(ctx, order, buyer)
	if err != nil {
		return nil, err
	}
	order.Provider.OrderID = handle.ProviderOrderID

	if err := s.store.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	// UPI has no provider-side state to wait on: the order goes straight
	// to pending, where it sits until the buyer confirms.
	if req.Method == models.ProviderUPI {
		updated, err := s.store.TransitionStatus(ctx, order.ID, []models.OrderStatus{models.OrderStatusCreated}, models.OrderStatusPending, "")
		if err != nil {
			if delErr := s.store.Delete(ctx, order.ID); delErr != nil {
				s.logger.Error("failed to roll back order after transition failure",
					slog.String("order_id", order.ID),
					slog.Any("error", delErr))
			}
			return nil, fmt.Errorf("mark order pending: %w", err)
		}
		order = updated
	}

	s.cacheOrder(ctx, order)
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(string(order.Provider.Kind)).Inc()
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.Error("failed to publish order created event",
				slog.String("order_id", order.ID),
				slog.Any("error", err))
		}
	}
	s.notifyUser(order.SellerID, "New order received",
		fmt.Sprintf("Your listing %q has a new order %s.", listing.Title, order.ID),
		map[string]string{"order_id": order.ID, "listing_id": listing.ID})

	s.logger.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("buyer_id", buyerID),
		slog.String("provider", string(order.Provider.Kind)),
		slog.Int64("amount", order.Amount))

	return &models.CreateOrderResponse{
		Order:   order,
		Payment: handle,
		Listing: listingSummary(listing),
	}, nil
}

// GetOrderStatus returns an order for its buyer, serving the client-driven
// polling loop from cache when possible.
func (s *OrderService) GetOrderStatus(ctx context.Context, buyerID, orderID string) (*models.Order, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, orderID)
		if err != nil {
			s.logger.Warn("order cache read failed",
				slog.String("order_id", orderID),
				slog.Any("error", err))
		}
		if cached != nil {
			if cached.BuyerID != buyerID {
				return nil, apperrors.NewForbiddenError("order belongs to another buyer")
			}
			return cached, nil
		}
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewForbiddenError("order belongs to another buyer")
	}
	s.cacheOrder(ctx, order)
	return order, nil
}

// ConfirmPayment is the buyer's "I have paid" signal for UPI orders. It is
// a claim, not proof: the order moves to verification_pending and waits for
// the seller. Repeated confirms are no-ops.
func (s *OrderService) ConfirmPayment(ctx context.Context, buyerID, orderID string) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewForbiddenError("order belongs to another buyer")
	}
	if order.Provider.Kind != models.ProviderUPI {
		return nil, apperrors.NewValidationError("order_id", "confirmation applies to upi orders only")
	}

	reference := fmt.Sprintf("upi_confirmed_%d", time.Now().UnixMilli())
	updated, err := s.store.TransitionStatus(ctx, orderID, payableStatuses, models.OrderStatusVerificationPending, reference)
	if errors.Is(err, repository.ErrAlreadyTransitioned) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, order.Status)
	s.notifyUser(updated.SellerID, "Payment awaiting verification",
		fmt.Sprintf("The buyer reports payment for order %s. Please verify and approve.", updated.ID),
		map[string]string{"order_id": updated.ID})
	return updated, nil
}

// VerifySellerOrder applies the seller's decision on an order awaiting
// manual verification: approve completes it, reject fails it. An order
// already decided is a conflict, never silently re-decided.
func (s *OrderService) VerifySellerOrder(ctx context.Context, sellerID, orderID string, approve bool) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != sellerID {
		return nil, apperrors.NewForbiddenError("order belongs to another seller")
	}

	target := models.OrderStatusCompleted
	if !approve {
		target = models.OrderStatusFailed
	}
	from := []models.OrderStatus{models.OrderStatusVerificationPending}
	updated, err := s.store.TransitionStatus(ctx, orderID, from, target, "")
	if errors.Is(err, repository.ErrAlreadyTransitioned) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order already %s", target))
	}
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, updated, order.Status)
	subject, body := "Payment verified", fmt.Sprintf("The seller confirmed payment for order %s.", updated.ID)
	if !approve {
		subject, body = "Payment rejected", fmt.Sprintf("The seller could not verify payment for order %s.", updated.ID)
	}
	s.notifyUser(updated.BuyerID, subject, body, map[string]string{"order_id": updated.ID})
	return updated, nil
}

// VerifyPayment checks buyer-supplied payment evidence with the order's
// provider and advances the order accordingly: confirmed evidence marks it
// paid, indeterminate evidence (UPI) routes it to seller verification, and
// rejected evidence fails the order and returns a hard 400.
func (s *OrderService) VerifyPayment(ctx context.Context, buyerID, orderID string, evidence *models.PaymentEvidence) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, apperrors.NewForbiddenError("order belongs to another buyer")
	}

	provider := s.providers.Get(order.Provider.Kind)
	if provider == nil {
		return nil, apperrors.NewValidationError("order_id", fmt.Sprintf("payment method %s is not enabled", order.Provider.Kind))
	}
	outcome, err := provider.VerifyPayment(ctx, order, evidence)
	if err != nil {
		return nil, err
	}

	switch outcome {
	case providers.OutcomeConfirmed:
		updated, err := s.store.TransitionStatus(ctx, orderID, payableStatuses, models.OrderStatusPaid, evidence.RazorpayPaymentID)
		if errors.Is(err, repository.ErrAlreadyTransitioned) {
			return updated, nil
		}
		if err != nil {
			return nil, err
		}
		s.afterTransition(ctx, updated, order.Status)
		s.notifyUser(updated.SellerID, "Payment received",
			fmt.Sprintf("Payment for order %s was confirmed.", updated.ID),
			map[string]string{"order_id": updated.ID})
		return updated, nil

	case providers.OutcomeIndeterminate:
		return s.ConfirmPayment(ctx, buyerID, orderID)

	default:
		failed, err := s.store.TransitionStatus(ctx, orderID, payableStatuses, models.OrderStatusFailed, "")
		if err == nil {
			s.afterTransition(ctx, failed, order.Status)
		} else if !errors.Is(err, repository.ErrAlreadyTransitioned) {
			s.logger.Warn("could not mark order failed after rejected verification",
				slog.String("order_id", orderID),
				slog.Any("error", err))
		}
		return nil, apperrors.NewSignatureError(string(order.Provider.Kind))
	}
}

// ApplyProviderEvent applies a webhook-reported status to the order
// correlated by provider order id. Unknown orders, replays and stale events
// are logged no-ops so providers stop retrying; only store failures
// propagate.
func (s *OrderService) ApplyProviderEvent(ctx context.Context, kind models.ProviderKind, providerOrderID string, target models.OrderStatus, providerPaymentID string) error {
	order, err := s.store.GetByProviderOrderID(ctx, kind, providerOrderID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Warn("webhook for unknown order",
			slog.String("provider", string(kind)),
			slog.String("provider_order_id", providerOrderID))
		s.countWebhook(kind, "unknown_order")
		return nil
	}
	if err != nil {
		return err
	}

	from := payableStatuses
	if target == models.OrderStatusFailed {
		from = append([]models.OrderStatus{models.OrderStatusVerificationPending}, payableStatuses...)
	}

	updated, err := s.store.TransitionStatus(ctx, order.ID, from, target, providerPaymentID)
	if errors.Is(err, repository.ErrAlreadyTransitioned) {
		s.logger.Info("webhook replay ignored",
			slog.String("order_id", order.ID),
			slog.String("status", string(target)))
		s.countWebhook(kind, "replay")
		return nil
	}
	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		s.logger.Warn("webhook event stale for current status",
			slog.String("order_id", order.ID),
			slog.String("current_status", string(order.Status)),
			slog.String("event_status", string(target)))
		s.countWebhook(kind, "stale")
		return nil
	}
	if err != nil {
		return err
	}

	s.afterTransition(ctx, updated, order.Status)
	s.countWebhook(kind, "applied")

	if target == models.OrderStatusPaid {
		s.notifyUser(updated.SellerID, "Payment received",
			fmt.Sprintf("Payment for order %s was confirmed.", updated.ID),
			map[string]string{"order_id": updated.ID})
	} else {
		s.notifyUser(updated.BuyerID, "Payment failed",
			fmt.Sprintf("Payment for order %s failed. You have not been charged on a failed payment.", updated.ID),
			map[string]string{"order_id": updated.ID})
	}
	return nil
}

// ListPurchases returns the buyer's order history, newest first, each order
// joined with a listing summary when the listing is still resolvable.
func (s *OrderService) ListPurchases(ctx context.Context, buyerID string) ([]*models.OrderWithDetails, error) {
	orders, err := s.store.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	result := make([]*models.OrderWithDetails, 0, len(orders))
	for _, order := range orders {
		detail := &models.OrderWithDetails{Order: order}
		listing, err := s.listings.GetListing(ctx, order.ListingID)
		if err != nil {
			s.logger.Warn("failed to resolve listing for purchase history",
				slog.String("order_id", order.ID),
				slog.String("listing_id", order.ListingID),
				slog.Any("error", err))
		} else {
			detail.Listing = listingSummary(listing)
		}
		result = append(result, detail)
	}
	return result, nil
}

// ListPendingVerification returns the seller's verification queue: orders
// whose buyers claim UPI payment, joined with listing and buyer details so
// the seller can check their bank statement against a name.
func (s *OrderService) ListPendingVerification(ctx context.Context, sellerID string) ([]*models.OrderWithDetails, error) {
	orders, err := s.store.ListBySeller(ctx, sellerID, models.OrderStatusVerificationPending)
	if err != nil {
		return nil, err
	}

	result := make([]*models.OrderWithDetails, 0, len(orders))
	for _, order := range orders {
		detail := &models.OrderWithDetails{Order: order}
		if listing, err := s.listings.GetListing(ctx, order.ListingID); err == nil {
			detail.Listing = listingSummary(listing)
		}
		if buyer, err := s.users.GetUser(ctx, order.BuyerID); err == nil {
			detail.Buyer = &models.UserSummary{Name: buyer.Name, Email: buyer.Email}
		}
		result = append(result, detail)
	}
	return result, nil
}

func (s *OrderService) allowCreate(ctx context.Context, buyerID string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, rateLimitScopeCreate, buyerID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request",
			slog.String("buyer_id", buyerID),
			slog.Any("error", err))
		return nil
	}
	if !allowed {
		return apperrors.ErrRateLimited
	}
	return nil
}

// afterTransition runs the side effects of a successful status change.
// None of them may fail the transition itself; the row is already updated.
func (s *OrderService) afterTransition(ctx context.Context, order *models.Order, previous models.OrderStatus) {
	s.cacheOrder(ctx, order)
	if s.metrics != nil {
		s.metrics.OrderTransitions.WithLabelValues(string(order.Status)).Inc()
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderStatusChanged(ctx, order, previous); err != nil {
			s.logger.Error("failed to publish status change event",
				slog.String("order_id", order.ID),
				slog.Any("error", err))
		}
	}
	s.logger.Info("order status changed",
		slog.String("order_id", order.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(order.Status)))
}

func (s *OrderService) cacheOrder(ctx context.Context, order *models.Order) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, order); err != nil {
		s.logger.Warn("order cache write failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
	}
}

func (s *OrderService) countWebhook(kind models.ProviderKind, result string) {
	if s.metrics != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(kind), result).Inc()
	}
}

func (s *OrderService) notifyUser(userID, subject, body string, meta map[string]string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to resolve notification recipient",
				slog.String("user_id", userID),
				slog.Any("error", err))
			return
		}
		if err := s.notifier.Send(ctx, &clients.Notification{
			Recipient: user.Email,
			Subject:   subject,
			Body:      body,
			Metadata:  meta,
		}); err != nil {
			s.logger.Warn("failed to send notification",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}()
}

func listingSummary(listing *models.Listing) *models.ListingSummary {
	return &models.ListingSummary{
		ID:     listing.ID,
		Title:  listing.Title,
		Price:  listing.Price,
		Images: listing.Images,
	}
}
