package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
	"github.com/nearbuy/nearbuy-orders-service/internal/providers"
	"github.com/nearbuy/nearbuy-orders-service/internal/repository"
	"github.com/nearbuy/nearbuy-orders-service/internal/service"
)

const testWebhookSecret = "test_webhook_secret"

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type memStore struct {
	orders map[string]*models.Order
}

func newMemStore(orders ...*models.Order) *memStore {
	s := &memStore{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		clone := *o
		s.orders[o.ID] = &clone
	}
	return s
}

func (s *memStore) Insert(ctx context.Context, order *models.Order) error {
	clone := *order
	s.orders[order.ID] = &clone
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	delete(s.orders, id)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *memStore) GetByProviderOrderID(ctx context.Context, kind models.ProviderKind, providerOrderID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.Provider.Kind == kind && order.Provider.OrderID == providerOrderID {
			clone := *order
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *memStore) ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error) {
	var result []*models.Order
	for _, order := range s.orders {
		if order.BuyerID == buyerID {
			clone := *order
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (s *memStore) ListBySeller(ctx context.Context, sellerID string, status models.OrderStatus) ([]*models.Order, error) {
	var result []*models.Order
	for _, order := range s.orders {
		if order.SellerID == sellerID && order.Status == status {
			clone := *order
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (s *memStore) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus, providerPaymentID string) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	for _, f := range from {
		if order.Status == f {
			order.Status = to
			if providerPaymentID != "" {
				order.Provider.PaymentID = providerPaymentID
			}
			order.UpdatedAt = time.Now()
			clone := *order
			return &clone, nil
		}
	}
	if order.Status == to {
		clone := *order
		return &clone, repository.ErrAlreadyTransitioned
	}
	return nil, apperrors.NewConflictError(
		fmt.Sprintf("order is in status %s, cannot transition to %s", order.Status, to))
}

type stubListings struct{}

func (stubListings) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	return &models.Listing{ID: id, Title: "Listing", Price: 500, OwnerID: "seller_1", IsActive: true}, nil
}

type stubUsers struct{}

func (stubUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Name: "User", Email: id + "@example.com"}, nil
}

func webhookFixture(orders ...*models.Order) (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := newMemStore(orders...)
	registry := providers.NewRegistry(
		providers.NewRazorpayProvider(config.RazorpayConfig{
			KeyID:         "rzp_test",
			KeySecret:     "key_secret",
			WebhookSecret: testWebhookSecret,
		}, logger),
		providers.NewCashfreeProvider(config.CashfreeConfig{
			AppID:         "app",
			SecretKey:     "secret",
			WebhookSecret: testWebhookSecret,
			BaseURL:       "http://unused",
			APIVersion:    "2023-08-01",
		}, logger),
		providers.NewUPIProvider(config.UPIConfig{VPA: "seller@upi"}),
	)

	svc := service.NewOrderService(service.Deps{
		Store:     store,
		Providers: registry,
		Listings:  stubListings{},
		Users:     stubUsers{},
		Logger:    logger,
	})

	h := NewHandlers(svc, registry, nil, nil, logger)
	router := gin.New()
	router.POST("/webhooks/:provider", h.ProviderWebhook)
	return router, store
}

func pendingRazorpayOrder() *models.Order {
	return &models.Order{
		ID:       "ord_1",
		BuyerID:  "buyer_1",
		SellerID: "seller_1",
		Amount:   50000,
		Currency: "INR",
		Status:   models.OrderStatusPending,
		Provider: models.ProviderRef{
			Kind:    models.ProviderRazorpay,
			OrderID: "order_ext_1",
		},
	}
}

func razorpayEventBody(event, orderID, paymentID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"order_id": orderID,
				},
			},
		},
	})
	return body
}

func postWebhook(router *gin.Engine, provider string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+provider, bytes.NewReader(body))
	if signature != "" {
		header := headerRazorpaySignature
		if provider == "cashfree" {
			header = headerCashfreeSignature
		}
		req.Header.Set(header, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRazorpayWebhook_MarksPaid(t *testing.T) {
	router, store := webhookFixture(pendingRazorpayOrder())

	body := razorpayEventBody("payment.captured", "order_ext_1", "pay_9")
	w := postWebhook(router, "razorpay", body, sign(testWebhookSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	order, _ := store.GetByID(context.Background(), "ord_1")
	if order.Status != models.OrderStatusPaid {
		t.Errorf("Expected paid, got %s", order.Status)
	}
	if order.Provider.PaymentID != "pay_9" {
		t.Errorf("Expected payment id pay_9, got %q", order.Provider.PaymentID)
	}
}

func TestRazorpayWebhook_FailureEvent(t *testing.T) {
	router, store := webhookFixture(pendingRazorpayOrder())

	body := razorpayEventBody("payment.failed", "order_ext_1", "pay_9")
	w := postWebhook(router, "razorpay", body, sign(testWebhookSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	order, _ := store.GetByID(context.Background(), "ord_1")
	if order.Status != models.OrderStatusFailed {
		t.Errorf("Expected failed, got %s", order.Status)
	}
}

func TestRazorpayWebhook_InvalidSignature(t *testing.T) {
	router, store := webhookFixture(pendingRazorpayOrder())

	body := razorpayEventBody("payment.captured", "order_ext_1", "pay_9")
	w := postWebhook(router, "razorpay", body, sign("forged_secret", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	// No state change on a rejected signature.
	order, _ := store.GetByID(context.Background(), "ord_1")
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected order untouched, got %s", order.Status)
	}
}

func TestRazorpayWebhook_MissingSignature(t *testing.T) {
	router, _ := webhookFixture(pendingRazorpayOrder())

	body := razorpayEventBody("payment.captured", "order_ext_1", "pay_9")
	w := postWebhook(router, "razorpay", body, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestRazorpayWebhook_UnknownOrder(t *testing.T) {
	router, _ := webhookFixture()

	body := razorpayEventBody("payment.captured", "order_never_created", "pay_9")
	w := postWebhook(router, "razorpay", body, sign(testWebhookSecret, body))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for unknown order, got %d", w.Code)
	}
}

func TestRazorpayWebhook_UnhandledEventIgnored(t *testing.T) {
	router, store := webhookFixture(pendingRazorpayOrder())

	body := razorpayEventBody("refund.processed", "order_ext_1", "pay_9")
	w := postWebhook(router, "razorpay", body, sign(testWebhookSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "ignored" {
		t.Errorf("Expected status 'ignored', got %v", resp["status"])
	}

	order, _ := store.GetByID(context.Background(), "ord_1")
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected order untouched, got %s", order.Status)
	}
}

func TestCashfreeWebhook_MarksPaid(t *testing.T) {
	order := pendingRazorpayOrder()
	order.Provider = models.ProviderRef{Kind: models.ProviderCashfree, OrderID: "cf_order_1"}
	router, store := webhookFixture(order)

	body, _ := json.Marshal(map[string]interface{}{
		"type": "PAYMENT_SUCCESS",
		"data": map[string]interface{}{
			"order":   map[string]interface{}{"order_id": "cf_order_1"},
			"payment": map[string]interface{}{"cf_payment_id": 12345},
		},
	})
	w := postWebhook(router, "cashfree", body, sign(testWebhookSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	stored, _ := store.GetByID(context.Background(), "ord_1")
	if stored.Status != models.OrderStatusPaid {
		t.Errorf("Expected paid, got %s", stored.Status)
	}
	if stored.Provider.PaymentID != "12345" {
		t.Errorf("Expected payment id 12345, got %q", stored.Provider.PaymentID)
	}
}

func TestWebhook_UnknownProvider(t *testing.T) {
	router, _ := webhookFixture()

	w := postWebhook(router, "paypal", []byte("{}"), "sig")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	// UPI never sends webhooks; the route must not accept them either.
	w = postWebhook(router, "upi", []byte("{}"), "sig")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for upi, got %d", w.Code)
	}
}
