package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

func newTestCashfree(baseURL string) *CashfreeProvider {
	return NewCashfreeProvider(config.CashfreeConfig{
		AppID:         "test_app",
		SecretKey:     "test_secret",
		WebhookSecret: "test_webhook_secret",
		BaseURL:       baseURL,
		APIVersion:    "2023-08-01",
	}, testLogger())
}

func cashfreeOrder(providerOrderID string) *models.Order {
	return &models.Order{
		ID:       "ord_cf1",
		BuyerID:  "buyer_1",
		Amount:   50000,
		Currency: "INR",
		Provider: models.ProviderRef{
			Kind:    models.ProviderCashfree,
			OrderID: providerOrderID,
		},
	}
}

func TestCashfreeCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "test_app" {
			t.Errorf("Expected x-client-id header, got %q", r.Header.Get("x-client-id"))
		}
		if r.Header.Get("x-api-version") != "2023-08-01" {
			t.Errorf("Expected x-api-version header, got %q", r.Header.Get("x-api-version"))
		}

		var req cashfreeOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.OrderAmount != 500 {
			t.Errorf("Expected order_amount 500 rupees, got %v", req.OrderAmount)
		}
		if req.CustomerDetails.CustomerID != "buyer_1" {
			t.Errorf("Expected customer_id buyer_1, got %s", req.CustomerDetails.CustomerID)
		}

		json.NewEncoder(w).Encode(cashfreeOrderResponse{
			OrderID:          req.OrderID,
			PaymentSessionID: "session_xyz",
			OrderStatus:      "ACTIVE",
		})
	}))
	defer srv.Close()

	p := newTestCashfree(srv.URL)
	handle, err := p.CreateOrder(context.Background(), cashfreeOrder(""), &models.User{
		ID:    "buyer_1",
		Name:  "Asha",
		Email: "asha@example.com",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if handle.ProviderOrderID == "" {
		t.Error("Expected provider order id")
	}
	if handle.PaymentSessionID != "session_xyz" {
		t.Errorf("Expected payment session id, got %s", handle.PaymentSessionID)
	}
}

func TestCashfreeVerifyPayment(t *testing.T) {
	tests := []struct {
		name        string
		orderStatus string
		want        Outcome
	}{
		{"paid order", "PAID", OutcomeConfirmed},
		{"active order", "ACTIVE", OutcomeRejected},
		{"expired order", "EXPIRED", OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/orders/cf_order_1" {
					t.Errorf("Unexpected path: %s", r.URL.Path)
				}
				json.NewEncoder(w).Encode(cashfreeOrderResponse{
					OrderID:     "cf_order_1",
					OrderStatus: tt.orderStatus,
				})
			}))
			defer srv.Close()

			p := newTestCashfree(srv.URL)
			outcome, err := p.VerifyPayment(context.Background(), cashfreeOrder("cf_order_1"), nil)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if outcome != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, outcome)
			}
		})
	}
}

func TestCashfreeVerifyPayment_EvidenceMismatch(t *testing.T) {
	p := newTestCashfree("http://unused")
	outcome, err := p.VerifyPayment(context.Background(), cashfreeOrder("cf_order_1"), &models.PaymentEvidence{
		CashfreeOrderID: "cf_order_other",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("Expected rejected for mismatched order id, got %s", outcome)
	}
}

func TestCashfreeCreateOrder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(cashfreeOrderResponse{Message: "authentication failed"})
	}))
	defer srv.Close()

	p := newTestCashfree(srv.URL)
	_, err := p.CreateOrder(context.Background(), cashfreeOrder(""), &models.User{ID: "buyer_1"})
	if err == nil {
		t.Fatal("Expected error")
	}
	var providerErr *apperrors.ProviderError
	if !errors.As(err, &providerErr) {
		t.Errorf("Expected ProviderError, got %T", err)
	}
}

func TestCashfreeVerifyWebhook(t *testing.T) {
	p := newTestCashfree("http://unused")
	payload := []byte(`{"type":"PAYMENT_SUCCESS"}`)

	if err := p.VerifyWebhook(payload, signHex("test_webhook_secret", payload)); err != nil {
		t.Errorf("Expected valid signature to pass, got %v", err)
	}
	if err := p.VerifyWebhook(payload, "deadbeef"); err == nil {
		t.Error("Expected error for invalid signature")
	}
}
