package providers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRazorpay() *RazorpayProvider {
	return NewRazorpayProvider(config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "test_key_secret",
		WebhookSecret: "test_webhook_secret",
	}, testLogger())
}

func razorpayOrder() *models.Order {
	return &models.Order{
		ID:       "ord_1",
		BuyerID:  "buyer_1",
		SellerID: "seller_1",
		Amount:   50000,
		Currency: "INR",
		Status:   models.OrderStatusCreated,
		Provider: models.ProviderRef{
			Kind:    models.ProviderRazorpay,
			OrderID: "order_rzp123",
		},
	}
}

func TestRazorpayVerifyPayment_ValidSignature(t *testing.T) {
	p := newTestRazorpay()
	order := razorpayOrder()

	signature := signHex("test_key_secret", []byte("order_rzp123|pay_abc"))
	outcome, err := p.VerifyPayment(context.Background(), order, &models.PaymentEvidence{
		RazorpayOrderID:   "order_rzp123",
		RazorpayPaymentID: "pay_abc",
		RazorpaySignature: signature,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeConfirmed {
		t.Errorf("Expected confirmed, got %s", outcome)
	}
}

func TestRazorpayVerifyPayment_MutatedSignature(t *testing.T) {
	p := newTestRazorpay()
	order := razorpayOrder()

	signature := signHex("test_key_secret", []byte("order_rzp123|pay_abc"))
	// Flip one byte of an otherwise valid signature.
	mutated := []byte(signature)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}

	outcome, err := p.VerifyPayment(context.Background(), order, &models.PaymentEvidence{
		RazorpayOrderID:   "order_rzp123",
		RazorpayPaymentID: "pay_abc",
		RazorpaySignature: string(mutated),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("Expected rejected, got %s", outcome)
	}
}

func TestRazorpayVerifyPayment_IncompleteEvidence(t *testing.T) {
	p := newTestRazorpay()
	order := razorpayOrder()

	tests := []struct {
		name     string
		evidence *models.PaymentEvidence
	}{
		{"nil evidence", nil},
		{"missing payment id", &models.PaymentEvidence{RazorpayOrderID: "order_rzp123", RazorpaySignature: "sig"}},
		{"missing signature", &models.PaymentEvidence{RazorpayOrderID: "order_rzp123", RazorpayPaymentID: "pay_abc"}},
		{"order id mismatch", &models.PaymentEvidence{RazorpayOrderID: "order_other", RazorpayPaymentID: "pay_abc", RazorpaySignature: "sig"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := p.VerifyPayment(context.Background(), order, tt.evidence)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if outcome != OutcomeRejected {
				t.Errorf("Expected rejected, got %s", outcome)
			}
		})
	}
}

func TestRazorpayVerifyWebhook(t *testing.T) {
	p := newTestRazorpay()
	payload := []byte(`{"event":"payment.captured"}`)

	if err := p.VerifyWebhook(payload, signHex("test_webhook_secret", payload)); err != nil {
		t.Errorf("Expected valid signature to pass, got %v", err)
	}

	err := p.VerifyWebhook(payload, signHex("wrong_secret", payload))
	if err == nil {
		t.Fatal("Expected error for wrong secret")
	}
	if _, ok := err.(*apperrors.SignatureError); !ok {
		t.Errorf("Expected SignatureError, got %T", err)
	}

	if err := p.VerifyWebhook(payload, ""); err == nil {
		t.Error("Expected error for missing signature")
	}
}
