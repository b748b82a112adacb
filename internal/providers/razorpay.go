package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// RazorpayProvider integrates Razorpay checkout: orders are created through
// the Razorpay SDK and payments verified by recomputing the checkout
// signature.
type RazorpayProvider struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *slog.Logger
}

// NewRazorpayProvider creates the Razorpay adapter.
func NewRazorpayProvider(cfg config.RazorpayConfig, logger *slog.Logger) *RazorpayProvider {
	return &RazorpayProvider{
		client:        razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.With(slog.String("component", "razorpay")),
	}
}

func (p *RazorpayProvider) Kind() models.ProviderKind { return models.ProviderRazorpay }

// CreateOrder creates the Razorpay-side order object. Amount is already in
// paise, which is the unit Razorpay expects.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, order *models.Order, buyer *models.User) (*models.ProviderHandle, error) {
	data := map[string]interface{}{
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.ID,
		"notes": map[string]interface{}{
			"listing_id": order.ListingID,
			"buyer_id":   order.BuyerID,
		},
	}

	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		p.logger.Error("razorpay order creation failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
		return nil, apperrors.NewProviderError("razorpay", err)
	}

	providerOrderID, ok := body["id"].(string)
	if !ok || providerOrderID == "" {
		return nil, apperrors.NewProviderError("razorpay",
			fmt.Errorf("order id missing in response"))
	}

	p.logger.Info("razorpay order created",
		slog.String("order_id", order.ID),
		slog.String("razorpay_order_id", providerOrderID))

	return &models.ProviderHandle{
		Kind:            models.ProviderRazorpay,
		ProviderOrderID: providerOrderID,
		KeyID:           p.keyID,
	}, nil
}

// VerifyPayment recomputes the checkout signature, HMAC-SHA256 over
// "orderID|paymentID" keyed with the API secret, and compares it to the
// buyer-supplied one in constant time. Forged signatures are the threat
// here, so a timing-safe compare is mandatory.
func (p *RazorpayProvider) VerifyPayment(ctx context.Context, order *models.Order, evidence *models.PaymentEvidence) (Outcome, error) {
	if evidence == nil || evidence.RazorpayOrderID == "" || evidence.RazorpayPaymentID == "" || evidence.RazorpaySignature == "" {
		return OutcomeRejected, nil
	}
	if evidence.RazorpayOrderID != order.Provider.OrderID {
		p.logger.Warn("evidence order id does not match order",
			slog.String("order_id", order.ID),
			slog.String("evidence_order_id", evidence.RazorpayOrderID))
		return OutcomeRejected, nil
	}

	expected := signHex(p.keySecret, []byte(evidence.RazorpayOrderID+"|"+evidence.RazorpayPaymentID))
	if !hmac.Equal([]byte(expected), []byte(evidence.RazorpaySignature)) {
		return OutcomeRejected, nil
	}
	return OutcomeConfirmed, nil
}

// VerifyWebhook checks the x-razorpay-signature header, HMAC-SHA256 hex
// over the raw body.
func (p *RazorpayProvider) VerifyWebhook(payload []byte, signature string) error {
	if signature == "" {
		return apperrors.NewSignatureError("razorpay")
	}

	expected := signHex(p.webhookSecret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.NewSignatureError("razorpay")
	}
	return nil
}

func signHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
