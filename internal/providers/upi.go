package providers

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// UPIProvider issues UPI deep links for peer-to-peer bank transfers.
//
// UPI payments happen entirely out of band: once the buyer opens the deep
// link in a UPI app, this system never hears from a payment network again.
// There is no signature, no webhook, no status endpoint. VerifyPayment
// therefore always returns OutcomeIndeterminate, which routes the order
// into manual seller verification — the system cannot assert UPI payment
// truth, so that liability deliberately sits with the seller.
type UPIProvider struct {
	vpa       string
	payeeName string
}

// NewUPIProvider creates the UPI deep-link adapter.
func NewUPIProvider(cfg config.UPIConfig) *UPIProvider {
	return &UPIProvider{
		vpa:       cfg.VPA,
		payeeName: cfg.PayeeName,
	}
}

func (p *UPIProvider) Kind() models.ProviderKind { return models.ProviderUPI }

// CreateOrder builds the upi://pay deep link encoding payee, amount, and a
// synthetic payment reference tied to the order.
func (p *UPIProvider) CreateOrder(ctx context.Context, order *models.Order, buyer *models.User) (*models.ProviderHandle, error) {
	reference := "upi_" + order.ID

	amount := decimal.NewFromInt(order.Amount).Div(decimal.NewFromInt(100))

	params := url.Values{}
	params.Set("pa", p.vpa)
	params.Set("pn", p.payeeName)
	params.Set("am", amount.StringFixed(2))
	params.Set("cu", order.Currency)
	params.Set("tn", reference)

	return &models.ProviderHandle{
		Kind:            models.ProviderUPI,
		ProviderOrderID: reference,
		UPILink:         "upi://pay?" + params.Encode(),
	}, nil
}

// VerifyPayment always returns indeterminate: peer UPI transfers carry no
// proof this system can check.
func (p *UPIProvider) VerifyPayment(ctx context.Context, order *models.Order, evidence *models.PaymentEvidence) (Outcome, error) {
	return OutcomeIndeterminate, nil
}

// VerifyWebhook is unsupported: UPI sends no webhooks.
func (p *UPIProvider) VerifyWebhook(payload []byte, signature string) error {
	return apperrors.NewSignatureError("upi")
}
