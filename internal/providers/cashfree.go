package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// CashfreeProvider integrates Cashfree Payment Gateway over its REST API.
// There is no official Go SDK; the client follows the documented /pg
// endpoints directly.
type CashfreeProvider struct {
	baseURL       string
	appID         string
	secretKey     string
	webhookSecret string
	apiVersion    string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewCashfreeProvider creates the Cashfree adapter.
func NewCashfreeProvider(cfg config.CashfreeConfig, logger *slog.Logger) *CashfreeProvider {
	return &CashfreeProvider{
		baseURL:       cfg.BaseURL,
		appID:         cfg.AppID,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		apiVersion:    cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "cashfree")),
	}
}

func (p *CashfreeProvider) Kind() models.ProviderKind { return models.ProviderCashfree }

type cashfreeOrderRequest struct {
	OrderID         string           `json:"order_id"`
	OrderAmount     float64          `json:"order_amount"`
	OrderCurrency   string           `json:"order_currency"`
	CustomerDetails cashfreeCustomer `json:"customer_details"`
	OrderNote       string           `json:"order_note,omitempty"`
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderResponse struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
	Message          string `json:"message"`
}

// CreateOrder creates the Cashfree-side order and returns its payment
// session token. Cashfree wants the amount in rupees, not paise.
func (p *CashfreeProvider) CreateOrder(ctx context.Context, order *models.Order, buyer *models.User) (*models.ProviderHandle, error) {
	providerOrderID := fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), order.BuyerID)

	reqBody := cashfreeOrderRequest{
		OrderID:       providerOrderID,
		OrderAmount:   float64(order.Amount) / 100,
		OrderCurrency: order.Currency,
		CustomerDetails: cashfreeCustomer{
			CustomerID:    order.BuyerID,
			CustomerName:  buyer.Name,
			CustomerEmail: buyer.Email,
			CustomerPhone: "9999999999",
		},
		OrderNote: "Payment for listing " + order.ListingID,
	}

	var resp cashfreeOrderResponse
	if err := p.do(ctx, http.MethodPost, "/orders", reqBody, &resp); err != nil {
		p.logger.Error("cashfree order creation failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
		return nil, err
	}

	p.logger.Info("cashfree order created",
		slog.String("order_id", order.ID),
		slog.String("cashfree_order_id", resp.OrderID),
		slog.String("order_status", resp.OrderStatus))

	return &models.ProviderHandle{
		Kind:             models.ProviderCashfree,
		ProviderOrderID:  resp.OrderID,
		PaymentSessionID: resp.PaymentSessionID,
	}, nil
}

// VerifyPayment looks the order up on Cashfree's order-status endpoint and
// maps order_status PAID to confirmed, anything else to rejected.
func (p *CashfreeProvider) VerifyPayment(ctx context.Context, order *models.Order, evidence *models.PaymentEvidence) (Outcome, error) {
	providerOrderID := order.Provider.OrderID
	if evidence != nil && evidence.CashfreeOrderID != "" {
		if evidence.CashfreeOrderID != order.Provider.OrderID {
			return OutcomeRejected, nil
		}
		providerOrderID = evidence.CashfreeOrderID
	}

	var resp cashfreeOrderResponse
	if err := p.do(ctx, http.MethodGet, "/orders/"+providerOrderID, nil, &resp); err != nil {
		return OutcomeRejected, err
	}

	p.logger.Info("cashfree order status fetched",
		slog.String("order_id", order.ID),
		slog.String("order_status", resp.OrderStatus))

	if resp.OrderStatus == "PAID" {
		return OutcomeConfirmed, nil
	}
	return OutcomeRejected, nil
}

// VerifyWebhook checks the x-webhook-signature header, HMAC-SHA256 hex over
// the raw body.
func (p *CashfreeProvider) VerifyWebhook(payload []byte, signature string) error {
	if signature == "" {
		return apperrors.NewSignatureError("cashfree")
	}

	expected := signHex(p.webhookSecret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperrors.NewSignatureError("cashfree")
	}
	return nil
}

func (p *CashfreeProvider) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", p.appID)
	req.Header.Set("x-client-secret", p.secretKey)
	req.Header.Set("x-api-version", p.apiVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.NewProviderError("cashfree", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp cashfreeOrderResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return apperrors.NewProviderError("cashfree", fmt.Errorf("%s %s: %s", method, path, msg))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
