package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// Signature headers by provider.
const (
	headerRazorpaySignature = "x-razorpay-signature"
	headerCashfreeSignature = "x-webhook-signature"
)

type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type cashfreeWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CfPaymentID json.Number `json:"cf_payment_id"`
		} `json:"payment"`
	} `json:"data"`
}

// ProviderWebhook handles POST /webhooks/:provider. The route is unauth-
// enticated; the provider's HMAC signature over the exact raw body is the
// only gate, and nothing is parsed before it passes.
func (h *Handlers) ProviderWebhook(c *gin.Context) {
	kind := models.ProviderKind(c.Param("provider"))
	provider := h.providers.Get(kind)
	if provider == nil || kind == models.ProviderUPI {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader(signatureHeader(kind))
	if err := provider.VerifyWebhook(payload, signature); err != nil {
		h.logger.Warn("webhook signature rejected", "provider", string(kind))
		if h.metrics != nil {
			h.metrics.WebhookEvents.WithLabelValues(string(kind), "bad_signature").Inc()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var (
		providerOrderID   string
		providerPaymentID string
		target            models.OrderStatus
		known             bool
	)
	switch kind {
	case models.ProviderRazorpay:
		var event razorpayWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		providerOrderID = event.Payload.Payment.Entity.OrderID
		if providerOrderID == "" {
			providerOrderID = event.Payload.Order.Entity.ID
		}
		providerPaymentID = event.Payload.Payment.Entity.ID
		target, known = razorpayEventStatus(event.Event)

	case models.ProviderCashfree:
		var event cashfreeWebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		providerOrderID = event.Data.Order.OrderID
		providerPaymentID = event.Data.Payment.CfPaymentID.String()
		target, known = cashfreeEventStatus(event.Type)
	}

	if !known {
		h.logger.Info("ignoring unhandled webhook event", "provider", string(kind))
		if h.metrics != nil {
			h.metrics.WebhookEvents.WithLabelValues(string(kind), "ignored").Inc()
		}
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.orders.ApplyProviderEvent(c.Request.Context(), kind, providerOrderID, target, providerPaymentID); err != nil {
		// Signature was valid; a 500 tells the provider to retry delivery.
		h.logger.Error("failed to apply webhook event",
			"provider", string(kind),
			"provider_order_id", providerOrderID,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func signatureHeader(kind models.ProviderKind) string {
	if kind == models.ProviderCashfree {
		return headerCashfreeSignature
	}
	return headerRazorpaySignature
}

func razorpayEventStatus(event string) (models.OrderStatus, bool) {
	switch event {
	case "payment.authorized", "payment.captured", "order.paid":
		return models.OrderStatusPaid, true
	case "payment.failed":
		return models.OrderStatusFailed, true
	}
	return "", false
}

func cashfreeEventStatus(eventType string) (models.OrderStatus, bool) {
	switch eventType {
	case "PAYMENT_SUCCESS", "PAYMENT_SUCCESS_WEBHOOK":
		return models.OrderStatusPaid, true
	case "PAYMENT_FAILED", "PAYMENT_FAILED_WEBHOOK",
		"PAYMENT_USER_DROPPED", "PAYMENT_USER_DROPPED_WEBHOOK":
		return models.OrderStatusFailed, true
	}
	return "", false
}
