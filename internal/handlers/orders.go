package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// CreateOrder handles POST /api/v1/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), c.GetString("user_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrderStatus handles GET /api/v1/orders/:id/status
func (h *Handlers) GetOrderStatus(c *gin.Context) {
	order, err := h.orders.GetOrderStatus(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":   order.ID,
		"status":     order.Status,
		"updated_at": order.UpdatedAt,
	})
}

// ConfirmPayment handles POST /api/v1/orders/:id/confirm
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	order, err := h.orders.ConfirmPayment(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// VerifyOrder handles POST /api/v1/orders/:id/verify
func (h *Handlers) VerifyOrder(c *gin.Context) {
	var req models.VerifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approve is required"})
		return
	}

	order, err := h.orders.VerifySellerOrder(c.Request.Context(), c.GetString("user_id"), c.Param("id"), *req.Approve)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// VerifyPayment handles POST /api/v1/orders/:id/verify-payment
func (h *Handlers) VerifyPayment(c *gin.Context) {
	var evidence models.PaymentEvidence
	if err := c.ShouldBindJSON(&evidence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.VerifyPayment(c.Request.Context(), c.GetString("user_id"), c.Param("id"), &evidence)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListPurchases handles GET /api/v1/purchases
func (h *Handlers) ListPurchases(c *gin.Context) {
	purchases, err := h.orders.ListPurchases(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchases": purchases,
		"count":     len(purchases),
	})
}

// ListPendingVerification handles GET /api/v1/orders/pending-verification
func (h *Handlers) ListPendingVerification(c *gin.Context) {
	orders, err := h.orders.ListPendingVerification(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

func (h *Handlers) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case errors.Is(err, apperrors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	var signatureErr *apperrors.SignatureError
	if errors.As(err, &signatureErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": signatureErr.Error()})
		return
	}

	var authErr *apperrors.AuthError
	if errors.As(err, &authErr) {
		status := http.StatusUnauthorized
		if authErr.Forbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": authErr.Message})
		return
	}

	var conflictErr *apperrors.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Message})
		return
	}

	var providerErr *apperrors.ProviderError
	if errors.As(err, &providerErr) {
		// Provider detail stays in the logs, never in the response.
		h.logger.Error("payment provider error", "provider", providerErr.Provider, "error", providerErr.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment provider error"})
		return
	}

	h.logger.Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
