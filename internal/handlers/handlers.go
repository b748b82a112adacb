package handlers

import (
	"database/sql"
	"log/slog"

	"github.com/nearbuy/nearbuy-orders-service/internal/metrics"
	"github.com/nearbuy/nearbuy-orders-service/internal/providers"
	"github.com/nearbuy/nearbuy-orders-service/internal/service"
)

// Handlers holds all HTTP handlers for the orders service.
type Handlers struct {
	orders    *service.OrderService
	providers providers.Registry
	db        *sql.DB
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandlers creates a new handlers instance. db may be nil; readiness
// then reports ready without a ping.
func NewHandlers(orders *service.OrderService, registry providers.Registry, db *sql.DB, m *metrics.Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		orders:    orders,
		providers: registry,
		db:        db,
		metrics:   m,
		logger:    logger.With(slog.String("component", "handlers")),
	}
}
