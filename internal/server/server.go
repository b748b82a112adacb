package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/handlers"
	"github.com/nearbuy/nearbuy-orders-service/internal/middleware"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	httpSrv  *http.Server
	handlers *handlers.Handlers
}

func New(h *handlers.Handlers, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
	}
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhooks carry no bearer token; the provider signature is the gate.
	webhooks := s.router.Group("/webhooks")
	{
		webhooks.POST("/:provider", s.handlers.ProviderWebhook)
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.Auth(s.config.Auth.JWTSecret))
	{
		v1.POST("/orders", s.handlers.CreateOrder)
		v1.GET("/orders/pending-verification", s.handlers.ListPendingVerification)
		v1.GET("/orders/:id/status", s.handlers.GetOrderStatus)
		v1.POST("/orders/:id/confirm", s.handlers.ConfirmPayment)
		v1.POST("/orders/:id/verify", s.handlers.VerifyOrder)
		v1.POST("/orders/:id/verify-payment", s.handlers.VerifyPayment)
		v1.GET("/purchases", s.handlers.ListPurchases)
	}
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
