// Package statuspoll polls an order's status until it settles. Payment
// outcomes arrive asynchronously (webhooks, seller verification), so
// callers watch the status endpoint instead of blocking on the purchase
// call.
package statuspoll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// Update is one observation of an order's status. Err is set when a poll
// attempt failed; polling continues past transient errors.
type Update struct {
	Status models.OrderStatus
	Err    error
}

// StatusFetcher fetches the current status of an order.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
}

// Poller repeatedly fetches an order's status on an interval, delivering
// each observation on a channel. It stops on its own once the order
// reaches a terminal status.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller. A non-positive interval defaults to 3s.
func NewPoller(fetcher StatusFetcher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins polling orderID and returns the update channel. The channel
// is closed when the order reaches a terminal status, the context is
// cancelled, or Stop is called. The first poll fires immediately.
func (p *Poller) Start(ctx context.Context, orderID string) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			status, err := p.fetcher.FetchStatus(ctx, orderID)

			select {
			case updates <- Update{Status: status, Err: err}:
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}

			if err == nil && status.Terminal() {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}
		}
	}()

	return updates
}

// Stop ends polling. Idempotent.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Client fetches order status over the service's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a status client for the orders service at baseURL,
// authenticating with the given bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchStatus implements StatusFetcher against GET /api/v1/orders/:id/status.
func (c *Client) FetchStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	url := fmt.Sprintf("%s/api/v1/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Status, nil
}
