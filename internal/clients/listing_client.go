package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/config"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

// ListingAPI is the slice of the listing service the order core consumes.
type ListingAPI interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
}

// HTTPListingClient implements ListingAPI over the listing service's REST
// API.
type HTTPListingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPListingClient creates a new HTTP-based listing client.
func NewHTTPListingClient(cfg config.ServiceConfig, logger *slog.Logger) *HTTPListingClient {
	return &HTTPListingClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With(slog.String("component", "listing-client")),
	}
}

// GetListing fetches a listing by id.
func (c *HTTPListingClient) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	url := fmt.Sprintf("%s/api/v1/listings/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("listing request failed",
			slog.String("listing_id", id),
			slog.Any("error", err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing service returned status %d", resp.StatusCode)
	}

	var listing models.Listing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *HTTPListingClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
