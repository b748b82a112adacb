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

// UserAPI is the slice of the user service the order core consumes.
type UserAPI interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// HTTPUserClient implements UserAPI over the user service's REST API.
type HTTPUserClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPUserClient creates a new HTTP-based user client.
func NewHTTPUserClient(cfg config.ServiceConfig, logger *slog.Logger) *HTTPUserClient {
	return &HTTPUserClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With(slog.String("component", "user-client")),
	}
}

// GetUser fetches a user by id.
func (c *HTTPUserClient) GetUser(ctx context.Context, id string) (*models.User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("user request failed",
			slog.String("user_id", id),
			slog.Any("error", err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}

	var user models.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}
