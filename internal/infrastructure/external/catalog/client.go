// Package catalog implements the course catalog API client. The engine
// never owns course content; it fetches the concept/topic shape of a
// course from the catalog service and rolls progress up against it.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/devprep-hub/devprep-engine/internal/domain/course"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
	"github.com/devprep-hub/devprep-engine/pkg/circuitbreaker"
	"github.com/devprep-hub/devprep-engine/pkg/logger"
	"github.com/devprep-hub/devprep-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog service base URL.
	BaseURL string

	// APIKey authenticates the engine against the catalog (if set).
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxAttempts bounds retries for transient failures.
	MaxAttempts int

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:     baseURL,
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client fetches course structures from the catalog service. It
// implements course.StructureProvider with retries for transient
// failures and a circuit breaker so a dead catalog fails fast.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logger.Logger
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	mapper     *Mapper
}

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger.With(logger.String("component", "catalog_client")),
		breaker: circuitbreaker.New("catalog",
			circuitbreaker.WithFailureThreshold(5),
			circuitbreaker.WithCooldown(30*time.Second),
		),
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxAttempts),
			retry.WithInitialDelay(100*time.Millisecond),
			retry.WithMaxDelay(2*time.Second),
		),
		mapper: NewMapper(),
	}
}

// GetStructure returns the validated structure for a course.
// Returns shared.ErrCourseNotFound if the catalog does not know the course.
func (c *Client) GetStructure(ctx context.Context, courseID shared.CourseID) (*course.Structure, error) {
	path := fmt.Sprintf("/api/v1/courses/%s/structure", url.PathEscape(string(courseID)))

	var dto CourseDTO
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doRequest(ctx, path, &dto)
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, shared.ErrCatalogUnavailable
		}
		return nil, err
	}

	return c.mapper.StructureFromDTO(&dto)
}

// doRequest performs a single GET against the catalog and decodes the
// response. Transient failures are wrapped with retry.Retryable so the
// retrier distinguishes them from permanent ones.
func (c *Client) doRequest(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return retry.Retryable(shared.ErrCatalogTimeout)
		}
		return retry.Retryable(fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(shared.ErrCourseNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warn("catalog request failed",
			logger.String("path", path),
			logger.Int("status", resp.StatusCode))
		return retry.Retryable(fmt.Errorf("%w: status %d", shared.ErrCatalogUnavailable, resp.StatusCode))
	case resp.StatusCode >= 400:
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return retry.Permanent(&apiErr)
		}
		return retry.Permanent(fmt.Errorf("catalog api error: status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return retry.Permanent(fmt.Errorf("%w: %v", shared.ErrCatalogInvalidResponse, err))
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsHealthy checks if the catalog API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
