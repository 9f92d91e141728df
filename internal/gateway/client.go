package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Environment selects the gateway endpoint set.
const (
	EnvironmentTest = "test"
	EnvironmentLive = "live"
)

// Client is the transport abstraction towards the payment gateway. It is
// deliberately thin and swappable: it sends a request payload and returns a
// structured response or a transport error. No call is ever retried here;
// an unknown outcome is reconciled later by a notification.
type Client interface {
	// Authorize sends a payment authorization request.
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error)
	// Modify sends a capture or refund request against an authorized transaction.
	Modify(ctx context.Context, action string, req ModificationRequest) (*ModificationResponse, error)
}

// Config holds the credentials and environment selection for the HTTP client.
type Config struct {
	Environment    string
	ClientUser     string
	ClientPassword string
	// BaseURL overrides the environment-derived endpoint, mainly for tests.
	BaseURL string
	Timeout time.Duration
	// OnBreakerStateChange, when set, observes circuit breaker transitions.
	OnBreakerStateChange func(name string, from, to gobreaker.State)
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == EnvironmentLive {
		return "https://pal-live.adyen.com/pal/servlet/Payment"
	}
	return "https://pal-test.adyen.com/pal/servlet/Payment"
}

// HTTPClient implements Client over HTTPS with basic auth and a circuit
// breaker around the gateway endpoint.
type HTTPClient struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPClient creates a gateway HTTP client.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "gateway",
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
			OnStateChange: cfg.OnBreakerStateChange,
		}),
	}
}

// Environment returns the configured gateway environment.
func (c *HTTPClient) Environment() string {
	if c.cfg.Environment == EnvironmentLive {
		return EnvironmentLive
	}
	return EnvironmentTest
}

// Authorize sends an authorization request to the gateway.
func (c *HTTPClient) Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error) {
	body, err := c.post(ctx, "/authorise", req)
	if err != nil {
		return nil, err
	}
	var result AuthorizationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode authorization response: %w", err)
	}
	return &result, nil
}

// Modify sends a capture or refund request to the gateway.
func (c *HTTPClient) Modify(ctx context.Context, action string, req ModificationRequest) (*ModificationResponse, error) {
	body, err := c.post(ctx, "/"+action, req)
	if err != nil {
		return nil, err
	}
	var resp ModificationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	return &resp, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.baseURL()+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.cfg.ClientUser, c.cfg.ClientPassword)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnreachable, err)
		}
		defer resp.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("%w: read response: %v", domainErrors.ErrGatewayUnreachable, err)
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: gateway returned %d", domainErrors.ErrGatewayUnreachable, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("gateway rejected request: %d %s", resp.StatusCode, buf.String())
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		// An open breaker never reached the gateway, so the outcome of the
		// payment is just as unknown as a transport failure.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnreachable, err)
		}
		return nil, err
	}
	return body, nil
}
