package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

var ErrNoAvailableEndpoints = errors.New("no available webhook endpoints")

type EndpointState int32

const (
	EndpointHealthy EndpointState = iota
	EndpointUnhealthy
	EndpointCircuitOpen
)

// Endpoint is one webhook destination. Consecutive failures open a circuit
// that keeps the endpoint out of rotation until the timeout passes.
type Endpoint struct {
	name   string
	url    string
	client *fasthttp.Client

	state            atomic.Int32
	consecutiveFails atomic.Int32
	circuitOpenUntil atomic.Int64
	totalSent        atomic.Int64
	totalFailed      atomic.Int64
}

func newEndpoint(name, url string, timeout time.Duration) *Endpoint {
	e := &Endpoint{
		name: name,
		url:  url,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
	e.state.Store(int32(EndpointHealthy))
	return e
}

func (e *Endpoint) isAvailable() bool {
	if EndpointState(e.state.Load()) == EndpointCircuitOpen {
		if time.Now().Unix() > e.circuitOpenUntil.Load() {
			e.state.Store(int32(EndpointHealthy))
			e.consecutiveFails.Store(0)
			return true
		}
		return false
	}
	return EndpointState(e.state.Load()) != EndpointUnhealthy
}

type WebhookConfig struct {
	PrimaryURL              string
	SecondaryURL            string
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	CircuitBreakerThreshold int32
	CircuitBreakerTimeout   time.Duration
}

func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:                 10 * time.Second,
		MaxRetries:              2,
		RetryDelay:              500 * time.Millisecond,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// WebhookClient delivers operation events to the configured endpoints with
// primary-then-secondary failover.
type WebhookClient struct {
	config    WebhookConfig
	endpoints []*Endpoint
	mu        sync.RWMutex
}

func NewWebhookClient(config WebhookConfig) (*WebhookClient, error) {
	if config.PrimaryURL == "" {
		return nil, errors.New("primary webhook url is required")
	}

	c := &WebhookClient{config: config}
	c.endpoints = append(c.endpoints, newEndpoint("primary", config.PrimaryURL, config.Timeout))
	if config.SecondaryURL != "" {
		c.endpoints = append(c.endpoints, newEndpoint("secondary", config.SecondaryURL, config.Timeout))
	}

	for _, e := range c.endpoints {
		logger.Info("Webhook endpoint initialized", "name", e.name, "url", e.url)
	}
	return c, nil
}

// Deliver posts the event to the first available endpoint, falling back and
// retrying per the configured policy.
func (c *WebhookClient) Deliver(ctx context.Context, event *model.OperationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		endpoint, err := c.selectEndpoint()
		if err != nil {
			lastErr = err
			continue
		}

		if err := c.post(ctx, endpoint, body); err != nil {
			endpoint.totalFailed.Add(1)
			fails := endpoint.consecutiveFails.Add(1)
			if fails >= c.config.CircuitBreakerThreshold {
				endpoint.state.Store(int32(EndpointCircuitOpen))
				endpoint.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).Unix())
				logger.Warn("Webhook circuit breaker opened", "endpoint", endpoint.name, "consecutive_fails", fails)
			}
			logger.Warn("Webhook delivery failed, retrying", "endpoint", endpoint.name, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		endpoint.totalSent.Add(1)
		endpoint.consecutiveFails.Store(0)
		logger.Debug("Webhook delivered", "endpoint", endpoint.name, "kind", event.Kind, "operation_id", event.OperationID)
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *WebhookClient) selectEndpoint() (*Endpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.endpoints {
		if e.isAvailable() {
			return e, nil
		}
	}
	return nil, ErrNoAvailableEndpoints
}

func (c *WebhookClient) post(ctx context.Context, endpoint *Endpoint, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := endpoint.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK && status != fasthttp.StatusAccepted && status != fasthttp.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d, body: %s", status, resp.Body())
	}
	return nil
}

// EndpointStats is a point-in-time snapshot for logging and health output.
type EndpointStats struct {
	Name             string
	URL              string
	State            string
	TotalSent        int64
	TotalFailed      int64
	ConsecutiveFails int32
}

func (c *WebhookClient) Stats() []EndpointStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(c.endpoints))
	for _, e := range c.endpoints {
		stats = append(stats, EndpointStats{
			Name:             e.name,
			URL:              e.url,
			State:            stateString(EndpointState(e.state.Load())),
			TotalSent:        e.totalSent.Load(),
			TotalFailed:      e.totalFailed.Load(),
			ConsecutiveFails: e.consecutiveFails.Load(),
		})
	}
	return stats
}

func stateString(state EndpointState) string {
	switch state {
	case EndpointHealthy:
		return "HEALTHY"
	case EndpointUnhealthy:
		return "UNHEALTHY"
	case EndpointCircuitOpen:
		return "CIRCUIT_OPEN"
	default:
		return "UNKNOWN"
	}
}
