// Package pagerduty delivers scheduler events via PagerDuty's Events API v2.
package pagerduty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client

	// Endpoint overrides the ingest URL, used in tests.
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	retryLimit int
	endpoint   string
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient constructs a PagerDuty events client from config. Callers must
// provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = APIEndpoint
	}

	return &Client{
		routingKey: key,
		source:     fallbackString(strings.TrimSpace(cfg.Source), "autobolt-scheduler"),
		component:  fallbackString(strings.TrimSpace(cfg.Component), "scheduler"),
		retryLimit: max(cfg.RetryLimit, 0),
		endpoint:   endpoint,
		client:     hc,
	}, nil
}

// SendSchedulerEvent submits a trigger event to PagerDuty. Only events that
// warrant paging (failures and SLA violations) are sent; the rest are
// silently dropped.
func (c *Client) SendSchedulerEvent(ctx context.Context, event model.SchedulerEvent) error {
	severity := notify.SeverityFor(event.Type)
	if severity == notify.SeverityInfo {
		return nil
	}

	body, err := json.Marshal(c.buildEvent(event, severity))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err = c.submit(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) buildEvent(event model.SchedulerEvent, severity string) map[string]any {
	occurredAt := event.Timestamp.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	summary := fmt.Sprintf("%s: job %s (%s tier)", event.Type, event.JobID, event.Tier)

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    fmt.Sprintf("%s:%s", event.Type, event.JobID),
		"payload": map[string]any{
			"summary":   summary,
			"source":    c.source,
			"component": c.component,
			"severity":  severity,
			"timestamp": occurredAt.Format(time.RFC3339),
			"custom_details": map[string]any{
				"job_id": event.JobID,
				"tier":   string(event.Tier),
				"detail": event.Detail,
			},
		},
	}
}

func (c *Client) submit(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post pagerduty event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}
	return nil
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
