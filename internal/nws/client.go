// Package nws reads active alerts, forecasts and text products from the
// National Weather Service API (api.weather.gov).
//
// Every exported fetch degrades to "no data" on failure: the error is
// logged and counted, and the caller gets an empty result.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/logging"
	"github.com/mr1hm/go-weather-alerts/internal/metrics"
)

type Client struct {
	baseURL   string
	zone      string
	office    string
	gridX     int
	gridY     int
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	log       *slog.Logger
}

func NewClient(cfg config.NWSConfig) *Client {
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		zone:      cfg.Zone,
		office:    cfg.Office,
		gridX:     cfg.GridX,
		gridY:     cfg.GridY,
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		log:     logging.Component("nws"),
	}
}

func (c *Client) Zone() string   { return c.zone }
func (c *Client) Office() string { return c.office }

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("error waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("error decoding resp.Body: %w", err)
	}
	return nil
}

func (c *Client) degrade(endpoint string, err error) {
	metrics.UpstreamFailures.WithLabelValues(endpoint).Inc()
	c.log.Error("NWS request failed", "endpoint", endpoint, "error", err)
}
