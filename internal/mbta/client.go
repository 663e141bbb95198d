// Package mbta fetches raw JSON:API documents from the MBTA v3 API.
package mbta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tracker.redline.org/internal/config"
)

// Relationships requested alongside predictions and vehicles.
const (
	PredictionInclude = "schedule,trip,stop,vehicle"
	VehicleInclude    = "trip,stop"
)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request to %s failed: status %d", e.Path, e.Code)
}

// Client is a thin MBTA v3 client. It returns payload bytes untouched; parsing
// belongs to the pipeline.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTP       *http.Client
	Logger     *slog.Logger
	MaxRetries int
}

// NewClient returns a client for baseURL. An empty apiKey sends anonymous requests,
// which the API accepts at a lower rate limit.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTP:       httpClient,
		Logger:     logger,
		MaxRetries: 2,
	}
}

// Alerts fetches the service alerts of a route.
func (c *Client) Alerts(ctx context.Context, routeID string) ([]byte, error) {
	return c.get(ctx, "/alerts", url.Values{"filter[route]": {routeID}})
}

// StopPredictions fetches the predictions of a route at one stop, with schedule, trip,
// stop and vehicle included.
func (c *Client) StopPredictions(ctx context.Context, routeID, stopID string) ([]byte, error) {
	return c.get(ctx, "/predictions", url.Values{
		"filter[route]": {routeID},
		"filter[stop]":  {stopID},
		"include":       {PredictionInclude},
	})
}

// RoutePredictions fetches the predictions at every stop of a route.
func (c *Client) RoutePredictions(ctx context.Context, routeID string) ([]byte, error) {
	return c.get(ctx, "/predictions", url.Values{
		"filter[route]": {routeID},
		"include":       {PredictionInclude},
	})
}

// Vehicles fetches the vehicles of a route with their trip and current stop.
func (c *Client) Vehicles(ctx context.Context, routeID string) ([]byte, error) {
	return c.get(ctx, "/vehicles", url.Values{
		"filter[route]": {routeID},
		"include":       {VehicleInclude},
	})
}

// Shapes fetches the shapes of a route.
func (c *Client) Shapes(ctx context.Context, routeID string) ([]byte, error) {
	return c.get(ctx, "/shapes", url.Values{"filter[route]": {routeID}})
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	start := time.Now()
	resp, err := config.DoWithBackoff(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Path: path, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if c.Logger != nil {
		c.Logger.Debug("Fetched MBTA resource", "path", path, "bytes", len(body), "duration", time.Since(start))
	}
	return body, nil
}
