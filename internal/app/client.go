package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"tracker.redline.org/internal/metrics"
)

// latencyTrackingRoundTripper records the latency of every outgoing request in
// metrics.OutgoingLatency, labeled by URL (no query), method and status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// scheme + host + path, without the query
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns an HTTP client for polling the MBTA API every refresh
// interval. Connections to the single API host are kept alive between cycles.
//
//   - MaxIdleConnsPerHost: 10, enough for the concurrent feed fetches of one cycle.
//   - IdleConnTimeout: 90s, longer than the default refresh interval.
//   - Dial timeout 5s and TLS handshake timeout 5s fail fast on an unreachable API.
//   - Client timeout 15s covers the route-wide predictions, the largest payload.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   15 * time.Second,
	}
}
