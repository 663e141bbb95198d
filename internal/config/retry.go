package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// First wait between attempts; later waits grow exponentially.
var retryInitialInterval = 500 * time.Millisecond

// DoWithBackoff sends req, retrying transport errors, 5xx and 429 responses with
// exponential backoff. It gives up after maxRetries retries, or only when ctx ends
// if maxRetries is zero or negative. Other responses are returned as they are,
// whatever their status.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInitialInterval
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0

	var policy backoff.BackOff = eb
	if maxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(maxRetries))
	}
	policy = backoff.WithContext(policy, ctx)

	attempts := 0
	var resp *http.Response
	operation := func() error {
		attempts++
		r, err := client.Do(req.Clone(ctx))
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusInternalServerError || r.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			return fmt.Errorf("server returned status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request to %s cancelled after %d attempts: %w", req.URL.Redacted(), attempts, ctxErr)
		}
		return nil, fmt.Errorf("max retries exceeded after %d attempts to %s: %w", attempts, req.URL.Redacted(), err)
	}
	return resp, nil
}
