package config

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func fastRetries(t *testing.T) {
	t.Helper()
	prev := retryInitialInterval
	retryInitialInterval = time.Millisecond
	t.Cleanup(func() { retryInitialInterval = prev })
}

func TestDoWithBackoff(t *testing.T) {
	fastRetries(t)

	tests := []struct {
		name          string
		maxRetries    int
		ctxTimeout    time.Duration
		handler       func(req *http.Request) (*http.Response, error)
		expectErr     string
		expectCalls   int
		expectSuccess bool
	}{
		{
			name:       "success on first try",
			maxRetries: 3,
			handler: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
			},
			expectErr:     "",
			expectCalls:   1,
			expectSuccess: true,
		},
		{
			name:       "max retries exceeded",
			maxRetries: 2,
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("mock error")
			},
			expectErr:   "max retries exceeded",
			expectCalls: 3,
		},
		{
			name:       "server errors are retried",
			maxRetries: 1,
			handler: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader("busy"))}, nil
			},
			expectErr:   "status 503",
			expectCalls: 2,
		},
		{
			name:       "client errors are returned as they are",
			maxRetries: 3,
			handler: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: 404, Body: http.NoBody}, nil
			},
			expectCalls:   1,
			expectSuccess: true,
		},
		{
			name:       "context cancelled before success",
			maxRetries: 0,
			ctxTimeout: 50 * time.Millisecond,
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("fail")
			},
			expectErr:   "context deadline exceeded",
			expectCalls: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRoundTripper{handler: tt.handler}
			client := &http.Client{Transport: mock}
			req, _ := http.NewRequest("GET", "http://example.com", nil)

			ctx := context.Background()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				defer cancel()
			}

			resp, err := DoWithBackoff(ctx, client, req, tt.maxRetries)

			if tt.expectErr == "" && err != nil {
				t.Fatalf("expected success, got error: %v", err)
			}
			if tt.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
				}
			}
			if tt.expectSuccess && resp == nil {
				t.Fatalf("expected response, got nil")
			}

			if tt.expectCalls >= 0 && mock.calls != tt.expectCalls {
				t.Errorf("expected %d calls, got %d", tt.expectCalls, mock.calls)
			}
		})
	}
}

func TestDoWithBackoffRecovers(t *testing.T) {
	fastRetries(t)

	mock := &mockRoundTripper{}
	mock.handler = func(req *http.Request) (*http.Response, error) {
		if mock.calls < 3 {
			return &http.Response{StatusCode: 502, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("ok"))}, nil
	}
	client := &http.Client{Transport: mock}
	req, _ := http.NewRequest("GET", "http://example.com/feed", nil)

	resp, err := DoWithBackoff(context.Background(), client, req, 5)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("expected body ok, got %q", body)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
}

func TestBackoffStore(t *testing.T) {
	t.Run("unknown feed is ready", func(t *testing.T) {
		s := NewBackoffStore()
		if _, ok := s.NextRetryAt("vehicles"); ok {
			t.Fatal("expected no retry time for a fresh feed")
		}
		if !s.Ready("vehicles", time.Now()) {
			t.Error("expected a fresh feed to be ready")
		}
	})

	t.Run("failure delays the feed", func(t *testing.T) {
		s := NewBackoffStore()
		before := time.Now()
		s.UpdateBackoff("alerts")

		next, ok := s.NextRetryAt("alerts")
		if !ok {
			t.Fatal("expected a retry time after a failure")
		}
		if next.Before(before.Add(BASE_BACKOFF)) {
			t.Errorf("retry at %v is earlier than the base backoff", next)
		}
		if s.Ready("alerts", before) {
			t.Error("expected the feed to wait after a failure")
		}
		if !s.Ready("alerts", before.Add(MAX_BACKOFF+time.Second)) {
			t.Error("expected the feed to be ready once the delay has passed")
		}
		if !s.Ready("vehicles", before) {
			t.Error("a failure of one feed must not delay another")
		}
	})

	t.Run("delay doubles and is capped", func(t *testing.T) {
		s := NewBackoffStore()
		for i := 0; i < 10; i++ {
			s.UpdateBackoff("shapes")
		}
		if got := s.backoffs["shapes"].BackoffDelay; got != MAX_BACKOFF {
			t.Errorf("expected delay capped at %v, got %v", MAX_BACKOFF, got)
		}
		next, _ := s.NextRetryAt("shapes")
		if next.After(time.Now().Add(MAX_BACKOFF + time.Second)) {
			t.Errorf("retry at %v exceeds the maximum backoff", next)
		}
	})

	t.Run("reset clears the feed", func(t *testing.T) {
		s := NewBackoffStore()
		s.UpdateBackoff("alerts")
		s.ResetBackoff("alerts")
		if _, ok := s.NextRetryAt("alerts"); ok {
			t.Error("expected no retry time after reset")
		}
	})
}

func TestCalculateNewBackoffDelay(t *testing.T) {
	if got := calculateNewBackoffDelay(BASE_BACKOFF); got != 2*BASE_BACKOFF {
		t.Errorf("expected %v, got %v", 2*BASE_BACKOFF, got)
	}
	if got := calculateNewBackoffDelay(MAX_BACKOFF); got != MAX_BACKOFF {
		t.Errorf("expected %v, got %v", MAX_BACKOFF, got)
	}
}
