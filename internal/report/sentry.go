package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures the Sentry client. An empty DSN keeps the SDK silent:
// events are still built but never sent.
type SentryOptions struct {
	DSN        string
	Env        string
	Release    string
	Debug      bool
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

func SetupSentry(opts SentryOptions) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Env,
		Release:          opts.Release,
		EnableTracing:    true,
		Debug:            opts.Debug,
		TracesSampleRate: 1.0,
		BeforeSend:       opts.BeforeSend,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	if opts.DSN != "" {
		sentry.CaptureMessage("Tracker started")
	}
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
