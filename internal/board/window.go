package board

import (
	"time"

	"tracker.redline.org/internal/utils"
)

// Window is the inclusive range [Start, Start+Span]. A zero Span is unbounded above.
type Window struct {
	Start time.Time
	Span  time.Duration
}

// Next returns the window of length span starting at now.
func Next(now time.Time, span time.Duration) Window {
	return Window{Start: now, Span: span}
}

// Contains reports whether i is present and inside the window.
func (w Window) Contains(i utils.Instant) bool {
	if !i.Valid() || i.Time().Before(w.Start) {
		return false
	}
	return w.Span == 0 || !i.Time().After(w.Start.Add(w.Span))
}
