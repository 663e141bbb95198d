// Package status derives service status from scheduled and predicted times.
package status

import (
	"math"
	"strings"
	"time"

	"tracker.redline.org/internal/utils"
)

// Status is the label shown in a board row.
type Status string

const (
	OnTime    Status = "On Time"
	Delayed   Status = "Delayed"
	Cancelled Status = "Cancelled"
	Unknown   Status = "Unknown"

	Active   Status = "Active"
	Inactive Status = "Inactive"
)

// Result is a classification plus the signed schedule deviation in whole minutes.
// HasDelta is set whenever both instants were present.
type Result struct {
	Status       Status
	DeltaMinutes int
	HasDelta     bool
}

// Classifier compares predictions against schedule. A prediction up to Tolerance
// late still counts as on time; negative tolerances behave as zero.
type Classifier struct {
	Tolerance time.Duration
}

// Classify applies, in order: cancellation, then the scheduled/predicted comparison.
// If either instant is missing the status is Unknown. The delta is rounded to the
// nearest minute, except that a Delayed result is never shown as less than +1.
func (c Classifier) Classify(scheduled, predicted utils.Instant, cancelled bool) Result {
	if cancelled {
		return Result{Status: Cancelled}
	}
	delta, ok := predicted.Sub(scheduled)
	if !ok {
		return Result{Status: Unknown}
	}
	res := Result{
		Status:       Delayed,
		DeltaMinutes: int(math.Round(delta.Minutes())),
		HasDelta:     true,
	}
	if delta <= max(c.Tolerance, 0) {
		res.Status = OnTime
	} else if res.DeltaMinutes < 1 {
		res.DeltaMinutes = 1
	}
	return res
}

// Classify uses a zero tolerance.
func Classify(scheduled, predicted utils.Instant, cancelled bool) Result {
	return Classifier{}.Classify(scheduled, predicted, cancelled)
}

// AlertStatus is Active when now falls inside [start, end). An open end never
// expires; an absent start is never active.
func AlertStatus(start, end utils.Instant, now time.Time) Status {
	if !start.Valid() || now.Before(start.Time()) {
		return Inactive
	}
	if end.Valid() && !now.Before(end.Time()) {
		return Inactive
	}
	return Active
}

// IsCancelled reads the cancellation signals of an MBTA prediction.
func IsCancelled(scheduleRelationship, statusText string) bool {
	switch strings.ToUpper(scheduleRelationship) {
	case "CANCELLED", "SKIPPED":
		return true
	}
	return strings.Contains(strings.ToLower(statusText), "cancel")
}
