package utils

import (
	"encoding/json"
	"strings"
	"time"
	_ "time/tzdata" // FeedLocation must resolve on hosts without a zoneinfo database
)

// FeedTimeZone is the civil timezone the MBTA v3 API uses for offset-free timestamps.
const FeedTimeZone = "America/New_York"

// FeedLocation is the loaded FeedTimeZone. Naive feed timestamps are interpreted here.
var FeedLocation = mustLoadLocation(FeedTimeZone)

// NoTime is what FormatClock renders for an absent instant.
const NoTime = "—"

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("utils: cannot load timezone " + name + ": " + err.Error())
	}
	return loc
}

// Layouts carrying an explicit offset or "Z".
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without any zone indicator.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// Instant is an optional point in time, always held in UTC.
// The zero value is absent.
type Instant struct {
	t     time.Time
	valid bool
}

// At wraps t as a present Instant, converted to UTC.
func At(t time.Time) Instant {
	return Instant{t: t.UTC(), valid: true}
}

// Valid reports whether the instant is present.
func (i Instant) Valid() bool { return i.valid }

// Time returns the UTC time, or the zero time.Time when absent.
func (i Instant) Time() time.Time { return i.t }

// Sub returns i-o and whether both instants were present.
func (i Instant) Sub(o Instant) (time.Duration, bool) {
	if !i.valid || !o.valid {
		return 0, false
	}
	return i.t.Sub(o.t), true
}

// Equal reports whether both instants are absent, or both present and equal.
func (i Instant) Equal(o Instant) bool {
	if i.valid != o.valid {
		return false
	}
	return !i.valid || i.t.Equal(o.t)
}

// FirstValid returns the first present instant, or an absent one.
func FirstValid(candidates ...Instant) Instant {
	for _, c := range candidates {
		if c.valid {
			return c
		}
	}
	return Instant{}
}

// ParseInstant normalizes a feed timestamp into a UTC Instant.
//
// Strings with an offset or "Z" are converted to UTC directly. Offset-free strings are
// civil time in FeedLocation; reading them as UTC would shift every displayed time by the
// zone offset. Empty or unparseable input yields an absent Instant.
func ParseInstant(s string) Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return Instant{}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, FeedLocation); err == nil {
			return At(t)
		}
	}
	return Instant{}
}

// FormatClock renders the instant as HH:MM in loc. It belongs to the presentation layer;
// compare and store instants in UTC.
func FormatClock(i Instant, loc *time.Location) string {
	if !i.valid {
		return NoTime
	}
	if loc == nil {
		loc = FeedLocation
	}
	return i.t.In(loc).Format("15:04")
}

// MarshalJSON encodes the instant as an RFC 3339 UTC string, or null when absent.
func (i Instant) MarshalJSON() ([]byte, error) {
	if !i.valid {
		return []byte("null"), nil
	}
	return json.Marshal(i.t.Format(time.RFC3339))
}

// UnmarshalJSON accepts null or any timestamp ParseInstant understands.
func (i *Instant) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*i = Instant{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*i = ParseInstant(s)
	return nil
}
