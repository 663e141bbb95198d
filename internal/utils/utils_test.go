package utils

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		valid bool
	}{
		{
			name:  "naive winter time is Eastern Standard (UTC-5)",
			input: "2025-01-15T08:00:00",
			want:  time.Date(2025, 1, 15, 13, 0, 0, 0, time.UTC),
			valid: true,
		},
		{
			name:  "naive summer time is Eastern Daylight (UTC-4)",
			input: "2025-07-15T08:00:00",
			want:  time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
			valid: true,
		},
		{
			name:  "naive with space separator",
			input: "2025-07-15 08:30:00",
			want:  time.Date(2025, 7, 15, 12, 30, 0, 0, time.UTC),
			valid: true,
		},
		{
			name:  "explicit offset",
			input: "2025-07-15T08:00:00-04:00",
			want:  time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
			valid: true,
		},
		{
			name:  "explicit offset disagreeing with local DST is kept as given",
			input: "2025-07-15T08:00:00-05:00",
			want:  time.Date(2025, 7, 15, 13, 0, 0, 0, time.UTC),
			valid: true,
		},
		{
			name:  "zulu with fraction",
			input: "2025-03-01T17:45:10.250Z",
			want:  time.Date(2025, 3, 1, 17, 45, 10, 250_000_000, time.UTC),
			valid: true,
		},
		{
			name:  "offset without colon",
			input: "2025-03-01T12:00:00-0500",
			want:  time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC),
			valid: true,
		},
		{name: "empty", input: "", valid: false},
		{name: "blank", input: "   ", valid: false},
		{name: "garbage", input: "tomorrow-ish", valid: false},
		{name: "date only", input: "2025-03-01", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInstant(tt.input)
			if got.Valid() != tt.valid {
				t.Fatalf("ParseInstant(%q).Valid() = %v, want %v", tt.input, got.Valid(), tt.valid)
			}
			if !tt.valid {
				return
			}
			if !got.Time().Equal(tt.want) {
				t.Errorf("ParseInstant(%q) = %v, want %v", tt.input, got.Time(), tt.want)
			}
			if got.Time().Location() != time.UTC {
				t.Errorf("expected UTC location, got %v", got.Time().Location())
			}
		})
	}
}

func TestParseInstantOffsetIsLossless(t *testing.T) {
	original := time.Date(2025, 11, 2, 1, 30, 0, 123456789, time.FixedZone("EDT", -4*3600))
	got := ParseInstant(original.Format(time.RFC3339Nano))
	if !got.Valid() {
		t.Fatal("expected a valid instant")
	}
	if !got.Time().Equal(original) {
		t.Errorf("expected %v, got %v", original, got.Time())
	}
}

func TestInstantHelpers(t *testing.T) {
	a := At(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	b := At(time.Date(2025, 1, 1, 12, 5, 0, 0, time.UTC))

	if d, ok := b.Sub(a); !ok || d != 5*time.Minute {
		t.Errorf("expected 5m, got %v (ok=%v)", d, ok)
	}
	if _, ok := b.Sub(Instant{}); ok {
		t.Error("expected Sub with an absent operand to report false")
	}
	if got := FirstValid(Instant{}, b, a); !got.Equal(b) {
		t.Errorf("FirstValid picked %v, want %v", got.Time(), b.Time())
	}
	if got := FirstValid(Instant{}, Instant{}); got.Valid() {
		t.Error("FirstValid of absent instants should be absent")
	}
	if !(Instant{}).Equal(Instant{}) {
		t.Error("two absent instants should be equal")
	}
}

func TestFormatClock(t *testing.T) {
	i := At(time.Date(2025, 7, 15, 16, 5, 0, 0, time.UTC))
	if got := FormatClock(i, FeedLocation); got != "12:05" {
		t.Errorf("expected 12:05, got %s", got)
	}
	if got := FormatClock(Instant{}, FeedLocation); got != NoTime {
		t.Errorf("expected %q, got %q", NoTime, got)
	}
}

func TestInstantJSON(t *testing.T) {
	type row struct {
		At  Instant `json:"at"`
		Not Instant `json:"not"`
	}
	b, err := json.Marshal(row{At: At(time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC))})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"at":"2025-07-15T12:00:00Z","not":null}`
	if string(b) != want {
		t.Errorf("expected %s, got %s", want, b)
	}

	var decoded row
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !decoded.At.Valid() || decoded.Not.Valid() {
		t.Errorf("unexpected decoded validity: %+v", decoded)
	}
}

func TestMakeMap(t *testing.T) {
	m := MakeMap("feed", "alerts")
	if len(m) != 1 || m["feed"] != "alerts" {
		t.Errorf("unexpected map %v", m)
	}
}
