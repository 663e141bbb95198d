package config

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tracker.redline.org/internal/models"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temporary file: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("ValidYAML", func(t *testing.T) {
		path := writeTemp(t, "tracker.yaml", `
route_id: Orange
stop_id: place-ogmnl
departure_direction: 1
arrival_direction: 0
direction_labels: [Inbound, Outbound]
lines:
  - name: Orange
    route_ids: [Orange]
    color: "#ED8B00"
`)
		tracker, err := loadConfigFromFile(path)
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}
		if tracker.RouteID != "Orange" || tracker.StopID != "place-ogmnl" {
			t.Errorf("unexpected route/stop: %s %s", tracker.RouteID, tracker.StopID)
		}
		if tracker.DepartureDirection != 1 || tracker.ArrivalDirection != 0 {
			t.Errorf("unexpected directions: %d %d", tracker.DepartureDirection, tracker.ArrivalDirection)
		}
		if len(tracker.Lines) != 1 || tracker.Lines[0].Name != "Orange" {
			t.Errorf("expected only the Orange line, got %+v", tracker.Lines)
		}
		if tracker.DirectionLabels[0] != "Inbound" {
			t.Errorf("expected Inbound label, got %v", tracker.DirectionLabels)
		}
		// Keys not in the document keep their defaults.
		if tracker.NearTermMinutes != 10 || tracker.FutureMinutes != 60 {
			t.Errorf("expected default windows, got %d/%d", tracker.NearTermMinutes, tracker.FutureMinutes)
		}
		if tracker.ShapesRefreshHours != 24 {
			t.Errorf("expected default shapes refresh, got %d", tracker.ShapesRefreshHours)
		}
	})

	t.Run("ValidJSON", func(t *testing.T) {
		path := writeTemp(t, "tracker.json", `{"stop_id": "place-davis", "near_term_minutes": 5, "future_minutes": 30}`)
		tracker, err := loadConfigFromFile(path)
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}
		if tracker.RouteID != "Red" || tracker.StopID != "place-davis" {
			t.Errorf("unexpected route/stop: %s %s", tracker.RouteID, tracker.StopID)
		}
		if tracker.NearTermMinutes != 5 || tracker.FutureMinutes != 30 {
			t.Errorf("unexpected windows: %d/%d", tracker.NearTermMinutes, tracker.FutureMinutes)
		}
		if len(tracker.Lines) != len(models.DefaultTracker().Lines) {
			t.Errorf("expected default lines, got %d", len(tracker.Lines))
		}
	})

	t.Run("ListsReplaceDefaults", func(t *testing.T) {
		path := writeTemp(t, "tracker.json", `{"lines": [{"name": "Blue", "route_ids": ["Blue"], "color": "#003DA5"}]}`)
		tracker, err := loadConfigFromFile(path)
		if err != nil {
			t.Fatalf("loadConfigFromFile failed: %v", err)
		}
		want := models.Line{Name: "Blue", RouteIDs: []string{"Blue"}, Color: "#003DA5"}
		if len(tracker.Lines) != 1 || tracker.Lines[0].Name != want.Name || len(tracker.Lines[0].RouteIDs) != 1 {
			t.Errorf("expected %+v, got %+v", want, tracker.Lines)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		path := writeTemp(t, "invalid-config.json", `{ this is not valid JSON }`)
		if _, err := loadConfigFromFile(path); err == nil {
			t.Errorf("Expected error with invalid JSON, got none")
		}
	})

	t.Run("UnknownField", func(t *testing.T) {
		path := writeTemp(t, "typo.json", `{"stop": "place-davis"}`)
		if _, err := loadConfigFromFile(path); err == nil {
			t.Errorf("Expected error for unknown field, got none")
		}
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		if _, err := loadConfigFromFile("non-existent-file.json"); err == nil {
			t.Errorf("Expected error for non-existent file, got none")
		}
	})
}

func TestParseTrackerValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"defaults", `{}`, false},
		{"empty route", `{"route_id": ""}`, true},
		{"bad direction", `{"departure_direction": 2}`, true},
		{"future before near term", `{"near_term_minutes": 30, "future_minutes": 20}`, true},
		{"zero near term", `{"near_term_minutes": 0}`, true},
		{"one direction label", `{"direction_labels": ["North"]}`, true},
		{"tolerance too large", `{"on_time_tolerance_seconds": 60}`, true},
		{"tolerance allowed", `{"on_time_tolerance_seconds": 30}`, false},
		{"bad colour", `{"lines": [{"name": "Red", "route_ids": ["Red"], "color": "red"}]}`, true},
		{"line without routes", `{"lines": [{"name": "Red", "route_ids": [], "color": "#DA291C"}]}`, true},
		{"bad vehicle feed url", `{"vehicle_positions_url": "not a url"}`, true},
		{"vehicle feed url", `{"vehicle_positions_url": "https://cdn.mbta.com/realtime/VehiclePositions.pb"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTracker([]byte(tt.doc), FormatJSON)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error: %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"tracker.yaml":               FormatYAML,
		"/etc/tracker/TRACKER.YML":   FormatYAML,
		"application/yaml":           FormatYAML,
		"text/x-yaml; charset=utf-8": FormatYAML,
		"tracker.json":               FormatJSON,
		"application/json":           FormatJSON,
		"":                           FormatJSON,
	}
	for in, want := range tests {
		if got := FormatFor(in); got != want {
			t.Errorf("FormatFor(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoadConfigFromURL(t *testing.T) {
	fastRetries(t)
	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	ctx := context.Background()

	t.Run("ValidResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "user" || pass != "pass" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"route_id": "Blue", "stop_id": "place-wondl"}`))
		}))
		defer ts.Close()

		tracker, err := loadConfigFromURL(ctx, client, ts.URL, "user", "pass", 1)
		if err != nil {
			t.Fatalf("loadConfigFromURL failed: %v", err)
		}
		if tracker.RouteID != "Blue" || tracker.StopID != "place-wondl" {
			t.Errorf("unexpected tracker %+v", tracker)
		}
	})

	t.Run("YAMLByContentType", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Write([]byte("route_id: Green-B\nstop_id: place-lech\n"))
		}))
		defer ts.Close()

		tracker, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err != nil {
			t.Fatalf("loadConfigFromURL failed: %v", err)
		}
		if tracker.RouteID != "Green-B" {
			t.Errorf("expected Green-B, got %s", tracker.RouteID)
		}
	})

	t.Run("YAMLByPath", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("stop_id: place-harsq\n"))
		}))
		defer ts.Close()

		tracker, err := loadConfigFromURL(ctx, client, ts.URL+"/tracker.yml", "", "", 1)
		if err != nil {
			t.Fatalf("loadConfigFromURL failed: %v", err)
		}
		if tracker.StopID != "place-harsq" {
			t.Errorf("expected place-harsq, got %s", tracker.StopID)
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err == nil || !strings.Contains(err.Error(), "status: 401") {
			t.Errorf("Expected status error, got %v", err)
		}
	})

	t.Run("ErrorResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err == nil {
			t.Errorf("Expected error with 500 response, got none")
		}
	})

	t.Run("InvalidJSONResponse", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{ this is not valid JSON }`))
		}))
		defer ts.Close()

		_, err := loadConfigFromURL(ctx, client, ts.URL, "", "", 1)
		if err == nil {
			t.Errorf("Expected error for invalid JSON response, got none")
		}
	})

	t.Run("InvalidURL", func(t *testing.T) {
		_, err := loadConfigFromURL(ctx, client, "://invalid-url", "", "", 1)
		if err == nil || !strings.Contains(err.Error(), "failed to create request") {
			t.Errorf("Expected request creation error, got: %v", err)
		}
	})
}

func TestValidateConfigFlags(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		configURL   string
		extraArgs   []string
		expectError bool
	}{
		{"No config", "", "", nil, true},
		{"Valid local config", "tracker.yaml", "", nil, false},
		{"Valid remote config", "", "http://example.com/tracker.json", nil, false},
		{"Both config file and URL", "tracker.yaml", "http://example.com/tracker.json", nil, true},
		{"Config file with extra args", "tracker.yaml", "", []string{"extraArg"}, true},
		{"Config URL with extra args", "", "http://example.com/tracker.json", []string{"extraArg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(tt.name, flag.ContinueOnError)
			var output bytes.Buffer
			flag.CommandLine.SetOutput(&output)

			configFile := flag.String("config-file", "", "Path to config file")
			configURL := flag.String("config-url", "", "URL to config")

			args := []string{"cmd"}
			if tt.configFile != "" {
				args = append(args, "--config-file="+tt.configFile)
			}
			if tt.configURL != "" {
				args = append(args, "--config-url="+tt.configURL)
			}
			args = append(args, tt.extraArgs...)

			flag.CommandLine.Parse(args[1:])

			err := ValidateConfigFlags(configFile, configURL)

			if (err != nil) != tt.expectError {
				t.Errorf("Expected error: %v, got: %v", tt.expectError, err)
			}

			if err != nil {
				expected := ""
				if tt.configFile == "" && tt.configURL == "" {
					expected = "no configuration provided, either --config-file or --config-url must be specified"
				} else {
					expected = "only one of --config-file or --config-url"
				}

				if !strings.Contains(err.Error(), expected) {
					t.Errorf("Unexpected error message: %v", err)
				}
			}
		})
	}
}

func TestRefreshConfig(t *testing.T) {
	cfg := NewConfig(4000, "testing", models.DefaultTracker())

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var serverHitCount atomic.Int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHitCount.Add(1)

		user, pass, hasAuth := r.BasicAuth()
		if hasAuth && (user != "testuser" || pass != "testpass") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"route_id": "Orange", "stop_id": "place-forhl", "near_term_minutes": 15}`)
	}))
	defer mockServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshConfig(ctx, client, mockServer.URL, "testuser", "testpass", cfg, testLogger, 50*time.Millisecond, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && cfg.GetTracker().RouteID != "Orange" {
		time.Sleep(20 * time.Millisecond)
	}

	if serverHitCount.Load() == 0 {
		t.Fatal("Mock server was never called")
	}

	updated := cfg.GetTracker()
	if updated.RouteID != "Orange" || updated.StopID != "place-forhl" || updated.NearTermMinutes != 15 {
		t.Errorf("Config not updated with refreshed tracker: %+v", updated)
	}
}

func TestRefreshConfigKeepsPreviousOnError(t *testing.T) {
	fastRetries(t)
	cfg := NewConfig(4000, "testing", models.DefaultTracker())
	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"route_id": ""}`))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshConfig(ctx, ts.Client(), ts.URL, "", "", cfg, testLogger, 20*time.Millisecond, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hits.Load() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if hits.Load() < 2 {
		t.Fatal("expected repeated refresh attempts")
	}
	if got := cfg.GetTracker().RouteID; got != "Red" {
		t.Errorf("expected previous tracker to stay, got route %q", got)
	}
}

func TestGetTrackerReturnsCopy(t *testing.T) {
	cfg := NewConfig(4000, "testing", models.DefaultTracker())
	tracker := cfg.GetTracker()
	tracker.DirectionLabels[0] = "Changed"
	tracker.Lines[0].RouteIDs[0] = "Changed"

	again := cfg.GetTracker()
	if again.DirectionLabels[0] != "Southbound" || again.Lines[0].RouteIDs[0] != "Red" {
		t.Errorf("shared configuration was modified: %+v", again)
	}
}

func TestClampRefreshInterval(t *testing.T) {
	if got := ClampRefreshInterval(time.Second); got != MinRefreshInterval {
		t.Errorf("expected %v, got %v", MinRefreshInterval, got)
	}
	if got := ClampRefreshInterval(time.Minute); got != time.Minute {
		t.Errorf("expected 1m, got %v", got)
	}
}
