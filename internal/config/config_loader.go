package config

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/report"
	"tracker.redline.org/internal/utils"
)

// Format is the encoding of a tracker configuration document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

var validate = validator.New()

// ValidateConfigFlags ensures that only one configuration source is specified:
// either a config file "--config-file", a remote config URL "--config-url".
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if *configFile == "" && *configURL == "" {
		return fmt.Errorf("no configuration provided, either --config-file or --config-url must be specified")
	}
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// FormatFor picks the document format from a file name or a Content-Type header.
// Anything that does not mention YAML is read as JSON.
func FormatFor(nameOrContentType string) Format {
	s := strings.ToLower(nameOrContentType)
	switch ext := filepath.Ext(s); {
	case ext == ".yaml" || ext == ".yml", strings.Contains(s, "yaml"):
		return FormatYAML
	}
	return FormatJSON
}

// ParseTracker decodes a tracker document over models.DefaultTracker, so omitted keys
// keep their defaults, and validates the result.
func ParseTracker(data []byte, format Format) (models.Tracker, error) {
	defaults := models.DefaultTracker()
	// Slices start nil: the JSON decoder would otherwise reuse default elements.
	tracker := defaults
	tracker.DirectionLabels = nil
	tracker.Lines = nil
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tracker); err != nil {
			return models.Tracker{}, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tracker); err != nil {
			return models.Tracker{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
	}
	if tracker.DirectionLabels == nil {
		tracker.DirectionLabels = defaults.DirectionLabels
	}
	if tracker.Lines == nil {
		tracker.Lines = defaults.Lines
	}
	if err := validate.Struct(tracker); err != nil {
		return models.Tracker{}, fmt.Errorf("invalid tracker configuration: %w", err)
	}
	return tracker, nil
}

// refreshConfig periodically fetches the tracker configuration from a remote URL and
// swaps it into cfg.
//
// Errors during fetch or parse are logged and reported to Sentry, and the previous
// configuration stays in place. The routine stops when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		case <-ticker.C:
			tracker, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
			if err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeMap("config_url", configURL),
					Level: sentry.LevelError,
				})
				logger.Error("Failed to refresh remote config", "error", err)
				continue
			}
			cfg.UpdateTracker(tracker)
			logger.Info("Successfully refreshed tracker configuration", "route", tracker.RouteID, "stop", tracker.StopID)
		}
	}
}

// loadConfigFromFile reads a JSON or YAML tracker file from disk. The extension
// decides the format.
func loadConfigFromFile(filePath string) (models.Tracker, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.Tracker{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTracker(data, FormatFor(filePath))
}

// loadConfigFromURL fetches a tracker document from a remote HTTP(S) endpoint,
// using the provided client and optional basic authentication. The Content-Type
// decides the format, falling back to the URL's extension.
func loadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (models.Tracker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Tracker{}, fmt.Errorf("failed to create request: %w", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return models.Tracker{}, fmt.Errorf("failed to fetch remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Tracker{}, fmt.Errorf("remote config returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Tracker{}, fmt.Errorf("failed to read remote config: %w", err)
	}

	format := FormatFor(resp.Header.Get("Content-Type"))
	if format == FormatJSON {
		format = FormatFor(req.URL.Path)
	}
	return ParseTracker(data, format)
}
