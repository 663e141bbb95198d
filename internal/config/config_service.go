package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/report"
	"tracker.redline.org/internal/utils"
)

// ConfigService holds dependencies and provides config operations.
type ConfigService struct {
	Logger     *slog.Logger
	Client     *http.Client
	Config     *Config
	MaxRetries int
}

// NewConfigService creates a new ConfigService instance with the provided logger and HTTP client.
func NewConfigService(logger *slog.Logger, client *http.Client, config *Config) *ConfigService {
	return &ConfigService{
		Logger:     logger,
		Client:     client,
		Config:     config,
		MaxRetries: 3,
	}
}

// RefreshConfig blocks, reloading the remote tracker configuration every interval
// until ctx ends.
func (cs *ConfigService) RefreshConfig(ctx context.Context, url, authUser, authPass string, interval time.Duration) {
	refreshConfig(ctx, cs.Client, url, authUser, authPass, cs.Config, cs.Logger, interval, cs.MaxRetries)
}

// exported helper functions

// LoadConfigFromFile loads and validates a tracker file.
func LoadConfigFromFile(filePath string) (models.Tracker, error) {
	tracker, err := loadConfigFromFile(filePath)
	if err != nil {
		err := fmt.Errorf("failed to load config from file %s: %w", filePath, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return models.Tracker{}, err
	}
	return tracker, nil
}

// LoadConfigFromURL loads and validates a remote tracker document.
func (cs *ConfigService) LoadConfigFromURL(ctx context.Context, url, authUser, authPass string) (models.Tracker, error) {
	tracker, err := loadConfigFromURL(ctx, cs.Client, url, authUser, authPass, cs.MaxRetries)
	if err != nil {
		err := fmt.Errorf("failed to load config from URL %s: %w", url, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return models.Tracker{}, err
	}
	return tracker, nil
}
