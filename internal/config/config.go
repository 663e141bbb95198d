package config

import (
	"sync"
	"time"

	"tracker.redline.org/internal/models"
)

// MinRefreshInterval is the shortest allowed gap between two refresh cycles.
const MinRefreshInterval = 30 * time.Second

// Config holds all the configuration settings for our application.
type Config struct {
	Port            int
	Env             string
	RefreshInterval time.Duration
	BaseURL         string
	APIKey          string
	Mu              sync.RWMutex
	Tracker         models.Tracker
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, tracker models.Tracker) *Config {
	return &Config{
		Port:            port,
		Env:             env,
		RefreshInterval: MinRefreshInterval,
		BaseURL:         DefaultBaseURL,
		Tracker:         tracker,
	}
}

// ClampRefreshInterval raises intervals below MinRefreshInterval to the minimum.
func ClampRefreshInterval(d time.Duration) time.Duration {
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	return d
}

// UpdateTracker safely replaces the tracker configuration.
func (cfg *Config) UpdateTracker(tracker models.Tracker) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Tracker = tracker
}

// GetTracker safely returns a copy of the tracker configuration.
// Slices are copied so callers can't modify the shared configuration.
func (cfg *Config) GetTracker() models.Tracker {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	t := cfg.Tracker
	t.DirectionLabels = append([]string(nil), cfg.Tracker.DirectionLabels...)
	t.Lines = make([]models.Line, 0, len(cfg.Tracker.Lines))
	for _, line := range cfg.Tracker.Lines {
		line.RouteIDs = append([]string(nil), line.RouteIDs...)
		t.Lines = append(t.Lines, line)
	}
	return t
}
