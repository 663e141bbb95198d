package config

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the public MBTA v3 API.
const DefaultBaseURL = "https://api-v3.mbta.com"

// Env is the process environment the tracker reads.
type Env struct {
	APIKey         string
	BaseURL        string
	SentryDSN      string
	ConfigAuthUser string
	ConfigAuthPass string
}

// LoadEnv loads the given .env files (".env" when none are given) into the process
// environment without overriding variables that are already set, then reads Env.
// A missing .env file is not an error; the returned bool reports whether one was loaded.
func LoadEnv(files ...string) (Env, bool) {
	loaded := godotenv.Load(files...) == nil

	env := Env{
		APIKey:         os.Getenv("MBTA_API_KEY"),
		BaseURL:        os.Getenv("MBTA_BASE_URL"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		ConfigAuthUser: os.Getenv("CONFIG_AUTH_USER"),
		ConfigAuthPass: os.Getenv("CONFIG_AUTH_PASS"),
	}
	if env.BaseURL == "" {
		env.BaseURL = DefaultBaseURL
	}
	return env, loaded
}
