package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultDevelopmentAPIURL  = "http://localhost:8080/api"
	defaultStaleTime          = 30 * time.Second
	defaultGracePeriod        = 5 * time.Minute
	defaultRequestsPerSecond  = 10
	defaultRequestBurstFactor = 2
)

type Config struct {
	apiURL            string
	sentryDSN         string
	otlpEndpoint      string
	staleTime         time.Duration
	gracePeriod       time.Duration
	requestsPerSecond int
	env               environment
}

func (c *Config) APIURL() string {
	return c.apiURL
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

// Telemetry is only exported when an OTLP endpoint is configured
func (c *Config) TelemetryEnabled() bool {
	return c.otlpEndpoint != ""
}

// How long fetched data is served without refetching
func (c *Config) StaleTime() time.Duration {
	return c.staleTime
}

// How long unobserved data is kept
func (c *Config) GracePeriod() time.Duration {
	return c.gracePeriod
}

func (c *Config) RequestsPerSecond() int {
	return c.requestsPerSecond
}

func (c *Config) RequestBurst() int {
	return c.requestsPerSecond * defaultRequestBurstFactor
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

func (c *Config) Environment() string {
	return string(c.env)
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, apiURL: %s, staleTime: %s, gracePeriod: %s, requestsPerSecond: %d, telemetry: %t, ...}",
		string(c.env), c.apiURL, c.staleTime, c.gracePeriod, c.requestsPerSecond, c.TelemetryEnabled(),
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("NOTESYNC_ENVIRONMENT")
	if !ok {
		return missingKey("NOTESYNC_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("NOTESYNC_ENVIRONMENT", rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	apiURL := os.Getenv("NOTESYNC_API_URL")
	sentryDSN := os.Getenv("SENTRY_DSN")
	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if env == production || env == staging {
		if apiURL == "" {
			return missingKey("NOTESYNC_API_URL")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	if apiURL == "" {
		apiURL = defaultDevelopmentAPIURL
	}
	parsedURL, err := url.Parse(apiURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return invalidValue("NOTESYNC_API_URL", apiURL)
	}

	staleTime := defaultStaleTime
	if raw := os.Getenv("NOTESYNC_STALE_TIME"); raw != "" {
		staleTime, err = time.ParseDuration(raw)
		if err != nil || staleTime < 0 {
			return invalidValue("NOTESYNC_STALE_TIME", raw)
		}
	}

	gracePeriod := defaultGracePeriod
	if raw := os.Getenv("NOTESYNC_GRACE_PERIOD"); raw != "" {
		gracePeriod, err = time.ParseDuration(raw)
		if err != nil || gracePeriod <= 0 {
			return invalidValue("NOTESYNC_GRACE_PERIOD", raw)
		}
	}

	requestsPerSecond := defaultRequestsPerSecond
	if raw := os.Getenv("NOTESYNC_REQUESTS_PER_SECOND"); raw != "" {
		requestsPerSecond, err = strconv.Atoi(raw)
		if err != nil || requestsPerSecond <= 0 {
			return invalidValue("NOTESYNC_REQUESTS_PER_SECOND", raw)
		}
	}

	return Config{
		apiURL:            apiURL,
		sentryDSN:         sentryDSN,
		otlpEndpoint:      otlpEndpoint,
		staleTime:         staleTime,
		gracePeriod:       gracePeriod,
		requestsPerSecond: requestsPerSecond,
		env:               env,
	}, nil
}
