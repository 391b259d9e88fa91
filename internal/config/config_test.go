package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/Amund211/notesync/internal/config"
	"github.com/stretchr/testify/require"
)

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

var requiredOutsideDevelopment = []string{"NOTESYNC_API_URL", "SENTRY_DSN"}

var optionalVariables = []string{
	"NOTESYNC_STALE_TIME",
	"NOTESYNC_GRACE_PERIOD",
	"NOTESYNC_REQUESTS_PER_SECOND",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, variable := range append(requiredOutsideDevelopment, optionalVariables...) {
		t.Setenv(variable, "")
	}
}

func TestGetConfig(t *testing.T) {
	compareEnv := func(env environment, conf config.Config) {
		t.Helper()
		require.Equal(t, env == production, conf.IsProduction())
		require.Equal(t, env == staging, conf.IsStaging())
		require.Equal(t, env == development, conf.IsDevelopment())
		require.Equal(t, string(env), conf.Environment())
	}

	t.Run("environment is missing", func(t *testing.T) {
		// NOTESYNC_ENVIRONMENT is required, so this should fail
		t.Setenv("NOTESYNC_ENVIRONMENT", "")
		require.NoError(t, os.Unsetenv("NOTESYNC_ENVIRONMENT"))

		_, err := config.ConfigFromEnv()
		require.ErrorIs(t, err, config.ErrMissingRequiredValue)
	})

	t.Run("development defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTESYNC_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		compareEnv(development, conf)
		require.Equal(t, "http://localhost:8080/api", conf.APIURL())
		require.Empty(t, conf.SentryDSN())
		require.False(t, conf.TelemetryEnabled())
		require.Equal(t, 30*time.Second, conf.StaleTime())
		require.Equal(t, 5*time.Minute, conf.GracePeriod())
		require.Equal(t, 10, conf.RequestsPerSecond())
		require.Equal(t, 20, conf.RequestBurst())
	})

	t.Run("values are read correctly", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTESYNC_API_URL", "https://notes.example.com/api")
		t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")
		t.Setenv("NOTESYNC_STALE_TIME", "1m")
		t.Setenv("NOTESYNC_GRACE_PERIOD", "10m")
		t.Setenv("NOTESYNC_REQUESTS_PER_SECOND", "3")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

		for _, env := range []environment{production, staging, development} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("NOTESYNC_ENVIRONMENT", string(env))

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)
				compareEnv(env, conf)
				require.Equal(t, "https://notes.example.com/api", conf.APIURL())
				require.Equal(t, "https://key@sentry.example.com/1", conf.SentryDSN())
				require.True(t, conf.TelemetryEnabled())
				require.Equal(t, time.Minute, conf.StaleTime())
				require.Equal(t, 10*time.Minute, conf.GracePeriod())
				require.Equal(t, 3, conf.RequestsPerSecond())
				require.NotContains(t, conf.NonSensitiveString(), "sentry.example.com")
			})
		}
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTESYNC_API_URL", "https://notes.example.com/api")
		t.Setenv("SENTRY_DSN", "https://key@sentry.example.com/1")

		for _, env := range []environment{production, staging} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("NOTESYNC_ENVIRONMENT", string(env))

				for _, variable := range requiredOutsideDevelopment {
					t.Run(variable, func(t *testing.T) {
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		cases := []struct {
			variable string
			value    string
		}{
			{variable: "NOTESYNC_ENVIRONMENT", value: "my-env"},
			{variable: "NOTESYNC_ENVIRONMENT", value: ""},
			{variable: "NOTESYNC_API_URL", value: "not a url"},
			{variable: "NOTESYNC_API_URL", value: "/relative"},
			{variable: "NOTESYNC_STALE_TIME", value: "soon"},
			{variable: "NOTESYNC_STALE_TIME", value: "-1s"},
			{variable: "NOTESYNC_GRACE_PERIOD", value: "0s"},
			{variable: "NOTESYNC_REQUESTS_PER_SECOND", value: "0"},
			{variable: "NOTESYNC_REQUESTS_PER_SECOND", value: "many"},
		}

		for _, c := range cases {
			t.Run(c.variable+"="+c.value, func(t *testing.T) {
				clearEnv(t)
				t.Setenv("NOTESYNC_ENVIRONMENT", "development")
				t.Setenv(c.variable, c.value)

				_, err := config.ConfigFromEnv()
				require.ErrorIs(t, err, config.ErrInvalidValue)
			})
		}
	})
}
