package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type runE func(cmd *cobra.Command, args []string) error

type cliMetricsCollection struct {
	commandCount    metric.Int64Counter
	commandDuration metric.Float64Histogram
}

var metrics cliMetricsCollection

func init() {
	const name = "notesync/cli"
	meter := otel.Meter(name)

	commandCount, err := meter.Int64Counter(
		"cli/command_count",
		metric.WithDescription("Total number of commands run"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create command count metric: %w", err))
	}

	commandDuration, err := meter.Float64Histogram(
		"cli/command_duration_seconds",
		metric.WithDescription("Time spent running commands"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create command duration metric: %w", err))
	}

	metrics = cliMetricsCollection{
		commandCount:    commandCount,
		commandDuration: commandDuration,
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrClient):
		return "client_error"
	case errors.Is(err, domain.ErrServer):
		return "server_error"
	case errors.Is(err, domain.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}

func withMetrics(next runE) runE {
	return func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		ctx := cmd.Context()

		err := next(cmd, args)

		attributesOption := metric.WithAttributes(
			attribute.String("command", cmd.CommandPath()),
			attribute.String("result", resultOf(err)),
		)
		metrics.commandCount.Add(ctx, 1, attributesOption)
		metrics.commandDuration.Record(ctx, time.Since(start).Seconds(), attributesOption)

		return err
	}
}
