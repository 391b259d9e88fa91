package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Amund211/notesync/internal/adapters/notesapi"
	"github.com/Amund211/notesync/internal/adapters/transport"
	"github.com/Amund211/notesync/internal/app"
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/cli"
	"github.com/Amund211/notesync/internal/config"
	"github.com/Amund211/notesync/internal/logging"
	"github.com/Amund211/notesync/internal/ratelimiting"
	"github.com/Amund211/notesync/internal/reporting"
	"github.com/Amund211/notesync/internal/session"
	"github.com/Amund211/notesync/internal/telemetry"
	"github.com/google/uuid"

	_ "golang.org/x/crypto/x509roots/fallback"
)

const serviceName = "notesync"

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	instanceID := uuid.New().String()
	// Stdout belongs to the command output
	logger := logging.NewLogger(os.Stderr, slog.LevelWarn, slog.String("instanceID", instanceID))

	fail := func(msg string, args ...any) int {
		logger.Error(msg, args...)
		fmt.Fprintf(os.Stderr, "%s\n", msg)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.AddToContext(ctx, logger)

	conf, err := config.ConfigFromEnv()
	if err != nil {
		return fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	flush, err := reporting.InitSentryOrMock(conf, version)
	if err != nil {
		return fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()

	if conf.TelemetryEnabled() {
		shutdown, err := telemetry.SetupOTelSDK(ctx, serviceName, version)
		if err != nil {
			return fail("Failed to initialize telemetry", "error", err.Error())
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("Failed to shut down telemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized telemetry")
	}

	limiter, stopLimiter := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(conf.RequestsPerSecond()),
		ratelimiting.BurstSize(conf.RequestBurst()),
	)
	defer stopLimiter()

	httpClient, err := transport.NewHTTPClient(limiter)
	if err != nil {
		return fail("Failed to initialize HTTP client", "error", err.Error())
	}
	tr, err := transport.New(conf.APIURL(), httpClient, fmt.Sprintf("%s/%s", serviceName, version))
	if err != nil {
		return fail("Failed to initialize transport", "error", err.Error())
	}
	api := notesapi.New(tr)

	client, err := cache.NewClient(ctx,
		cache.WithStaleTime(conf.StaleTime()),
		cache.WithGracePeriod(conf.GracePeriod()),
	)
	if err != nil {
		return fail("Failed to initialize cache", "error", err.Error())
	}
	defer client.Close()

	authCheckQuery := app.BuildAuthCheckQuery(api)
	notesListQuery := app.BuildNotesListQuery(api)
	noteQuery := app.BuildNoteQuery(api)
	invitationsQuery := app.BuildInvitationsQuery(api)

	sess := session.New(
		client,
		authCheckQuery,
		app.BuildLogin(client, api),
		app.BuildLogout(client, api),
		session.WithOnExpired(cli.NotifySessionExpired(os.Stderr)),
	)
	defer sess.Close()
	tr.SetUnauthorizedHandler(sess.HandleUnauthorized)

	root := cli.NewRootCommand(cli.Dependencies{
		Client:  client,
		Session: sess,

		AuthCheckQuery:    authCheckQuery,
		NotesListQuery:    notesListQuery,
		NoteQuery:         noteQuery,
		InvitationsQuery:  invitationsQuery,
		PrefetchDashboard: app.BuildPrefetchDashboard(client, authCheckQuery, notesListQuery, invitationsQuery),

		Register:            app.BuildRegister(client, api),
		CreateNote:          app.BuildCreateNote(client, api),
		UpdateNote:          app.BuildUpdateNote(client, api),
		DeleteNote:          app.BuildDeleteNote(client, api),
		KickMember:          app.BuildKickMember(client, api),
		UpdateMemberRole:    app.BuildUpdateMemberRole(client, api),
		RespondToInvitation: app.BuildRespondToInvitation(client, api),
		SendInvitation:      app.BuildSendInvitation(client, api),
		UpdateName:          app.BuildUpdateName(client, api),
		UpdateEmail:         app.BuildUpdateEmail(client, api),
		UpdatePassword:      app.BuildUpdatePassword(client, api),
	})

	return cli.Execute(ctx, root)
}
