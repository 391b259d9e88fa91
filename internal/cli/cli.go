package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Amund211/notesync/internal/app"
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/logging"
	"github.com/Amund211/notesync/internal/reporting"
	"github.com/Amund211/notesync/internal/session"
	"github.com/spf13/cobra"
)

// Read instead of prompting when set
const passwordEnv = "NOTESYNC_PASSWORD"

// Dependencies are the queries and mutations the commands run
type Dependencies struct {
	Client  *cache.Client
	Session *session.Session

	AuthCheckQuery    app.AuthCheckQuery
	NotesListQuery    app.NotesListQuery
	NoteQuery         app.NoteQuery
	InvitationsQuery  app.InvitationsQuery
	PrefetchDashboard app.PrefetchDashboard

	Register            app.Register
	CreateNote          app.CreateNote
	UpdateNote          app.UpdateNote
	DeleteNote          app.DeleteNote
	KickMember          app.KickMember
	UpdateMemberRole    app.UpdateMemberRole
	RespondToInvitation app.RespondToInvitation
	SendInvitation      app.SendInvitation
	UpdateName          app.UpdateName
	UpdateEmail         app.UpdateEmail
	UpdatePassword      app.UpdatePassword
}

type runner struct {
	deps Dependencies

	mu          sync.Mutex
	initialized bool
}

// NewRootCommand builds the notesync command tree. Without a subcommand it
// starts the interactive shell, where every command shares one session and cache.
func NewRootCommand(deps Dependencies) *cobra.Command {
	r := &runner{deps: deps}
	return r.rootCommand(true)
}

func (r *runner) rootCommand(interactive bool) *cobra.Command {
	var email string

	root := &cobra.Command{
		Use:           "notesync",
		Short:         "Collaborative notes from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Prompts read line by line from the same buffer
			if _, ok := cmd.InOrStdin().(*bufio.Reader); !ok {
				cmd.Root().SetIn(bufio.NewReader(cmd.InOrStdin()))
			}

			if err := r.ensureSession(ctx); err != nil {
				return err
			}

			if email != "" && !r.deps.Session.IsAuthenticated() {
				if err := r.login(cmd, email); err != nil {
					return err
				}
			}

			cmd.SetContext(r.commandContext(ctx, cmd))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&email, "email", "", fmt.Sprintf("log in as this user first, reading the password from %s", passwordEnv))

	root.AddCommand(
		r.loginCommand(),
		r.logoutCommand(),
		r.registerCommand(),
		r.whoamiCommand(),
		r.notesCommand(),
		r.membersCommand(),
		r.invitationsCommand(),
		r.profileCommand(),
		r.dashboardCommand(),
		r.watchCommand(),
	)

	if interactive {
		shell := r.shellCommand()
		root.AddCommand(shell)
		root.RunE = shell.RunE
	}

	return root
}

// Resolve the current user once per process
func (r *runner) ensureSession(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}
	if err := r.deps.Session.Init(ctx); err != nil {
		return err
	}
	r.initialized = true
	return nil
}

func (r *runner) commandContext(ctx context.Context, cmd *cobra.Command) context.Context {
	name := cmd.CommandPath()

	ctx = reporting.AddHubToContext(ctx)
	ctx = reporting.StartCommand(ctx, name, time.Now())
	ctx = logging.AddMetaToContext(ctx, slog.String("command", name))
	return r.deps.Session.AddUserToContext(ctx)
}

func (r *runner) login(cmd *cobra.Command, email string) error {
	password, err := readSecret(cmd, "Password: ")
	if err != nil {
		return err
	}

	outcome := r.deps.Session.Login(cmd.Context(), domain.LoginInput{Email: email, Password: password})
	if !outcome.Succeeded() {
		return outcome.Err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", outcome.Result.DisplayName())
	return nil
}

// Execute runs the command tree with the process arguments and prints errors
// for the user. Returns the exit code.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if password := os.Getenv(passwordEnv); password != "" {
		return password, nil
	}
	return promptLine(cmd, prompt)
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := readLine(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return line, nil
}
