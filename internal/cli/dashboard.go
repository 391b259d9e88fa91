package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your profile, latest notes and pending invitations",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			if err := r.deps.PrefetchDashboard(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			client := r.deps.Client

			user, err := cache.GetQueryData[*domain.User](client, r.deps.AuthCheckQuery().Key)
			if err != nil {
				return fmt.Errorf("failed to read user: %w", err)
			}
			notes, err := cache.GetQueryData[domain.Pagination[domain.UserNote]](client, r.deps.NotesListQuery(domain.DefaultNotesQuery()).Key)
			if err != nil {
				return fmt.Errorf("failed to read notes: %w", err)
			}
			invitations, err := cache.GetQueryData[[]domain.NoteInvitation](client, r.deps.InvitationsQuery().Key)
			if err != nil {
				return fmt.Errorf("failed to read invitations: %w", err)
			}

			printAuth(out, user)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Notes")
			printNotesPage(out, notes)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Invitations")
			printInvitations(out, invitations)
			return nil
		}),
	}
}

func printState[T any](w io.Writer, title string, state cache.State[T], render func(io.Writer, T)) {
	switch {
	case state.IsLoading():
		fmt.Fprintf(w, "%s: loading\n", title)
	case state.IsRefreshing():
		fmt.Fprintf(w, "%s (refreshing)\n", title)
		render(w, state.Data)
	case state.Status == cache.StatusError && state.HasData:
		fmt.Fprintf(w, "%s (could not refresh: %s)\n", title, describeError(state.Err).message)
		render(w, state.Data)
	case state.Status == cache.StatusError:
		description := describeError(state.Err)
		fmt.Fprintf(w, "%s: %s. %s\n", title, description.message, description.hint)
	case state.HasData:
		fmt.Fprintln(w, title)
		render(w, state.Data)
	}
}

func (r *runner) watchCommand() *cobra.Command {
	var duration, interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow your notes and invitations as they change",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			client := r.deps.Client

			notes := cache.Subscribe(client, r.deps.NotesListQuery(domain.DefaultNotesQuery()), func(state cache.State[domain.Pagination[domain.UserNote]]) {
				printState(out, "Notes", state, printNotesPage)
			})
			defer notes.Unsubscribe()

			invitations := cache.Subscribe(client, r.deps.InvitationsQuery(), func(state cache.State[[]domain.NoteInvitation]) {
				printState(out, "Invitations", state, printInvitations)
			})
			defer invitations.Unsubscribe()

			printState(out, "Notes", notes.State(), printNotesPage)
			printState(out, "Invitations", invitations.State(), printInvitations)

			var refresh <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				refresh = ticker.C
			}

			for {
				select {
				case <-refresh:
					notes.Refetch()
					invitations.Refetch()
				case <-ctx.Done():
					fmt.Fprintln(out, "Stopped watching")
					return nil
				}
			}
		}),
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long, 0 to watch until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refetch this often, 0 to only refetch on changes")

	return cmd
}
