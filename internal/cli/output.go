package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/Amund211/notesync/internal/adapters/transport"
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

const timeFormat = "2006-01-02 15:04"

// Subscription callbacks print from the goroutines that ran the fetch
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func readLine(r io.Reader) (string, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	line, err := br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type errorDescription struct {
	message string
	hint    string
}

func describeError(err error) errorDescription {
	message := err.Error()

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		message = statusErr.Message
	} else if errors.Is(err, domain.ErrValidation) {
		prefix := domain.ErrValidation.Error() + ": "
		if index := strings.LastIndex(message, prefix); index >= 0 {
			message = message[index+len(prefix):]
		}
	}

	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return errorDescription{message: "your session has expired", hint: "Log in again with 'login <email>'."}
	case errors.Is(err, domain.ErrUnauthorized):
		return errorDescription{message: message, hint: "Log in with 'login <email>' and try again."}
	case errors.Is(err, domain.ErrForbidden):
		return errorDescription{message: message, hint: "Ask the owner of the note for access."}
	case errors.Is(err, domain.ErrNotFound):
		return errorDescription{message: message, hint: "Check the id and try again."}
	case errors.Is(err, domain.ErrValidation):
		return errorDescription{message: message, hint: "Check the input and try again."}
	case errors.Is(err, domain.ErrNetwork):
		return errorDescription{message: "could not reach the server", hint: "Check your connection and try again."}
	case errors.Is(err, domain.ErrServer):
		return errorDescription{message: message, hint: "The server failed to handle the request. Try again in a moment."}
	case errors.Is(err, domain.ErrClient):
		return errorDescription{message: message, hint: "Try again."}
	}
	return errorDescription{message: message}
}

// PrintError writes the server message and what to do about it
func PrintError(w io.Writer, err error) {
	description := describeError(err)
	fmt.Fprintf(w, "Error: %s\n", description.message)
	if description.hint != "" {
		fmt.Fprintln(w, description.hint)
	}
}

// Print the result of the query. Cached data that is no longer fresh is
// printed right away marked as refreshing, followed by the refreshed data.
func readQuery[T any](cmd *cobra.Command, client *cache.Client, q cache.Query[T], render func(io.Writer, T)) error {
	out := cmd.OutOrStdout()

	state, fresh := cache.Peek[T](client, q.Key)
	showedCached := state.HasData && !fresh
	if showedCached {
		fmt.Fprintln(out, "(refreshing)")
		render(out, state.Data)
	}

	data, err := cache.Fetch(cmd.Context(), client, q)
	if err != nil {
		// Only failures to reach the server fall back to the cached data
		if !showedCached || !domain.IsTransient(err) {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Could not refresh, showing cached data: %s\n", describeError(err).message)
		return nil
	}

	if showedCached {
		fmt.Fprintln(out, "(refreshed)")
	}
	render(out, data)
	return nil
}

func outcomeError[R any](cmd *cobra.Command, outcome cache.Outcome[R]) error {
	if outcome.RolledBack {
		fmt.Fprintln(cmd.ErrOrStderr(), "Local changes were undone.")
	}
	return outcome.Err
}

func orDefault(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func roleLabel(role *domain.NoteRole) string {
	if role == nil {
		return string(domain.NoteRoleOwner)
	}
	return string(*role)
}

func printUser(w io.Writer, user domain.User) {
	fmt.Fprintf(w, "%s <%s>\n", orDefault(user.Name, "(no name)"), user.Email)
	fmt.Fprintf(w, "ID: %s\n", user.ID)
	if !user.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Session expires: %s\n", user.ExpiresAt.Format(timeFormat))
	}
}

func printAuth(w io.Writer, user *domain.User) {
	if user == nil {
		fmt.Fprintln(w, "Not logged in")
		return
	}
	printUser(w, *user)
}

func printNotesPage(w io.Writer, page domain.Pagination[domain.UserNote]) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No notes")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tROLE\tUPDATED")
	for _, note := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", note.ID, note.Title, roleLabel(note.Role), note.UpdatedAt.Format(timeFormat))
	}
	tw.Flush()

	pages := 1
	if page.PageSize > 0 {
		pages = max(1, (page.Total+page.PageSize-1)/page.PageSize)
	}
	fmt.Fprintf(w, "Page %d of %d (%d notes)\n", page.Page, pages, page.Total)
}

func printNote(w io.Writer, note domain.Note) {
	fmt.Fprintf(w, "%s\n", note.Title)
	fmt.Fprintf(w, "ID: %s\n", note.ID)
	fmt.Fprintf(w, "Owner: %s <%s>\n", orDefault(note.Owner.Name, "(no name)"), note.Owner.Email)
	fmt.Fprintf(w, "Your role: %s\n", roleLabel(note.Role))
	fmt.Fprintf(w, "Updated: %s\n", note.UpdatedAt.Format(timeFormat))

	if len(note.Members) > 0 {
		fmt.Fprintln(w, "Members:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, member := range note.Members {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", member.ID, member.Email, member.Role)
		}
		tw.Flush()
	}

	if note.Content != nil && *note.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, *note.Content)
	}
}

func printInvitations(w io.Writer, invitations []domain.NoteInvitation) {
	if len(invitations) == 0 {
		fmt.Fprintln(w, "No pending invitations")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOTE\tROLE\tFROM")
	for _, invitation := range invitations {
		inviter := orDefault(invitation.Inviter.Name, invitation.Inviter.Email)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", invitation.ID, invitation.Note.Title, invitation.Role, inviter)
	}
	tw.Flush()
}
