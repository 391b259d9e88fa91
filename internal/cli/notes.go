package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) notesCommand() *cobra.Command {
	notes := &cobra.Command{
		Use:   "notes",
		Short: "List, read and edit notes",
	}
	notes.AddCommand(
		r.listNotesCommand(),
		r.showNoteCommand(),
		r.createNoteCommand(),
		r.updateNoteCommand(),
		r.deleteNoteCommand(),
	)
	return notes
}

func (r *runner) listNotesCommand() *cobra.Command {
	query := domain.DefaultNotesQuery()
	var role, order string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your notes and the notes shared with you",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			query.Role = domain.NoteRole(role)
			query.Order = domain.SortOrder(order)
			if err := query.Validate(); err != nil {
				return err
			}
			if err := readQuery(cmd, r.deps.Client, r.deps.NotesListQuery(query), printNotesPage); err != nil {
				return err
			}
			r.prefetchNextPage(query)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVarP(&query.Search, "search", "q", "", "only notes with titles matching the search")
	flags.StringVar(&role, "role", "", "only notes where you are owner, editor or viewer")
	flags.StringVar(&query.Sort, "sort", query.Sort, "field to sort by")
	flags.StringVar(&order, "order", string(query.Order), "asc or desc")
	flags.IntVar(&query.Page, "page", query.Page, "page to show, starting at 1")
	flags.IntVar(&query.PageSize, "page-size", query.PageSize, "notes per page")

	return cmd
}

// Start loading the page after the one shown, if there is one
func (r *runner) prefetchNextPage(query domain.NotesQuery) {
	page, err := cache.GetQueryData[domain.Pagination[domain.UserNote]](r.deps.Client, r.deps.NotesListQuery(query).Key)
	if err != nil || page.PageSize <= 0 || page.Page*page.PageSize >= page.Total {
		return
	}
	cache.Prefetch(r.deps.Client, r.deps.NotesListQuery(query.WithPage(page.Page+1)))
}

func (r *runner) showNoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <note-id>",
		Short: "Show a note with its members",
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			return readQuery(cmd, r.deps.Client, r.deps.NoteQuery(args[0]), printNote)
		}),
	}
}

// Content from --content or --content-file, nil when neither is given
func contentFromFlags(cmd *cobra.Command, content, contentFile string) (*string, error) {
	if contentFile != "" {
		var data []byte
		var err error
		if contentFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(contentFile)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
		text := string(data)
		return &text, nil
	}

	if cmd.Flags().Changed("content") {
		return &content, nil
	}
	return nil, nil
}

func (r *runner) createNoteCommand() *cobra.Command {
	var title, content, contentFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			input := domain.NoteInput{Title: title}
			var err error
			input.Content, err = contentFromFlags(cmd, content, contentFile)
			if err != nil {
				return err
			}

			outcome := r.deps.CreateNote(cmd.Context(), input)
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created note %s\n", outcome.Result.ID)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVarP(&title, "title", "t", "", "title of the note")
	flags.StringVarP(&content, "content", "c", "", "content of the note")
	flags.StringVar(&contentFile, "content-file", "", "read the content from a file, - for stdin")

	return cmd
}

func (r *runner) updateNoteCommand() *cobra.Command {
	var title, content, contentFile string

	cmd := &cobra.Command{
		Use:   "update <note-id>",
		Short: "Change the title or content of a note",
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			noteID := args[0]

			newContent, err := contentFromFlags(cmd, content, contentFile)
			if err != nil {
				return err
			}

			// Fields that aren't given keep their current value
			current, err := cache.Fetch(cmd.Context(), r.deps.Client, r.deps.NoteQuery(noteID))
			if err != nil {
				return err
			}
			input := domain.NoteInput{Title: current.Title, Content: current.Content}
			if cmd.Flags().Changed("title") {
				input.Title = title
			}
			if newContent != nil {
				input.Content = newContent
			}

			outcome := r.deps.UpdateNote(cmd.Context(), noteID, input)
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %s\n", noteID)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVarP(&title, "title", "t", "", "new title")
	flags.StringVarP(&content, "content", "c", "", "new content")
	flags.StringVar(&contentFile, "content-file", "", "read the new content from a file, - for stdin")

	return cmd
}

func (r *runner) deleteNoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note you own",
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			outcome := r.deps.DeleteNote(cmd.Context(), args[0])
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
			return nil
		}),
	}
}
