package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively in one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.runShell(cmd)
		},
	}
}

func (r *runner) prompt() string {
	user, ok := r.deps.Session.CurrentUser()
	if !ok {
		return "notesync> "
	}
	return user.DisplayName() + "> "
}

func (r *runner) runShell(cmd *cobra.Command) error {
	ctx := cmd.Context()
	// Shared with commands that prompt for input
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	fmt.Fprintln(out, "Type 'help' to list commands and 'exit' to quit.")
	for ctx.Err() == nil {
		fmt.Fprint(out, r.prompt())

		line, err := readLine(in)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read command: %w", err)
		}

		args, err := splitArgs(line)
		if err != nil {
			PrintError(errOut, err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		// Flags are bound to the commands, so every line gets a fresh tree
		root := r.rootCommand(false)
		root.SetArgs(args)
		root.SetIn(in)
		root.SetOut(out)
		root.SetErr(errOut)
		if err := root.ExecuteContext(ctx); err != nil {
			PrintError(errOut, err)
		}
	}
	return nil
}

// Split a command line into arguments, honoring quotes and backslash escapes
func splitArgs(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	inArg := false
	escaped := false
	var quote rune

	for _, c := range line {
		switch {
		case escaped:
			current.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inArg = true
		case unicode.IsSpace(c):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(c)
			inArg = true
		}
	}

	if quote != 0 || escaped {
		return nil, fmt.Errorf("%w: unterminated quote or escape", domain.ErrValidation)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}

// NotifySessionExpired tells the user to log in again when the server ends the session
func NotifySessionExpired(w io.Writer) func(ctx context.Context) {
	return func(ctx context.Context) {
		fmt.Fprintln(w, "Your session has expired. Log in again with 'login <email>'.")
	}
}
