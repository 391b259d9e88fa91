package cli

import (
	"fmt"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in",
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			return r.login(cmd, args[0])
		}),
	}
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget all cached data",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			if !r.deps.Session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			outcome := r.deps.Session.Logout(cmd.Context())
			if outcome.Err != nil && !r.deps.Session.IsAuthenticated() {
				// Already logged out on the server
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			}
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (r *runner) registerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, "Password: ")
			if err != nil {
				return err
			}
			confirmation, err := readSecret(cmd, "Confirm password: ")
			if err != nil {
				return err
			}

			outcome := r.deps.Register(cmd.Context(), domain.RegisterInput{
				Email:           args[0],
				Password:        password,
				ConfirmPassword: confirmation,
			})
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Log in with 'login %s'.\n", outcome.Result.Email, outcome.Result.Email)
			return nil
		}),
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			return readQuery(cmd, r.deps.Client, r.deps.AuthCheckQuery(), printAuth)
		}),
	}
}
