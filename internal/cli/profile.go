package cli

import (
	"fmt"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) profileCommand() *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
		Args:  cobra.NoArgs,
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			return readQuery(cmd, r.deps.Client, r.deps.AuthCheckQuery(), printAuth)
		}),
	}

	profile.AddCommand(
		&cobra.Command{
			Use:   "name <name>",
			Short: "Change your display name",
			Args:  cobra.ExactArgs(1),
			RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
				outcome := r.deps.UpdateName(cmd.Context(), domain.NameInput{Name: args[0]})
				if err := outcomeError(cmd, outcome); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Name updated")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "email <email>",
			Short: "Change your email address",
			Args:  cobra.ExactArgs(1),
			RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
				outcome := r.deps.UpdateEmail(cmd.Context(), domain.EmailInput{Email: args[0]})
				if err := outcomeError(cmd, outcome); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Email updated")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "password",
			Short: "Change your password",
			Args:  cobra.NoArgs,
			RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
				var input domain.PasswordUpdateInput
				prompts := []struct {
					prompt string
					value  *string
				}{
					{prompt: "Current password: ", value: &input.CurrentPassword},
					{prompt: "New password: ", value: &input.Password},
					{prompt: "Confirm new password: ", value: &input.ConfirmPassword},
				}
				for _, p := range prompts {
					value, err := promptLine(cmd, p.prompt)
					if err != nil {
						return err
					}
					*p.value = value
				}

				outcome := r.deps.UpdatePassword(cmd.Context(), input)
				if err := outcomeError(cmd, outcome); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password updated")
				return nil
			}),
		},
	)

	return profile
}
