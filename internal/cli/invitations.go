package cli

import (
	"fmt"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) invitationsCommand() *cobra.Command {
	invitations := &cobra.Command{
		Use:     "invitations",
		Aliases: []string{"invites"},
		Short:   "Answer and send invitations to notes",
	}
	invitations.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your pending invitations",
			Args:  cobra.NoArgs,
			RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
				return readQuery(cmd, r.deps.Client, r.deps.InvitationsQuery(), printInvitations)
			}),
		},
		r.respondCommand("accept", true),
		r.respondCommand("decline", false),
		r.sendInvitationCommand(),
	)
	return invitations
}

func (r *runner) respondCommand(verb string, accept bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <invitation-id>",
		Short: fmt.Sprintf("%s an invitation", verb),
		Args:  cobra.ExactArgs(1),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			outcome := r.deps.RespondToInvitation(cmd.Context(), args[0], accept)
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			if accept {
				fmt.Fprintf(cmd.OutOrStdout(), "Accepted invitation %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Declined invitation %s\n", args[0])
			}
			return nil
		}),
	}
}

func (r *runner) sendInvitationCommand() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "send <note-id> <email>",
		Short: "Invite someone to a note",
		Args:  cobra.ExactArgs(2),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			outcome := r.deps.SendInvitation(cmd.Context(), domain.InvitationInput{
				NoteID: args[0],
				Email:  args[1],
				Role:   domain.NoteRole(role),
			})
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Invited %s as %s\n", args[1], role)
			return nil
		}),
	}
	cmd.Flags().StringVar(&role, "role", string(domain.NoteRoleViewer), "editor or viewer")

	return cmd
}
