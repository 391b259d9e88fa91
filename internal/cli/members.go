package cli

import (
	"fmt"

	"github.com/Amund211/notesync/internal/domain"
	"github.com/spf13/cobra"
)

func (r *runner) membersCommand() *cobra.Command {
	members := &cobra.Command{
		Use:   "members",
		Short: "Manage who has access to a note",
	}
	members.AddCommand(r.kickMemberCommand(), r.memberRoleCommand())
	return members
}

func (r *runner) kickMemberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <note-id> <member-id>",
		Short: "Remove a member from a note",
		Args:  cobra.ExactArgs(2),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			outcome := r.deps.KickMember(cmd.Context(), args[0], args[1])
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from note %s\n", args[1], args[0])
			return nil
		}),
	}
}

func (r *runner) memberRoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "role <note-id> <member-id> <editor|viewer>",
		Short: "Change the role of a member",
		Args:  cobra.ExactArgs(3),
		RunE: withMetrics(func(cmd *cobra.Command, args []string) error {
			outcome := r.deps.UpdateMemberRole(cmd.Context(), domain.MemberRoleInput{
				NoteID:   args[0],
				MemberID: args[1],
				Role:     domain.NoteRole(args[2]),
			})
			if err := outcomeError(cmd, outcome); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s of note %s\n", args[1], args[2], args[0])
			return nil
		}),
	}
}
