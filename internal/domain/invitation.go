package domain

import "time"

type InvitationNote struct {
	ID    string
	Title string
}

type Inviter struct {
	ID    string
	Email string
	Name  *string
}

type NoteInvitation struct {
	ID      string
	Note    InvitationNote
	Inviter Inviter
	Role    NoteRole

	CreatedAt time.Time
}

func WithoutInvitation(invitations []NoteInvitation, id string) []NoteInvitation {
	filtered := make([]NoteInvitation, 0, len(invitations))
	for _, invitation := range invitations {
		if invitation.ID == id {
			continue
		}
		filtered = append(filtered, invitation)
	}
	return filtered
}
