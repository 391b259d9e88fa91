package domaintest

import (
	"time"

	"github.com/Amund211/notesync/internal/domain"
)

func NewUser(id string, name string, now time.Time) domain.User {
	user := domain.User{
		ID:        id,
		Email:     id + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	if name != "" {
		user.Name = &name
	}
	return user
}

func NewInvitation(id string, note domain.Note, inviter domain.User, role domain.NoteRole) domain.NoteInvitation {
	return domain.NoteInvitation{
		ID: id,
		Note: domain.InvitationNote{
			ID:    note.ID,
			Title: note.Title,
		},
		Inviter: domain.Inviter{
			ID:    inviter.ID,
			Email: inviter.Email,
			Name:  inviter.Name,
		},
		Role:      role,
		CreatedAt: note.CreatedAt,
	}
}
