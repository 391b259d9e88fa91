package domaintest

import (
	"time"

	"github.com/Amund211/notesync/internal/domain"
)

type noteBuilder struct {
	note *domain.Note
}

func (nb *noteBuilder) WithTitle(title string) *noteBuilder {
	nb.note.Title = title
	return nb
}

func (nb *noteBuilder) WithContent(content string) *noteBuilder {
	nb.note.Content = &content
	return nb
}

// Seen from a collaborator with the given role
func (nb *noteBuilder) WithRole(role domain.NoteRole) *noteBuilder {
	nb.note.Role = &role
	return nb
}

func (nb *noteBuilder) WithMember(memberID string, role domain.NoteRole) *noteBuilder {
	nb.note.Members = append(nb.note.Members, domain.NoteMember{
		ID:        memberID,
		Email:     memberID + "@example.com",
		Role:      role,
		CreatedAt: nb.note.CreatedAt,
	})
	return nb
}

func (nb *noteBuilder) Build() domain.Note {
	note := *nb.note
	// Copy, so further calls to the builder don't affect the returned note
	note.Members = append([]domain.NoteMember(nil), nb.note.Members...)
	return note
}

// The note as it appears in the notes list
func (nb *noteBuilder) BuildUserNote() domain.UserNote {
	return domain.UserNote{
		ID:        nb.note.ID,
		UserID:    nb.note.UserID,
		Title:     nb.note.Title,
		Role:      nb.note.Role,
		CreatedAt: nb.note.CreatedAt,
		UpdatedAt: nb.note.UpdatedAt,
	}
}

func NewNoteBuilder(id string, ownerID string, createdAt time.Time) *noteBuilder {
	return &noteBuilder{
		note: &domain.Note{
			ID:     id,
			UserID: ownerID,
			Title:  "Untitled",
			Owner: domain.NoteOwner{
				ID:    ownerID,
				Email: ownerID + "@example.com",
			},
			Members:   []domain.NoteMember{},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
	}
}
