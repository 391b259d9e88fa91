package domain

import (
	"fmt"
	"time"
)

type NoteRole string

const (
	NoteRoleOwner  NoteRole = "owner"
	NoteRoleEditor NoteRole = "editor"
	NoteRoleViewer NoteRole = "viewer"
)

func ParseNoteRole(raw string) (NoteRole, error) {
	switch NoteRole(raw) {
	case NoteRoleOwner, NoteRoleEditor, NoteRoleViewer:
		return NoteRole(raw), nil
	}
	return "", fmt.Errorf("%w: invalid role '%s'", ErrValidation, raw)
}

// Roles that can be granted to collaborators
func (r NoteRole) IsAssignable() bool {
	return r == NoteRoleEditor || r == NoteRoleViewer
}

// A note as listed on the dashboard
type UserNote struct {
	ID     string
	UserID string
	Title  string
	// The role of the current user, nil when the current user owns the note
	Role *NoteRole

	CreatedAt time.Time
	UpdatedAt time.Time
}

type NoteOwner struct {
	ID    string
	Email string
	Name  *string
}

type NoteMember struct {
	ID    string
	Email string
	Name  *string
	Role  NoteRole

	CreatedAt time.Time
}

type Note struct {
	ID      string
	UserID  string
	Title   string
	Content *string
	Role    *NoteRole

	Owner   NoteOwner
	Members []NoteMember

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (n Note) IsOwnedBy(userID string) bool {
	return n.Owner.ID == userID
}

// Return a copy of the note without the member
func (n Note) WithoutMember(memberID string) Note {
	members := make([]NoteMember, 0, len(n.Members))
	for _, member := range n.Members {
		if member.ID == memberID {
			continue
		}
		members = append(members, member)
	}
	n.Members = members
	return n
}

// Return a copy of the note with the role of the member changed
func (n Note) WithMemberRole(memberID string, role NoteRole) Note {
	members := make([]NoteMember, len(n.Members))
	for i, member := range n.Members {
		if member.ID == memberID {
			member.Role = role
		}
		members[i] = member
	}
	n.Members = members
	return n
}
