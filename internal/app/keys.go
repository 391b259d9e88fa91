package app

import (
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

const (
	authResource        = "auth"
	notesResource       = "notes"
	invitationsResource = "note-invitations"
)

func AuthKey() cache.Key {
	return cache.NewKey(authResource)
}

func NotesListKey(query domain.NotesQuery) cache.Key {
	return cache.NewKey(notesResource, query)
}

func NoteKey(noteID string) cache.Key {
	return cache.NewKey(notesResource, noteID)
}

func InvitationsKey() cache.Key {
	return cache.NewKey(invitationsResource)
}

// Everything derived from the current user
func AuthFamily() cache.Matcher {
	return cache.Prefix(authResource)
}

// Everything cached for the current user except the user itself
func UserData() cache.Matcher {
	return cache.AnyOf(cache.Prefix(notesResource), cache.Prefix(invitationsResource))
}
