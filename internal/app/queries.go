package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type authChecker interface {
	CheckAuth(ctx context.Context) (domain.User, error)
}

type notesLister interface {
	ListNotes(ctx context.Context, query domain.NotesQuery) (domain.Pagination[domain.UserNote], error)
}

type noteGetter interface {
	GetNote(ctx context.Context, noteID string) (domain.Note, error)
}

type invitationsLister interface {
	ListInvitations(ctx context.Context) ([]domain.NoteInvitation, error)
}

// The current user, nil when not authenticated
type AuthCheckQuery func() cache.Query[*domain.User]

type NotesListQuery func(query domain.NotesQuery) cache.Query[domain.Pagination[domain.UserNote]]

type NoteQuery func(noteID string) cache.Query[domain.Note]

type InvitationsQuery func() cache.Query[[]domain.NoteInvitation]

func BuildAuthCheckQuery(checker authChecker) AuthCheckQuery {
	return func() cache.Query[*domain.User] {
		return cache.Query[*domain.User]{
			Key: AuthKey(),
			Fetch: func(ctx context.Context) (*domain.User, error) {
				user, err := checker.CheckAuth(ctx)
				if errors.Is(err, domain.ErrUnauthorized) {
					// Not being logged in is a valid state
					return nil, nil
				} else if err != nil {
					return nil, fmt.Errorf("failed to check auth: %w", err)
				}
				return &user, nil
			},
		}
	}
}

func BuildNotesListQuery(lister notesLister) NotesListQuery {
	return func(query domain.NotesQuery) cache.Query[domain.Pagination[domain.UserNote]] {
		return cache.Query[domain.Pagination[domain.UserNote]]{
			Key: NotesListKey(query),
			Fetch: func(ctx context.Context) (domain.Pagination[domain.UserNote], error) {
				if err := query.Validate(); err != nil {
					return domain.Pagination[domain.UserNote]{}, err
				}
				return lister.ListNotes(ctx, query)
			},
		}
	}
}

func BuildNoteQuery(getter noteGetter) NoteQuery {
	return func(noteID string) cache.Query[domain.Note] {
		return cache.Query[domain.Note]{
			Key: NoteKey(noteID),
			Fetch: func(ctx context.Context) (domain.Note, error) {
				if noteID == "" {
					return domain.Note{}, fmt.Errorf("%w: note id is required", domain.ErrValidation)
				}
				return getter.GetNote(ctx, noteID)
			},
		}
	}
}

func BuildInvitationsQuery(lister invitationsLister) InvitationsQuery {
	return func() cache.Query[[]domain.NoteInvitation] {
		return cache.Query[[]domain.NoteInvitation]{
			Key: InvitationsKey(),
			Fetch: func(ctx context.Context) ([]domain.NoteInvitation, error) {
				return lister.ListInvitations(ctx)
			},
		}
	}
}
