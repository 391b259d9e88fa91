package app

import (
	"context"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type noteWriter interface {
	CreateNote(ctx context.Context, input domain.NoteInput) (domain.Note, error)
	UpdateNote(ctx context.Context, noteID string, input domain.NoteInput) error
	DeleteNote(ctx context.Context, noteID string) error
}

type CreateNote func(ctx context.Context, input domain.NoteInput) cache.Outcome[domain.Note]

type UpdateNote func(ctx context.Context, noteID string, input domain.NoteInput) cache.Outcome[struct{}]

type DeleteNote func(ctx context.Context, noteID string) cache.Outcome[struct{}]

type updateNoteVars struct {
	noteID string
	input  domain.NoteInput
}

func invalidateNotes[V any](V) []cache.Matcher {
	return []cache.Matcher{cache.Prefix(notesResource)}
}

func BuildCreateNote(client *cache.Client, writer noteWriter) CreateNote {
	mutation := cache.Mutation[domain.NoteInput, domain.Note]{
		Name: "createNote",
		Do: func(ctx context.Context, input domain.NoteInput) (domain.Note, error) {
			input = input.Normalized()
			if err := domain.Validate(input); err != nil {
				return domain.Note{}, err
			}
			return writer.CreateNote(ctx, input)
		},
		Confirm: func(tx *cache.Tx, _ domain.NoteInput, note domain.Note) {
			cache.SetData(tx, NoteKey(note.ID), note)
		},
		Invalidates: invalidateNotes[domain.NoteInput],
	}

	return func(ctx context.Context, input domain.NoteInput) cache.Outcome[domain.Note] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}

func BuildUpdateNote(client *cache.Client, writer noteWriter) UpdateNote {
	mutation := cache.Mutation[updateNoteVars, struct{}]{
		Name: "updateNote",
		Do: func(ctx context.Context, vars updateNoteVars) (struct{}, error) {
			input := vars.input.Normalized()
			if err := domain.Validate(input); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, writer.UpdateNote(ctx, vars.noteID, input)
		},
		Invalidates: invalidateNotes[updateNoteVars],
	}

	return func(ctx context.Context, noteID string, input domain.NoteInput) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, updateNoteVars{noteID: noteID, input: input})
	}
}

func BuildDeleteNote(client *cache.Client, writer noteWriter) DeleteNote {
	mutation := cache.Mutation[string, struct{}]{
		Name: "deleteNote",
		Do: func(ctx context.Context, noteID string) (struct{}, error) {
			return struct{}{}, writer.DeleteNote(ctx, noteID)
		},
		Invalidates: invalidateNotes[string],
	}

	return func(ctx context.Context, noteID string) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, noteID)
	}
}
