package app

import (
	"context"
	"fmt"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type invitationManager interface {
	RespondToInvitation(ctx context.Context, invitationID string, accept bool) error
	SendInvitation(ctx context.Context, input domain.InvitationInput) error
}

type RespondToInvitation func(ctx context.Context, invitationID string, accept bool) cache.Outcome[struct{}]

type SendInvitation func(ctx context.Context, input domain.InvitationInput) cache.Outcome[struct{}]

type respondVars struct {
	invitationID string
	accept       bool
}

func BuildRespondToInvitation(client *cache.Client, manager invitationManager) RespondToInvitation {
	mutation := cache.Mutation[respondVars, struct{}]{
		Name: "respondToInvitation",
		Do: func(ctx context.Context, vars respondVars) (struct{}, error) {
			if vars.invitationID == "" {
				return struct{}{}, fmt.Errorf("%w: invitation id is required", domain.ErrValidation)
			}
			return struct{}{}, manager.RespondToInvitation(ctx, vars.invitationID, vars.accept)
		},
		// The invitation disappears from the list right away, whether accepted or declined
		Optimistic: func(tx *cache.Tx, vars respondVars) {
			cache.UpdateData(tx, InvitationsKey(), func(invitations []domain.NoteInvitation) []domain.NoteInvitation {
				return domain.WithoutInvitation(invitations, vars.invitationID)
			})
		},
		Invalidates: func(respondVars) []cache.Matcher {
			return []cache.Matcher{
				cache.Prefix(notesResource),
				cache.Prefix(invitationsResource),
			}
		},
	}

	return func(ctx context.Context, invitationID string, accept bool) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, respondVars{invitationID: invitationID, accept: accept})
	}
}

func BuildSendInvitation(client *cache.Client, manager invitationManager) SendInvitation {
	mutation := cache.Mutation[domain.InvitationInput, struct{}]{
		Name: "sendInvitation",
		Do: func(ctx context.Context, input domain.InvitationInput) (struct{}, error) {
			input = input.Normalized()
			if err := domain.Validate(input); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, manager.SendInvitation(ctx, input)
		},
		Invalidates: func(input domain.InvitationInput) []cache.Matcher {
			return []cache.Matcher{cache.Exact(NoteKey(input.NoteID))}
		},
	}

	return func(ctx context.Context, input domain.InvitationInput) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}
