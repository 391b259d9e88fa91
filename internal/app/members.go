package app

import (
	"context"
	"fmt"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type memberManager interface {
	KickMember(ctx context.Context, noteID, memberID string) error
	UpdateMemberRole(ctx context.Context, input domain.MemberRoleInput) error
}

type KickMember func(ctx context.Context, noteID, memberID string) cache.Outcome[struct{}]

type UpdateMemberRole func(ctx context.Context, input domain.MemberRoleInput) cache.Outcome[struct{}]

type kickMemberVars struct {
	noteID   string
	memberID string
}

func BuildKickMember(client *cache.Client, manager memberManager) KickMember {
	mutation := cache.Mutation[kickMemberVars, struct{}]{
		Name: "kickMember",
		Do: func(ctx context.Context, vars kickMemberVars) (struct{}, error) {
			if vars.noteID == "" || vars.memberID == "" {
				return struct{}{}, fmt.Errorf("%w: note id and member id are required", domain.ErrValidation)
			}
			return struct{}{}, manager.KickMember(ctx, vars.noteID, vars.memberID)
		},
		Invalidates: func(vars kickMemberVars) []cache.Matcher {
			return []cache.Matcher{cache.Exact(NoteKey(vars.noteID))}
		},
	}

	return func(ctx context.Context, noteID, memberID string) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, kickMemberVars{noteID: noteID, memberID: memberID})
	}
}

func BuildUpdateMemberRole(client *cache.Client, manager memberManager) UpdateMemberRole {
	mutation := cache.Mutation[domain.MemberRoleInput, struct{}]{
		Name: "updateMemberRole",
		Do: func(ctx context.Context, input domain.MemberRoleInput) (struct{}, error) {
			if err := domain.Validate(input); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, manager.UpdateMemberRole(ctx, input)
		},
		Invalidates: func(input domain.MemberRoleInput) []cache.Matcher {
			return []cache.Matcher{cache.Exact(NoteKey(input.NoteID))}
		},
	}

	return func(ctx context.Context, input domain.MemberRoleInput) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}
