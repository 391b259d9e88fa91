package app

import (
	"context"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type profileUpdater interface {
	UpdateName(ctx context.Context, input domain.NameInput) error
	UpdateEmail(ctx context.Context, input domain.EmailInput) error
	UpdatePassword(ctx context.Context, input domain.PasswordUpdateInput) error
}

type UpdateName func(ctx context.Context, input domain.NameInput) cache.Outcome[struct{}]

type UpdateEmail func(ctx context.Context, input domain.EmailInput) cache.Outcome[struct{}]

type UpdatePassword func(ctx context.Context, input domain.PasswordUpdateInput) cache.Outcome[struct{}]

func invalidateAuth[V any](V) []cache.Matcher {
	return []cache.Matcher{AuthFamily()}
}

// All profile updates share the same shape: validate, send, refresh the current user
func buildProfileMutation[V any](
	client *cache.Client,
	name string,
	normalize func(V) V,
	send func(ctx context.Context, input V) error,
) func(ctx context.Context, input V) cache.Outcome[struct{}] {
	mutation := cache.Mutation[V, struct{}]{
		Name: name,
		Do: func(ctx context.Context, input V) (struct{}, error) {
			if normalize != nil {
				input = normalize(input)
			}
			if err := domain.Validate(input); err != nil {
				return struct{}{}, err
			}
			return struct{}{}, send(ctx, input)
		},
		Invalidates: invalidateAuth[V],
	}

	return func(ctx context.Context, input V) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}

func BuildUpdateName(client *cache.Client, updater profileUpdater) UpdateName {
	return buildProfileMutation(client, "updateName", domain.NameInput.Normalized, updater.UpdateName)
}

func BuildUpdateEmail(client *cache.Client, updater profileUpdater) UpdateEmail {
	return buildProfileMutation(client, "updateEmail", domain.EmailInput.Normalized, updater.UpdateEmail)
}

func BuildUpdatePassword(client *cache.Client, updater profileUpdater) UpdatePassword {
	return buildProfileMutation(client, "updatePassword", nil, updater.UpdatePassword)
}
