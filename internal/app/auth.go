package app

import (
	"context"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
)

type authenticator interface {
	Register(ctx context.Context, input domain.RegisterInput) (domain.User, error)
	Login(ctx context.Context, input domain.LoginInput) (domain.User, error)
	Logout(ctx context.Context) error
}

type Register func(ctx context.Context, input domain.RegisterInput) cache.Outcome[domain.User]

type Login func(ctx context.Context, input domain.LoginInput) cache.Outcome[domain.User]

type Logout func(ctx context.Context) cache.Outcome[struct{}]

func BuildRegister(client *cache.Client, auth authenticator) Register {
	mutation := cache.Mutation[domain.RegisterInput, domain.User]{
		Name: "register",
		Do: func(ctx context.Context, input domain.RegisterInput) (domain.User, error) {
			if err := domain.Validate(input); err != nil {
				return domain.User{}, err
			}
			return auth.Register(ctx, input)
		},
	}

	return func(ctx context.Context, input domain.RegisterInput) cache.Outcome[domain.User] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}

func BuildLogin(client *cache.Client, auth authenticator) Login {
	mutation := cache.Mutation[domain.LoginInput, domain.User]{
		Name: "login",
		Do: func(ctx context.Context, input domain.LoginInput) (domain.User, error) {
			if err := domain.Validate(input); err != nil {
				return domain.User{}, err
			}
			return auth.Login(ctx, input)
		},
		Confirm: func(tx *cache.Tx, _ domain.LoginInput, user domain.User) {
			cache.SetData(tx, AuthKey(), &user)
		},
	}

	return func(ctx context.Context, input domain.LoginInput) cache.Outcome[domain.User] {
		return cache.Mutate(ctx, client, mutation, input)
	}
}

// Logout only ends the remote session, clearing local state is up to the caller
func BuildLogout(client *cache.Client, auth authenticator) Logout {
	mutation := cache.Mutation[struct{}, struct{}]{
		Name: "logout",
		Do: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, auth.Logout(ctx)
		},
	}

	return func(ctx context.Context) cache.Outcome[struct{}] {
		return cache.Mutate(ctx, client, mutation, struct{}{})
	}
}
