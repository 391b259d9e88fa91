package app

import (
	"context"
	"fmt"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"golang.org/x/sync/errgroup"
)

type PrefetchDashboard func(ctx context.Context) error

// BuildPrefetchDashboard warms everything the dashboard shows at once
func BuildPrefetchDashboard(
	client *cache.Client,
	authCheckQuery AuthCheckQuery,
	notesListQuery NotesListQuery,
	invitationsQuery InvitationsQuery,
) PrefetchDashboard {
	return func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			_, err := cache.Fetch(ctx, client, authCheckQuery())
			return err
		})
		g.Go(func() error {
			_, err := cache.Fetch(ctx, client, notesListQuery(domain.DefaultNotesQuery()))
			return err
		})
		g.Go(func() error {
			_, err := cache.Fetch(ctx, client, invitationsQuery())
			return err
		})

		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to prefetch dashboard: %w", err)
		}
		return nil
	}
}
