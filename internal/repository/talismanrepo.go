package repository

import (
	"context"

	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TalismanRepository stores the catalog and read-side unlock views.
type TalismanRepository interface {
	// Seed upserts catalog entries; ids are stable across restarts.
	Seed(ctx context.Context, catalog []model.Talisman) error
	// List returns the full catalog.
	List(ctx context.Context) ([]model.Talisman, error)
	// ListUnlocked returns a user's talismans ordered by unlock time.
	ListUnlocked(ctx context.Context, userID uuid.UUID) ([]model.UnlockedTalisman, error)
	// CountUnlocked returns how many talismans a user owns.
	CountUnlocked(ctx context.Context, userID uuid.UUID) (int, error)
}

// LeaderboardRepository reads ranked user aggregates.
type LeaderboardRepository interface {
	// Top returns up to limit users ordered by xp DESC, username ASC.
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}
