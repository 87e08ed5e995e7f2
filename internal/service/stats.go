package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/leaderboard"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/progression"
	"github.com/and161185/spell-keeper/internal/repository"
)

// Profile is the account view with progress inside the current level.
type Profile struct {
	User              model.User
	XPIntoLevel       int64
	XPLevelSpan       int64
	XPNextLevel       int64
	UnlockedTalismans int
}

// StatsService serves read-only progress views. Reads do not take the per-user
// lock and observe committed state only.
type StatsService struct {
	users     repository.UserRepository
	talismans repository.TalismanRepository
	ranker    *leaderboard.Ranker
}

// NewStatsService constructs StatsService.
func NewStatsService(users repository.UserRepository, talismans repository.TalismanRepository, ranker *leaderboard.Ranker) *StatsService {
	return &StatsService{users: users, talismans: talismans, ranker: ranker}
}

// Stats returns the aggregate counters of a user.
func (s *StatsService) Stats(ctx context.Context, userID uuid.UUID) (model.UserStats, error) {
	if userID == uuid.Nil {
		return model.UserStats{}, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserStats{}, err
	}
	n, err := s.talismans.CountUnlocked(ctx, userID)
	if err != nil {
		return model.UserStats{}, err
	}
	return model.UserStats{
		XP:                   u.XP,
		Level:                progression.Level(u.XP),
		TotalSpellsCompleted: u.TotalSpellsCompleted,
		CurrentStreak:        u.CurrentStreak,
		MaxStreak:            u.MaxStreak,
		UnlockedTalismans:    n,
	}, nil
}

// Profile returns the user without changing anything.
func (s *StatsService) Profile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	if userID == uuid.Nil {
		return Profile{}, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	n, err := s.talismans.CountUnlocked(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	into, span := progression.Progress(u.XP)
	return Profile{
		User:              *u,
		XPIntoLevel:       into,
		XPLevelSpan:       span,
		XPNextLevel:       progression.XPForLevel(progression.Level(u.XP) + 1),
		UnlockedTalismans: n,
	}, nil
}

// UserTalismans lists what the user unlocked, oldest first.
func (s *StatsService) UserTalismans(ctx context.Context, userID uuid.UUID) ([]model.UnlockedTalisman, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	return s.talismans.ListUnlocked(ctx, userID)
}

// Catalog lists every talisman.
func (s *StatsService) Catalog(ctx context.Context) ([]model.Talisman, error) {
	return s.talismans.List(ctx)
}

// Leaderboard returns the top users; see leaderboard.Ranker.Rank for limits.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.ranker.Rank(ctx, limit)
}
