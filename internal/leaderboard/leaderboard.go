// Package leaderboard ranks users by total experience.
package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/repository"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Ranker serves the public leaderboard.
type Ranker struct {
	repo repository.LeaderboardRepository
}

// NewRanker constructs a Ranker over repo.
func NewRanker(repo repository.LeaderboardRepository) *Ranker {
	return &Ranker{repo: repo}
}

// Rank returns at most limit entries, capped at MaxLimit. Ranks are 1-based and
// dense over the returned slice.
func (r *Ranker) Rank(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", errs.ErrInvalidArgument, limit)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	out, err := r.repo.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Sort orders entries by XP descending, ties broken by byte-wise username, and
// assigns ranks.
func Sort(entries []model.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
