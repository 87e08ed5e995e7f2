package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/leaderboard"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// ProgressRepo is the in-memory ProgressRepository. Writes are staged on the
// transaction and applied together only when fn returns nil.
type ProgressRepo struct{ s *Store }

// WithinUserTx serializes fn against every other completion of the same user.
func (r *ProgressRepo) WithinUserTx(
	ctx context.Context, userID uuid.UUID,
	fn func(ctx context.Context, u *model.User, tx repository.ProgressTx) error,
) error {
	lock := r.s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.RLock()
	u, ok := r.s.users[userID]
	if ok {
		u = copyUser(u)
	}
	r.s.mu.RUnlock()
	if !ok {
		return errs.ErrNotFound
	}

	tx := &stagedTx{
		s:       r.s,
		userID:  userID,
		ledger:  map[uuid.UUID]map[string]struct{}{},
		unlocks: map[uuid.UUID]time.Time{},
	}
	if err := fn(ctx, u, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type stagedTx struct {
	s       *Store
	userID  uuid.UUID
	user    *model.User
	ledger  map[uuid.UUID]map[string]struct{}
	unlocks map[uuid.UUID]time.Time
}

var _ repository.ProgressTx = (*stagedTx)(nil)

func (t *stagedTx) Spell(_ context.Context, spellID uuid.UUID) (*model.Spell, error) {
	t.s.mu.RLock()
	sp, err := t.s.ownedSpell(t.userID, spellID)
	if err == nil {
		sp = copySpell(sp)
	}
	t.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	for k := range t.ledger[spellID] {
		sp.Completed[k] = struct{}{}
	}
	return sp, nil
}

func (t *stagedTx) RecordCompletion(_ context.Context, c model.Completion) error {
	t.s.mu.RLock()
	sp, err := t.s.ownedSpell(t.userID, c.SpellID)
	var done bool
	if err == nil {
		_, done = sp.Completed[c.PeriodKey]
	}
	t.s.mu.RUnlock()
	if err != nil {
		return err
	}
	if _, staged := t.ledger[c.SpellID][c.PeriodKey]; done || staged {
		return errs.ErrAlreadyCompleted
	}
	if t.ledger[c.SpellID] == nil {
		t.ledger[c.SpellID] = map[string]struct{}{}
	}
	t.ledger[c.SpellID][c.PeriodKey] = struct{}{}
	return nil
}

func (t *stagedTx) SaveProgress(_ context.Context, u *model.User) error {
	t.user = copyUser(u)
	return nil
}

func (t *stagedTx) UnlockedTalismanIDs(_ context.Context) (map[uuid.UUID]struct{}, error) {
	out := map[uuid.UUID]struct{}{}
	t.s.mu.RLock()
	for id := range t.s.unlocked[t.userID] {
		out[id] = struct{}{}
	}
	t.s.mu.RUnlock()
	for id := range t.unlocks {
		out[id] = struct{}{}
	}
	return out, nil
}

func (t *stagedTx) UnlockTalisman(_ context.Context, talismanID uuid.UUID, at time.Time) (bool, error) {
	t.s.mu.RLock()
	_, owned := t.s.unlocked[t.userID][talismanID]
	_, known := t.s.talismans[talismanID]
	t.s.mu.RUnlock()
	if !known {
		return false, errs.ErrNotFound
	}
	if _, staged := t.unlocks[talismanID]; owned || staged {
		return false, nil
	}
	t.unlocks[talismanID] = at
	return true, nil
}

// commit applies the staged writes. The caller still holds the user lock, so
// nothing staged can have been invalidated by another completion.
func (t *stagedTx) commit() {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.users[t.userID]; ok && t.user != nil {
		cur.XP = t.user.XP
		cur.Level = t.user.Level
		cur.CurrentStreak = t.user.CurrentStreak
		cur.MaxStreak = t.user.MaxStreak
		cur.TotalSpellsCompleted = t.user.TotalSpellsCompleted
		cur.LastCompletionDate = t.user.LastCompletionDate
	}
	for spellID, keys := range t.ledger {
		sp, ok := s.spells[spellID]
		if !ok {
			continue
		}
		for k := range keys {
			sp.Completed[k] = struct{}{}
		}
	}
	if len(t.unlocks) > 0 {
		if s.unlocked[t.userID] == nil {
			s.unlocked[t.userID] = map[uuid.UUID]time.Time{}
		}
		for id, at := range t.unlocks {
			s.unlocked[t.userID][id] = at
		}
	}
}

// TalismanRepo is the in-memory TalismanRepository.
type TalismanRepo struct{ s *Store }

// Seed upserts catalog entries. A stored talisman whose condition differs from
// the catalog fails the whole seed with errs.ErrInvalidConfiguration.
func (r *TalismanRepo) Seed(_ context.Context, catalog []model.Talisman) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range catalog {
		if cur, ok := r.s.talismans[t.ID]; ok && cur.Condition != t.Condition {
			return fmt.Errorf("%w: talisman %s condition changed from %s to %s",
				errs.ErrInvalidConfiguration, t.ID, cur.Condition, t.Condition)
		}
	}
	for _, t := range catalog {
		r.s.talismans[t.ID] = t
	}
	return nil
}

// List returns the catalog ordered by name.
func (r *TalismanRepo) List(_ context.Context) ([]model.Talisman, error) {
	r.s.mu.RLock()
	out := make([]model.Talisman, 0, len(r.s.talismans))
	for _, t := range r.s.talismans {
		out = append(out, t)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListUnlocked returns a user's talismans, oldest unlock first.
func (r *TalismanRepo) ListUnlocked(_ context.Context, userID uuid.UUID) ([]model.UnlockedTalisman, error) {
	r.s.mu.RLock()
	out := make([]model.UnlockedTalisman, 0, len(r.s.unlocked[userID]))
	for id, at := range r.s.unlocked[userID] {
		out = append(out, model.UnlockedTalisman{Talisman: r.s.talismans[id], UnlockedAt: at})
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// CountUnlocked returns how many talismans a user owns.
func (r *TalismanRepo) CountUnlocked(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.unlocked[userID]), nil
}

// LeaderboardRepo is the in-memory LeaderboardRepository.
type LeaderboardRepo struct{ s *Store }

// Top ranks every user and returns the first limit entries.
func (r *LeaderboardRepo) Top(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	r.s.mu.RLock()
	all := make([]model.LeaderboardEntry, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, model.LeaderboardEntry{Username: u.Username, XP: u.XP, Level: u.Level})
	}
	r.s.mu.RUnlock()
	leaderboard.Sort(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
