// Package memory is a process-local implementation of the repository interfaces,
// used for development and tests. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// Store holds all state behind one RWMutex. Completions additionally take a
// per-user mutex for the whole unit of work so two completions of the same user
// never interleave.
type Store struct {
	mu        sync.RWMutex
	users     map[uuid.UUID]*model.User
	byEmail   map[string]uuid.UUID
	byName    map[string]uuid.UUID
	spells    map[uuid.UUID]*model.Spell
	talismans map[uuid.UUID]model.Talisman
	unlocked  map[uuid.UUID]map[uuid.UUID]time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     map[uuid.UUID]*model.User{},
		byEmail:   map[string]uuid.UUID{},
		byName:    map[string]uuid.UUID{},
		spells:    map[uuid.UUID]*model.Spell{},
		talismans: map[uuid.UUID]model.Talisman{},
		unlocked:  map[uuid.UUID]map[uuid.UUID]time.Time{},
		locks:     map[uuid.UUID]*sync.Mutex{},
		now:       time.Now,
	}
}

// Users returns the UserRepository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// Spells returns the SpellRepository view.
func (s *Store) Spells() *SpellRepo { return &SpellRepo{s} }

// Progress returns the ProgressRepository view.
func (s *Store) Progress() *ProgressRepo { return &ProgressRepo{s} }

// Talismans returns the TalismanRepository view.
func (s *Store) Talismans() *TalismanRepo { return &TalismanRepo{s} }

// Leaderboard returns the LeaderboardRepository view.
func (s *Store) Leaderboard() *LeaderboardRepo { return &LeaderboardRepo{s} }

var (
	_ repository.UserRepository        = (*UserRepo)(nil)
	_ repository.SpellRepository       = (*SpellRepo)(nil)
	_ repository.ProgressRepository    = (*ProgressRepo)(nil)
	_ repository.TalismanRepository    = (*TalismanRepo)(nil)
	_ repository.LeaderboardRepository = (*LeaderboardRepo)(nil)
)

func (s *Store) userLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.LastCompletionDate != nil {
		d := *u.LastCompletionDate
		c.LastCompletionDate = &d
	}
	c.PwdHash = append([]byte(nil), u.PwdHash...)
	c.SaltAuth = append([]byte(nil), u.SaltAuth...)
	return &c
}

func copySpell(sp *model.Spell) *model.Spell {
	c := *sp
	c.Completed = make(map[string]struct{}, len(sp.Completed))
	for k := range sp.Completed {
		c.Completed[k] = struct{}{}
	}
	return &c
}

// UserRepo is the in-memory UserRepository.
type UserRepo struct{ s *Store }

// Create inserts a user; username and email are unique.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := s.byName[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	c := copyUser(u)
	c.XP, c.CurrentStreak, c.MaxStreak, c.TotalSpellsCompleted = 0, 0, 0, 0
	c.Level = 1
	c.LastCompletionDate = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	u.Level, u.CreatedAt = c.Level, c.CreatedAt
	s.users[c.ID] = c
	s.byEmail[c.Email] = c.ID
	s.byName[c.Username] = c.ID
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyUser(u), nil
}

// GetByEmail loads a user by login email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyUser(r.s.users[id]), nil
}

// SpellRepo is the in-memory SpellRepository.
type SpellRepo struct{ s *Store }

// Create inserts a spell for an existing user.
func (r *SpellRepo) Create(_ context.Context, sp *model.Spell) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sp.UserID]; !ok {
		return errs.ErrNotFound
	}
	if _, ok := s.spells[sp.ID]; ok {
		return errs.ErrAlreadyExists
	}
	if sp.Completed == nil {
		sp.Completed = map[string]struct{}{}
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = s.now().UTC()
	}
	s.spells[sp.ID] = copySpell(sp)
	return nil
}

func (s *Store) ownedSpell(userID, spellID uuid.UUID) (*model.Spell, error) {
	sp, ok := s.spells[spellID]
	if !ok || sp.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return sp, nil
}

// Get returns a copy of a spell owned by userID.
func (r *SpellRepo) Get(_ context.Context, userID, spellID uuid.UUID) (*model.Spell, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sp, err := r.s.ownedSpell(userID, spellID)
	if err != nil {
		return nil, err
	}
	return copySpell(sp), nil
}

// List returns the user's spells ordered by creation time, then id.
func (r *SpellRepo) List(_ context.Context, userID uuid.UUID) ([]model.Spell, error) {
	r.s.mu.RLock()
	out := []model.Spell{}
	for _, sp := range r.s.spells {
		if sp.UserID == userID {
			out = append(out, *copySpell(sp))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Update applies a partial update.
func (r *SpellRepo) Update(_ context.Context, userID, spellID uuid.UUID, p model.SpellPatch) (*model.Spell, error) {
	lock := r.s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sp, err := r.s.ownedSpell(userID, spellID)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		sp.Title = *p.Title
	}
	if p.Description != nil {
		sp.Description = *p.Description
	}
	if p.RepeatType != nil {
		sp.RepeatType = *p.RepeatType
	}
	if p.XPReward != nil {
		sp.XPReward = *p.XPReward
	}
	return copySpell(sp), nil
}

// Delete removes a spell together with its ledger.
func (r *SpellRepo) Delete(_ context.Context, userID, spellID uuid.UUID) error {
	lock := r.s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.s.ownedSpell(userID, spellID); err != nil {
		return err
	}
	delete(r.s.spells, spellID)
	return nil
}
