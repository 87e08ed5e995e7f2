// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User is the per-user progression aggregate. Progress fields are mutated only by the
// completion flow; credentials are never returned to clients.
type User struct {
	ID       uuid.UUID // PK
	Username string    // unique, shown on the leaderboard
	Email    string    // unique, login identity
	PwdHash  []byte    // Argon2id(password, SaltAuth)
	SaltAuth []byte    // per-user auth salt

	XP                   int64
	Level                int
	CurrentStreak        int
	MaxStreak            int
	TotalSpellsCompleted int64
	// LastCompletionDate is the calendar day of the latest DAILY completion (nil if none).
	LastCompletionDate *time.Time

	CreatedAt time.Time
}

// RepeatType is the recurrence cadence of a spell.
type RepeatType string

const (
	RepeatDaily  RepeatType = "DAILY"
	RepeatWeekly RepeatType = "WEEKLY"
)

// Valid reports whether r is a known cadence.
func (r RepeatType) Valid() bool {
	return r == RepeatDaily || r == RepeatWeekly
}

// Spell is a recurring task owned by exactly one user.
type Spell struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	RepeatType  RepeatType
	XPReward    int64
	// Completed holds the period keys already satisfied; membership is what matters.
	Completed map[string]struct{}
	CreatedAt time.Time
}

// CompletedKeys returns the satisfied period keys (unordered).
func (s *Spell) CompletedKeys() []string {
	out := make([]string, 0, len(s.Completed))
	for k := range s.Completed {
		out = append(out, k)
	}
	return out
}

// SpellPatch is a partial spell update; nil fields are left untouched.
type SpellPatch struct {
	Title       *string
	Description *string
	RepeatType  *RepeatType
	XPReward    *int64
}

// Completion is a single ledger row.
type Completion struct {
	SpellID     uuid.UUID
	UserID      uuid.UUID
	PeriodKey   string
	CompletedAt time.Time
}

// Talisman is a read-only catalog entry.
type Talisman struct {
	ID          uuid.UUID
	Name        string
	Description string
	IconURL     string
	Condition   string
}

// UnlockedTalisman joins a catalog entry with the unlock time for a user.
type UnlockedTalisman struct {
	Talisman
	UnlockedAt time.Time
}

// CompletionResult is returned by a successful spell completion.
type CompletionResult struct {
	XPGained          int64
	NewXP             int64
	OldLevel          int
	NewLevel          int
	LeveledUp         bool
	NewStreak         int
	UnlockedTalismans []Talisman
}

// UserStats is the aggregate view for the stats screen.
type UserStats struct {
	XP                   int64
	Level                int
	TotalSpellsCompleted int64
	CurrentStreak        int
	MaxStreak            int
	UnlockedTalismans    int
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank     int
	Username string
	XP       int64
	Level    int
}
