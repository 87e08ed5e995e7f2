package repository

import (
	"context"
	"time"

	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProgressTx is the per-user unit of work used by the completion flow. All methods
// operate on the user that was locked when the transaction started.
type ProgressTx interface {
	// Spell loads one of the user's spells with its completed period keys.
	Spell(ctx context.Context, spellID uuid.UUID) (*model.Spell, error)
	// RecordCompletion inserts a ledger row; an existing (spell, period) yields errs.ErrAlreadyCompleted.
	RecordCompletion(ctx context.Context, c model.Completion) error
	// SaveProgress persists the progression fields of the locked user.
	SaveProgress(ctx context.Context, u *model.User) error
	// UnlockedTalismanIDs returns the talismans the user already owns.
	UnlockedTalismanIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)
	// UnlockTalisman records an unlock; it reports false when the pair already existed.
	UnlockTalisman(ctx context.Context, talismanID uuid.UUID, at time.Time) (bool, error)
}

// ProgressRepository runs fn with the user's aggregate locked for exclusive writing.
// Changes made through the tx are committed only if fn returns nil.
type ProgressRepository interface {
	WithinUserTx(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context, u *model.User, tx ProgressTx) error) error
}
