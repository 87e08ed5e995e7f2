package repository

import (
	"context"

	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SpellRepository provides owner-scoped CRUD for spells. Spells of other users are
// reported as errs.ErrNotFound.
type SpellRepository interface {
	// Create inserts a new spell.
	Create(ctx context.Context, s *model.Spell) error
	// Get returns a spell with its completed period keys.
	Get(ctx context.Context, userID, spellID uuid.UUID) (*model.Spell, error)
	// List returns all spells of a user ordered by creation time.
	List(ctx context.Context, userID uuid.UUID) ([]model.Spell, error)
	// Update applies a patch and returns the updated spell.
	Update(ctx context.Context, userID, spellID uuid.UUID, p model.SpellPatch) (*model.Spell, error)
	// Delete removes a spell and its ledger rows.
	Delete(ctx context.Context, userID, spellID uuid.UUID) error
}
