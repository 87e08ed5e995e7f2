package talisman

import (
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
)

// Engine holds a validated catalog and decides which talismans become newly unlocked.
type Engine struct {
	catalog []model.Talisman
}

// NewEngine validates the catalog. Unknown conditions, empty or duplicate ids are
// configuration defects and fail with errs.ErrInvalidConfiguration.
func NewEngine(catalog []model.Talisman) (*Engine, error) {
	seen := make(map[uuid.UUID]struct{}, len(catalog))
	for i, t := range catalog {
		if t.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: talisman[%d] has empty id", errs.ErrInvalidConfiguration, i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: talisman[%d] duplicate id %s", errs.ErrInvalidConfiguration, i, t.ID)
		}
		if t.Name == "" {
			return nil, fmt.Errorf("%w: talisman[%d] has empty name", errs.ErrInvalidConfiguration, i)
		}
		if !Known(Condition(t.Condition)) {
			return nil, fmt.Errorf("%w: talisman[%d] unknown condition %q", errs.ErrInvalidConfiguration, i, t.Condition)
		}
		seen[t.ID] = struct{}{}
	}
	out := make([]model.Talisman, len(catalog))
	copy(out, catalog)
	return &Engine{catalog: out}, nil
}

// Catalog returns a copy of the catalog in declaration order.
func (e *Engine) Catalog() []model.Talisman {
	out := make([]model.Talisman, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// Evaluate returns catalog entries whose condition holds for s and that are not in
// unlocked. Calling it again with the result merged into unlocked yields nothing.
func (e *Engine) Evaluate(s Snapshot, unlocked map[uuid.UUID]struct{}) []model.Talisman {
	var out []model.Talisman
	for _, t := range e.catalog {
		if _, already := unlocked[t.ID]; already {
			continue
		}
		if Holds(Condition(t.Condition), s) {
			out = append(out, t)
		}
	}
	return out
}
