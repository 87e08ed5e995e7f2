package postgres

import (
	"context"
	"errors"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// SpellRepo implements SpellRepository using PostgreSQL.
type SpellRepo struct{ db *DB }

// NewSpellRepo constructs a spell repository.
func NewSpellRepo(db *DB) *SpellRepo { return &SpellRepo{db: db} }

// querier is the subset shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const spellCols = `id, user_id, title, description, repeat_type, xp_reward, created_at`

func scanSpell(row pgx.Row) (*model.Spell, error) {
	var (
		s      model.Spell
		repeat string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Description, &repeat, &s.XPReward, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.RepeatType = model.RepeatType(repeat)
	s.Completed = map[string]struct{}{}
	return &s, nil
}

// loadSpell reads a spell owned by userID together with its period keys.
func loadSpell(ctx context.Context, q querier, userID, spellID uuid.UUID, forUpdate bool) (*model.Spell, error) {
	sel := `SELECT ` + spellCols + ` FROM spells WHERE id=$1 AND user_id=$2`
	if forUpdate {
		sel += ` FOR UPDATE`
	}
	s, err := scanSpell(q.QueryRow(ctx, sel, spellID, userID))
	if err != nil {
		return nil, err
	}
	const keys = `SELECT period_key FROM spell_completions WHERE spell_id=$1`
	rows, err := q.Query(ctx, keys, spellID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		s.Completed[k] = struct{}{}
	}
	return s, rows.Err()
}

// Create inserts a new spell.
func (r *SpellRepo) Create(ctx context.Context, s *model.Spell) error {
	const q = `
INSERT INTO spells (id, user_id, title, description, repeat_type, xp_reward)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`
	if err := r.db.Pool.QueryRow(ctx, q, s.ID, s.UserID, s.Title, s.Description, string(s.RepeatType), s.XPReward).
		Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	if s.Completed == nil {
		s.Completed = map[string]struct{}{}
	}
	return nil
}

// Get returns a spell with its completed period keys.
func (r *SpellRepo) Get(ctx context.Context, userID, spellID uuid.UUID) (*model.Spell, error) {
	return loadSpell(ctx, r.db.Pool, userID, spellID, false)
}

// List returns the user's spells ordered by creation time.
func (r *SpellRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Spell, error) {
	q := `SELECT ` + spellCols + ` FROM spells WHERE user_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	var (
		out   []model.Spell
		index = map[uuid.UUID]int{}
	)
	for rows.Next() {
		s, err := scanSpell(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[s.ID] = len(out)
		out = append(out, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	const keys = `SELECT spell_id, period_key FROM spell_completions WHERE user_id=$1`
	krows, err := r.db.Pool.Query(ctx, keys, userID)
	if err != nil {
		return nil, err
	}
	defer krows.Close()
	for krows.Next() {
		var (
			id uuid.UUID
			k  string
		)
		if err := krows.Scan(&id, &k); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].Completed[k] = struct{}{}
		}
	}
	return out, krows.Err()
}

// Update applies a partial update; nil patch fields keep their current value.
func (r *SpellRepo) Update(ctx context.Context, userID, spellID uuid.UUID, p model.SpellPatch) (*model.Spell, error) {
	const q = `
UPDATE spells SET
  title       = COALESCE($3, title),
  description = COALESCE($4, description),
  repeat_type = COALESCE($5, repeat_type),
  xp_reward   = COALESCE($6, xp_reward)
WHERE id=$1 AND user_id=$2`
	var repeat *string
	if p.RepeatType != nil {
		v := string(*p.RepeatType)
		repeat = &v
	}
	tag, err := r.db.Pool.Exec(ctx, q, spellID, userID, p.Title, p.Description, repeat, p.XPReward)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.ErrNotFound
	}
	return r.Get(ctx, userID, spellID)
}

// Delete removes a spell; its ledger rows go with it.
func (r *SpellRepo) Delete(ctx context.Context, userID, spellID uuid.UUID) error {
	const q = `DELETE FROM spells WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, spellID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
