package postgres

import (
	"context"
	"time"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ProgressRepo implements ProgressRepository: the user row lock serializes every
// completion of the same user, across spells and across server instances.
type ProgressRepo struct{ db *DB }

// NewProgressRepo constructs a progress repository.
func NewProgressRepo(db *DB) *ProgressRepo { return &ProgressRepo{db: db} }

// WithinUserTx locks the user row FOR UPDATE and runs fn inside the same transaction.
func (r *ProgressRepo) WithinUserTx(
	ctx context.Context, userID uuid.UUID,
	fn func(ctx context.Context, u *model.User, tx repository.ProgressTx) error,
) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		q := `SELECT ` + userCols + ` FROM users WHERE id=$1 FOR UPDATE`
		u, err := scanUser(tx.QueryRow(ctx, q, userID))
		if err != nil {
			return err
		}
		return fn(ctx, u, &progressTx{tx: tx, userID: userID})
	})
}

type progressTx struct {
	tx     pgx.Tx
	userID uuid.UUID
}

var _ repository.ProgressTx = (*progressTx)(nil)

func (p *progressTx) Spell(ctx context.Context, spellID uuid.UUID) (*model.Spell, error) {
	return loadSpell(ctx, p.tx, p.userID, spellID, true)
}

func (p *progressTx) RecordCompletion(ctx context.Context, c model.Completion) error {
	const q = `
INSERT INTO spell_completions (spell_id, user_id, period_key, completed_at)
VALUES ($1, $2, $3, $4)`
	if _, err := p.tx.Exec(ctx, q, c.SpellID, p.userID, c.PeriodKey, c.CompletedAt); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyCompleted
		}
		return err
	}
	return nil
}

func (p *progressTx) SaveProgress(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users SET
  xp=$2, level=$3, current_streak=$4, max_streak=$5,
  total_spells_completed=$6, last_completion_date=$7
WHERE id=$1`
	tag, err := p.tx.Exec(ctx, q, p.userID, u.XP, u.Level, u.CurrentStreak, u.MaxStreak,
		u.TotalSpellsCompleted, u.LastCompletionDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (p *progressTx) UnlockedTalismanIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	const q = `SELECT talisman_id FROM user_talismans WHERE user_id=$1`
	rows, err := p.tx.Query(ctx, q, p.userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uuid.UUID]struct{}{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (p *progressTx) UnlockTalisman(ctx context.Context, talismanID uuid.UUID, at time.Time) (bool, error) {
	const q = `
INSERT INTO user_talismans (user_id, talisman_id, unlocked_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, talisman_id) DO NOTHING`
	tag, err := p.tx.Exec(ctx, q, p.userID, talismanID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
