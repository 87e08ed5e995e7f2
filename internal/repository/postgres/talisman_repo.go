package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// TalismanRepo implements TalismanRepository using PostgreSQL.
type TalismanRepo struct{ db *DB }

// NewTalismanRepo constructs a talisman repository.
func NewTalismanRepo(db *DB) *TalismanRepo { return &TalismanRepo{db: db} }

// Seed upserts the catalog. Presentation fields of existing rows are refreshed;
// a row whose stored condition differs from the catalog aborts the seed with
// errs.ErrInvalidConfiguration.
func (r *TalismanRepo) Seed(ctx context.Context, catalog []model.Talisman) error {
	const q = `
INSERT INTO talismans (id, name, description, icon_url, condition)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET name=EXCLUDED.name, description=EXCLUDED.description, icon_url=EXCLUDED.icon_url
WHERE talismans.condition = EXCLUDED.condition`
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		for _, t := range catalog {
			tag, err := tx.Exec(ctx, q, t.ID, t.Name, t.Description, t.IconURL, t.Condition)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: talisman %s condition differs from stored row",
					errs.ErrInvalidConfiguration, t.ID)
			}
		}
		return nil
	})
}

// List returns the catalog ordered by name.
func (r *TalismanRepo) List(ctx context.Context) ([]model.Talisman, error) {
	const q = `SELECT id, name, description, icon_url, condition FROM talismans ORDER BY name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Talisman
	for rows.Next() {
		var t model.Talisman
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.IconURL, &t.Condition); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListUnlocked returns a user's talismans, oldest unlock first.
func (r *TalismanRepo) ListUnlocked(ctx context.Context, userID uuid.UUID) ([]model.UnlockedTalisman, error) {
	const q = `
SELECT t.id, t.name, t.description, t.icon_url, t.condition, ut.unlocked_at
FROM user_talismans ut
JOIN talismans t ON t.id = ut.talisman_id
WHERE ut.user_id=$1
ORDER BY ut.unlocked_at ASC, t.name ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UnlockedTalisman
	for rows.Next() {
		var u model.UnlockedTalisman
		if err := rows.Scan(&u.ID, &u.Name, &u.Description, &u.IconURL, &u.Condition, &u.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountUnlocked returns the number of talismans a user owns.
func (r *TalismanRepo) CountUnlocked(ctx context.Context, userID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM user_talismans WHERE user_id=$1`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
