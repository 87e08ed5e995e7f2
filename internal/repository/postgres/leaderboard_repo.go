package postgres

import (
	"context"

	"github.com/and161185/spell-keeper/internal/model"
)

// LeaderboardRepo implements LeaderboardRepository using PostgreSQL.
type LeaderboardRepo struct{ db *DB }

// NewLeaderboardRepo constructs a leaderboard repository.
func NewLeaderboardRepo(db *DB) *LeaderboardRepo { return &LeaderboardRepo{db: db} }

// Top returns the leaderboard: xp DESC, then byte-wise username so the order matches
// the in-memory ranking regardless of database collation.
func (r *LeaderboardRepo) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const q = `
SELECT username, xp, level
FROM users
ORDER BY xp DESC, username COLLATE "C" ASC
LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.XP, &e.Level); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}
