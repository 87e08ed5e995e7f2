package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var spellColNames = []string{"id", "user_id", "title", "description", "repeat_type", "xp_reward", "created_at"}

func TestSpellRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)

	s := &model.Spell{
		ID:         uuid.Must(uuid.NewV4()),
		UserID:     uuid.Must(uuid.NewV4()),
		Title:      "Meditate",
		RepeatType: model.RepeatDaily,
		XPReward:   15,
	}
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO spells .+ RETURNING created_at`).
		WithArgs(s.ID, s.UserID, s.Title, s.Description, "DAILY", int64(15)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, r.Create(context.Background(), s))
	require.Equal(t, created, s.CreatedAt)
	require.NotNil(t, s.Completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpellRepo_Get_WithKeys_and_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)
	ctx := context.Background()
	uid, sid := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT .+ FROM spells WHERE id=\$1 AND user_id=\$2`).
		WithArgs(sid, uid).
		WillReturnRows(pgxmock.NewRows(spellColNames).
			AddRow(sid, uid, "Run", "5k", "WEEKLY", int64(40), time.Now()))
	mock.ExpectQuery(`SELECT period_key FROM spell_completions WHERE spell_id=\$1`).
		WithArgs(sid).
		WillReturnRows(pgxmock.NewRows([]string{"period_key"}).AddRow("2024-W01").AddRow("2024-W02"))

	s, err := r.Get(ctx, uid, sid)
	require.NoError(t, err)
	require.Equal(t, model.RepeatWeekly, s.RepeatType)
	require.Len(t, s.Completed, 2)
	require.Contains(t, s.Completed, "2024-W02")

	mock.ExpectQuery(`SELECT .+ FROM spells WHERE id=\$1 AND user_id=\$2`).
		WithArgs(sid, uid).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, uid, sid)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpellRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)
	uid := uuid.Must(uuid.NewV4())
	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM spells WHERE user_id=\$1 ORDER BY created_at ASC, id ASC`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(spellColNames).
			AddRow(a, uid, "A", "", "DAILY", int64(10), now).
			AddRow(b, uid, "B", "", "WEEKLY", int64(20), now.Add(time.Second)))
	mock.ExpectQuery(`SELECT spell_id, period_key FROM spell_completions WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows([]string{"spell_id", "period_key"}).
			AddRow(a, "2024-05-01").
			AddRow(a, "2024-05-02").
			AddRow(b, "2024-W18"))

	list, err := r.List(context.Background(), uid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "A", list[0].Title)
	require.Len(t, list[0].Completed, 2)
	require.Contains(t, list[1].Completed, "2024-W18")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpellRepo_List_Empty_SkipsLedger(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT .+ FROM spells WHERE user_id=\$1`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(spellColNames))

	list, err := r.List(context.Background(), uid)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpellRepo_Update(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)
	ctx := context.Background()
	uid, sid := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	title := "Read"
	xp := int64(25)
	mock.ExpectExec(`UPDATE spells SET .+ WHERE id=\$1 AND user_id=\$2`).
		WithArgs(sid, uid, &title, pgxmock.AnyArg(), pgxmock.AnyArg(), &xp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT .+ FROM spells WHERE id=\$1 AND user_id=\$2`).
		WithArgs(sid, uid).
		WillReturnRows(pgxmock.NewRows(spellColNames).
			AddRow(sid, uid, "Read", "", "DAILY", int64(25), time.Now()))
	mock.ExpectQuery(`SELECT period_key FROM spell_completions`).
		WithArgs(sid).
		WillReturnRows(pgxmock.NewRows([]string{"period_key"}))

	s, err := r.Update(ctx, uid, sid, model.SpellPatch{Title: &title, XPReward: &xp})
	require.NoError(t, err)
	require.Equal(t, "Read", s.Title)
	require.Equal(t, int64(25), s.XPReward)

	mock.ExpectExec(`UPDATE spells SET`).
		WithArgs(sid, uid, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	_, err = r.Update(ctx, uid, sid, model.SpellPatch{})
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpellRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSpellRepo(db)
	ctx := context.Background()
	uid, sid := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM spells WHERE id=\$1 AND user_id=\$2`).
		WithArgs(sid, uid).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, uid, sid))

	mock.ExpectExec(`DELETE FROM spells`).
		WithArgs(sid, uid).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, uid, sid), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
