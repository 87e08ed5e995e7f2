package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/ledger"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/progression"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/and161185/spell-keeper/internal/streak"
	"github.com/and161185/spell-keeper/internal/talisman"
)

// CompletionService turns a spell completion into XP, streak, counters and
// talisman unlocks, all applied in one per-user transaction.
type CompletionService struct {
	progress repository.ProgressRepository
	engine   *talisman.Engine
	loc      *time.Location
	log      *zap.Logger
}

// NewCompletionService constructs the orchestrator. loc is the timezone that
// defines calendar days for streaks and period keys (UTC when nil).
func NewCompletionService(progress repository.ProgressRepository, engine *talisman.Engine, loc *time.Location, log *zap.Logger) *CompletionService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CompletionService{progress: progress, engine: engine, loc: loc, log: log.Named("completion")}
}

// CompleteSpell records a completion at now. A second completion inside the same
// period fails with errs.ErrAlreadyCompleted and changes nothing.
func (s *CompletionService) CompleteSpell(ctx context.Context, userID, spellID uuid.UUID, now time.Time) (model.CompletionResult, error) {
	if userID == uuid.Nil || spellID == uuid.Nil {
		return model.CompletionResult{}, fmt.Errorf("%w: empty user or spell id", errs.ErrInvalidArgument)
	}
	today := streak.Day(now, s.loc)

	var res model.CompletionResult
	err := s.progress.WithinUserTx(ctx, userID, func(ctx context.Context, u *model.User, tx repository.ProgressTx) error {
		spell, err := tx.Spell(ctx, spellID)
		if err != nil {
			return err
		}
		key, err := ledger.TryRecord(spell, today)
		if err != nil {
			return err
		}
		if err := tx.RecordCompletion(ctx, model.Completion{
			SpellID: spell.ID, UserID: userID, PeriodKey: key, CompletedAt: now,
		}); err != nil {
			return err
		}

		xp, err := progression.ApplyXP(u.XP, spell.XPReward)
		if err != nil {
			return err
		}
		u.XP = xp.NewXP
		u.Level = xp.NewLevel

		if spell.RepeatType == model.RepeatDaily {
			st := streak.Update(u.LastCompletionDate, u.CurrentStreak, u.MaxStreak, today)
			u.CurrentStreak, u.MaxStreak = st.Streak, st.MaxStreak
			day := today
			u.LastCompletionDate = &day
		}
		u.TotalSpellsCompleted++

		if err := tx.SaveProgress(ctx, u); err != nil {
			return err
		}

		owned, err := tx.UnlockedTalismanIDs(ctx)
		if err != nil {
			return err
		}
		snap := talisman.Snapshot{
			Level:                u.Level,
			CurrentStreak:        u.CurrentStreak,
			MaxStreak:            u.MaxStreak,
			TotalSpellsCompleted: u.TotalSpellsCompleted,
		}
		unlocked := []model.Talisman{}
		for _, t := range s.engine.Evaluate(snap, owned) {
			fresh, err := tx.UnlockTalisman(ctx, t.ID, now)
			if err != nil {
				return err
			}
			if fresh {
				unlocked = append(unlocked, t)
			}
		}

		res = model.CompletionResult{
			XPGained:          spell.XPReward,
			NewXP:             xp.NewXP,
			OldLevel:          xp.OldLevel,
			NewLevel:          xp.NewLevel,
			LeveledUp:         xp.LeveledUp,
			NewStreak:         u.CurrentStreak,
			UnlockedTalismans: unlocked,
		}
		return nil
	})
	if err != nil {
		return model.CompletionResult{}, err
	}

	s.log.Debug("spell completed",
		zap.String("user_id", userID.String()),
		zap.String("spell_id", spellID.String()),
		zap.Int64("xp", res.NewXP),
		zap.Int("level", res.NewLevel),
		zap.Int("unlocked", len(res.UnlockedTalismans)),
	)
	if res.LeveledUp {
		s.log.Info("level up", zap.String("user_id", userID.String()), zap.Int("level", res.NewLevel))
	}
	return res, nil
}
