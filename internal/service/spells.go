package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/ledger"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/repository"
	"github.com/and161185/spell-keeper/internal/streak"
)

// Spell field limits.
const (
	DefaultXPReward = 10
	MaxXPReward     = 1000
	MaxTitleLen     = 200
	MaxDescLen      = 2000
)

// SpellInput is the payload for creating a spell. Zero XPReward means DefaultXPReward.
type SpellInput struct {
	Title       string
	Description string
	RepeatType  model.RepeatType
	XPReward    int64
}

// SpellView is a spell plus whether its current period is already done.
type SpellView struct {
	model.Spell
	CompletedThisPeriod bool
}

// SpellService validates input and delegates spell CRUD to the repository.
type SpellService struct {
	repo repository.SpellRepository
	loc  *time.Location
	now  func() time.Time
}

// NewSpellService constructs SpellService. loc must match the completion flow.
func NewSpellService(repo repository.SpellRepository, loc *time.Location) *SpellService {
	if loc == nil {
		loc = time.UTC
	}
	return &SpellService{repo: repo, loc: loc, now: time.Now}
}

func validTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", errs.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("%w: title longer than %d characters", errs.ErrInvalidArgument, MaxTitleLen)
	}
	return nil
}

func validDescription(d string) error {
	if utf8.RuneCountInString(d) > MaxDescLen {
		return fmt.Errorf("%w: description longer than %d characters", errs.ErrInvalidArgument, MaxDescLen)
	}
	return nil
}

func validReward(xp int64) error {
	if xp < 1 || xp > MaxXPReward {
		return fmt.Errorf("%w: xpReward must be 1..%d, got %d", errs.ErrInvalidArgument, MaxXPReward, xp)
	}
	return nil
}

func validRepeat(rt model.RepeatType) error {
	if !rt.Valid() {
		return fmt.Errorf("%w: repeatType must be DAILY or WEEKLY, got %q", errs.ErrInvalidArgument, rt)
	}
	return nil
}

// Create validates and inserts a new spell owned by userID.
func (s *SpellService) Create(ctx context.Context, userID uuid.UUID, in SpellInput) (*model.Spell, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.RepeatType == "" {
		in.RepeatType = model.RepeatDaily
	}
	if in.XPReward == 0 {
		in.XPReward = DefaultXPReward
	}
	for _, err := range []error{validTitle(in.Title), validDescription(in.Description), validRepeat(in.RepeatType), validReward(in.XPReward)} {
		if err != nil {
			return nil, err
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	sp := &model.Spell{
		ID:          id,
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		RepeatType:  in.RepeatType,
		XPReward:    in.XPReward,
		Completed:   map[string]struct{}{},
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *SpellService) view(sp model.Spell) SpellView {
	return SpellView{Spell: sp, CompletedThisPeriod: ledger.Done(&sp, streak.Day(s.now(), s.loc))}
}

// List returns the user's spells in creation order.
func (s *SpellService) List(ctx context.Context, userID uuid.UUID) ([]SpellView, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrInvalidArgument)
	}
	spells, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SpellView, 0, len(spells))
	for _, sp := range spells {
		out = append(out, s.view(sp))
	}
	return out, nil
}

// Get returns one spell of the user.
func (s *SpellService) Get(ctx context.Context, userID, spellID uuid.UUID) (SpellView, error) {
	if userID == uuid.Nil || spellID == uuid.Nil {
		return SpellView{}, fmt.Errorf("%w: empty user or spell id", errs.ErrInvalidArgument)
	}
	sp, err := s.repo.Get(ctx, userID, spellID)
	if err != nil {
		return SpellView{}, err
	}
	return s.view(*sp), nil
}

// Update validates the present patch fields and applies them.
func (s *SpellService) Update(ctx context.Context, userID, spellID uuid.UUID, p model.SpellPatch) (SpellView, error) {
	if userID == uuid.Nil || spellID == uuid.Nil {
		return SpellView{}, fmt.Errorf("%w: empty user or spell id", errs.ErrInvalidArgument)
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if err := validTitle(t); err != nil {
			return SpellView{}, err
		}
		p.Title = &t
	}
	if p.Description != nil {
		if err := validDescription(*p.Description); err != nil {
			return SpellView{}, err
		}
	}
	if p.RepeatType != nil {
		if err := validRepeat(*p.RepeatType); err != nil {
			return SpellView{}, err
		}
	}
	if p.XPReward != nil {
		if err := validReward(*p.XPReward); err != nil {
			return SpellView{}, err
		}
	}
	sp, err := s.repo.Update(ctx, userID, spellID, p)
	if err != nil {
		return SpellView{}, err
	}
	return s.view(*sp), nil
}

// Delete removes a spell; already earned XP and talismans stay.
func (s *SpellService) Delete(ctx context.Context, userID, spellID uuid.UUID) error {
	if userID == uuid.Nil || spellID == uuid.Nil {
		return fmt.Errorf("%w: empty user or spell id", errs.ErrInvalidArgument)
	}
	return s.repo.Delete(ctx, userID, spellID)
}
