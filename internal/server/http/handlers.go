package httpserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/leaderboard"
	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/service"
)

// Spells is the spell CRUD surface.
type Spells interface {
	Create(ctx context.Context, userID uuid.UUID, in service.SpellInput) (*model.Spell, error)
	List(ctx context.Context, userID uuid.UUID) ([]service.SpellView, error)
	Get(ctx context.Context, userID, spellID uuid.UUID) (service.SpellView, error)
	Update(ctx context.Context, userID, spellID uuid.UUID, p model.SpellPatch) (service.SpellView, error)
	Delete(ctx context.Context, userID, spellID uuid.UUID) error
}

// Completer records spell completions.
type Completer interface {
	CompleteSpell(ctx context.Context, userID, spellID uuid.UUID, now time.Time) (model.CompletionResult, error)
}

// Stats serves read-only progress views.
type Stats interface {
	Stats(ctx context.Context, userID uuid.UUID) (model.UserStats, error)
	Profile(ctx context.Context, userID uuid.UUID) (service.Profile, error)
	UserTalismans(ctx context.Context, userID uuid.UUID) ([]model.UnlockedTalisman, error)
	Catalog(ctx context.Context) ([]model.Talisman, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	auth     service.AuthService
	spells   Spells
	complete Completer
	stats    Stats
	db       Pinger
	now      func() time.Time
}

func bodyError(err error) error {
	return fmt.Errorf("%w: malformed body: %v", errs.ErrInvalidArgument, err)
}

func spellID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad spell id", errs.ErrInvalidArgument)
	}
	return id, nil
}

func (h *handlers) health(c *fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: true, Message: "database unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *handlers) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}
	tok, u, err := h.auth.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: toUserDTO(u)})
}

func (h *handlers) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}
	tok, u, err := h.auth.LoginWithIP(c.UserContext(), req.Email, req.Password, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(authResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: toUserDTO(u)})
}

func (h *handlers) profile(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.stats.Profile(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(profileResponse{
		userDTO:           toUserDTO(p.User),
		XPIntoLevel:       p.XPIntoLevel,
		XPLevelSpan:       p.XPLevelSpan,
		XPNextLevel:       p.XPNextLevel,
		UnlockedTalismans: p.UnlockedTalismans,
	})
}

func (h *handlers) userStats(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	st, err := h.stats.Stats(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(statsResponse{
		XP:                   st.XP,
		Level:                st.Level,
		TotalSpellsCompleted: st.TotalSpellsCompleted,
		CurrentStreak:        st.CurrentStreak,
		MaxStreak:            st.MaxStreak,
		UnlockedTalismans:    st.UnlockedTalismans,
	})
}

func (h *handlers) userTalismans(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	list, err := h.stats.UserTalismans(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]talismanDTO, 0, len(list))
	for _, t := range list {
		d := toTalismanDTO(t.Talisman)
		at := t.UnlockedAt
		d.UnlockedAt = &at
		out = append(out, d)
	}
	return c.JSON(out)
}

func (h *handlers) catalog(c *fiber.Ctx) error {
	list, err := h.stats.Catalog(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]talismanDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toTalismanDTO(t))
	}
	return c.JSON(out)
}

func (h *handlers) leaderboard(c *fiber.Ctx) error {
	limit := leaderboard.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: limit must be an integer", errs.ErrInvalidArgument)
		}
		limit = n
	}
	list, err := h.stats.Leaderboard(c.UserContext(), limit)
	if err != nil {
		return err
	}
	out := make([]leaderboardDTO, 0, len(list))
	for _, e := range list {
		out = append(out, leaderboardDTO{Rank: e.Rank, Username: e.Username, Level: e.Level, XP: e.XP})
	}
	return c.JSON(out)
}

func (h *handlers) createSpell(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req spellRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}
	sp, err := h.spells.Create(c.UserContext(), uid, req.input())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toSpellDTO(service.SpellView{Spell: *sp}))
}

func (h *handlers) listSpells(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	list, err := h.spells.List(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]spellDTO, 0, len(list))
	for _, v := range list {
		out = append(out, toSpellDTO(v))
	}
	return c.JSON(out)
}

func (h *handlers) getSpell(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := spellID(c)
	if err != nil {
		return err
	}
	v, err := h.spells.Get(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(toSpellDTO(v))
}

func (h *handlers) updateSpell(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := spellID(c)
	if err != nil {
		return err
	}
	var req spellRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(err)
	}
	v, err := h.spells.Update(c.UserContext(), uid, id, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(toSpellDTO(v))
}

func (h *handlers) deleteSpell(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := spellID(c)
	if err != nil {
		return err
	}
	if err := h.spells.Delete(c.UserContext(), uid, id); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Spell deleted"})
}

func (h *handlers) completeSpell(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := spellID(c)
	if err != nil {
		return err
	}
	res, err := h.complete.CompleteSpell(c.UserContext(), uid, id, h.now())
	if err != nil {
		return err
	}
	unlocked := make([]talismanDTO, 0, len(res.UnlockedTalismans))
	for _, t := range res.UnlockedTalismans {
		unlocked = append(unlocked, toTalismanDTO(t))
	}
	return c.JSON(completeResponse{
		Message:           "Spell completed!",
		XPGained:          res.XPGained,
		NewXP:             res.NewXP,
		OldLevel:          res.OldLevel,
		NewLevel:          res.NewLevel,
		LeveledUp:         res.LeveledUp,
		NewStreak:         res.NewStreak,
		UnlockedTalismans: unlocked,
	})
}
