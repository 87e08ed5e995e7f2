package httpserver

import (
	"time"

	"github.com/and161185/spell-keeper/internal/model"
	"github.com/and161185/spell-keeper/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID                   string    `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	XP                   int64     `json:"xp"`
	Level                int       `json:"level"`
	CurrentStreak        int       `json:"currentStreak"`
	MaxStreak            int       `json:"maxStreak"`
	TotalSpellsCompleted int64     `json:"totalSpellsCompleted"`
	LastCompletionDate   *string   `json:"lastCompletionDate,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

func toUserDTO(u model.User) userDTO {
	d := userDTO{
		ID:                   u.ID.String(),
		Username:             u.Username,
		Email:                u.Email,
		XP:                   u.XP,
		Level:                u.Level,
		CurrentStreak:        u.CurrentStreak,
		MaxStreak:            u.MaxStreak,
		TotalSpellsCompleted: u.TotalSpellsCompleted,
		CreatedAt:            u.CreatedAt,
	}
	if u.LastCompletionDate != nil {
		s := u.LastCompletionDate.Format(time.DateOnly)
		d.LastCompletionDate = &s
	}
	return d
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userDTO   `json:"user"`
}

type profileResponse struct {
	userDTO
	XPIntoLevel       int64 `json:"xpIntoLevel"`
	XPLevelSpan       int64 `json:"xpLevelSpan"`
	XPNextLevel       int64 `json:"xpNextLevel"`
	UnlockedTalismans int   `json:"unlockedTalismans"`
}

type spellRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	RepeatType  *string `json:"repeatType"`
	XPReward    *int64  `json:"xpReward"`
}

func (r spellRequest) input() service.SpellInput {
	var in service.SpellInput
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.RepeatType != nil {
		in.RepeatType = model.RepeatType(*r.RepeatType)
	}
	if r.XPReward != nil {
		in.XPReward = *r.XPReward
	}
	return in
}

func (r spellRequest) patch() model.SpellPatch {
	p := model.SpellPatch{Title: r.Title, Description: r.Description, XPReward: r.XPReward}
	if r.RepeatType != nil {
		rt := model.RepeatType(*r.RepeatType)
		p.RepeatType = &rt
	}
	return p
}

type spellDTO struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	RepeatType          string    `json:"repeatType"`
	XPReward            int64     `json:"xpReward"`
	CompletedThisPeriod bool      `json:"completedThisPeriod"`
	CreatedAt           time.Time `json:"createdAt"`
}

func toSpellDTO(v service.SpellView) spellDTO {
	return spellDTO{
		ID:                  v.ID.String(),
		Title:               v.Title,
		Description:         v.Description,
		RepeatType:          string(v.RepeatType),
		XPReward:            v.XPReward,
		CompletedThisPeriod: v.CompletedThisPeriod,
		CreatedAt:           v.CreatedAt,
	}
}

type talismanDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IconURL     string     `json:"iconUrl"`
	Condition   string     `json:"condition"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

func toTalismanDTO(t model.Talisman) talismanDTO {
	return talismanDTO{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		IconURL:     t.IconURL,
		Condition:   t.Condition,
	}
}

type completeResponse struct {
	Message           string        `json:"message"`
	XPGained          int64         `json:"xpGained"`
	NewXP             int64         `json:"newXp"`
	OldLevel          int           `json:"oldLevel"`
	NewLevel          int           `json:"newLevel"`
	LeveledUp         bool          `json:"leveledUp"`
	NewStreak         int           `json:"newStreak"`
	UnlockedTalismans []talismanDTO `json:"unlockedTalismans"`
}

type statsResponse struct {
	XP                   int64 `json:"xp"`
	Level                int   `json:"level"`
	TotalSpellsCompleted int64 `json:"totalSpellsCompleted"`
	CurrentStreak        int   `json:"currentStreak"`
	MaxStreak            int   `json:"maxStreak"`
	UnlockedTalismans    int   `json:"unlockedTalismans"`
}

type leaderboardDTO struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	XP       int64  `json:"xp"`
}

type messageResponse struct {
	Message string `json:"message"`
}
