package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// apiError is a non-2xx reply of the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type client struct {
	base    string
	token   string
	timeout time.Duration
}

func newClient(base, token string, timeout time.Duration) *client {
	return &client{base: strings.TrimRight(base, "/"), token: token, timeout: timeout}
}

func (c *client) agent(method, path string) *fiber.Agent {
	url := c.base + path
	switch method {
	case fiber.MethodPost:
		return fiber.Post(url)
	case fiber.MethodPut:
		return fiber.Put(url)
	case fiber.MethodDelete:
		return fiber.Delete(url)
	default:
		return fiber.Get(url)
	}
}

// do sends in as JSON (when non-nil) and decodes the reply into out.
func (c *client) do(method, path string, in, out any) error {
	a := c.agent(method, path).Timeout(c.timeout)
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if in != nil {
		a.JSON(in)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code >= fiber.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		return &apiError{Status: code, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type user struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	XP            int64  `json:"xp"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"currentStreak"`
	MaxStreak     int    `json:"maxStreak"`
}

type authReply struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user      `json:"user"`
}

type spell struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	RepeatType          string `json:"repeatType"`
	XPReward            int64  `json:"xpReward"`
	CompletedThisPeriod bool   `json:"completedThisPeriod"`
}

type talisman struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Condition   string     `json:"condition"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

type completion struct {
	Message           string     `json:"message"`
	XPGained          int64      `json:"xpGained"`
	NewXP             int64      `json:"newXp"`
	OldLevel          int        `json:"oldLevel"`
	NewLevel          int        `json:"newLevel"`
	LeveledUp         bool       `json:"leveledUp"`
	NewStreak         int        `json:"newStreak"`
	UnlockedTalismans []talisman `json:"unlockedTalismans"`
}

type stats struct {
	XP                   int64 `json:"xp"`
	Level                int   `json:"level"`
	TotalSpellsCompleted int64 `json:"totalSpellsCompleted"`
	CurrentStreak        int   `json:"currentStreak"`
	MaxStreak            int   `json:"maxStreak"`
	UnlockedTalismans    int   `json:"unlockedTalismans"`
}

type rankRow struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	XP       int64  `json:"xp"`
}
