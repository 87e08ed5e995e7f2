// Package progression implements the linear XP curve: every level spans XPPerLevel points.
package progression

import (
	"fmt"

	"github.com/and161185/spell-keeper/internal/errs"
)

// XPPerLevel is the width of every level.
const XPPerLevel = 100

// Result describes the outcome of an XP award.
type Result struct {
	NewXP     int64
	OldLevel  int
	NewLevel  int
	LeveledUp bool
}

// Level returns floor(xp/100)+1. Negative xp is treated as zero.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// XPForLevel returns the total XP at which level starts.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(level-1) * XPPerLevel
}

// Progress returns XP earned inside the current level and the level span.
func Progress(xp int64) (into, span int64) {
	if xp < 0 {
		xp = 0
	}
	return xp - XPForLevel(Level(xp)), XPPerLevel
}

// ApplyXP adds a positive delta to currentXP.
func ApplyXP(currentXP, delta int64) (Result, error) {
	if delta <= 0 {
		return Result{}, fmt.Errorf("%w: xp delta must be positive, got %d", errs.ErrInvalidArgument, delta)
	}
	if currentXP < 0 {
		return Result{}, fmt.Errorf("%w: negative current xp %d", errs.ErrInvalidArgument, currentXP)
	}
	newXP := currentXP + delta
	oldLevel, newLevel := Level(currentXP), Level(newXP)
	return Result{
		NewXP:     newXP,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LeveledUp: newLevel > oldLevel,
	}, nil
}
