// Package talisman evaluates badge unlock conditions against a user statistics snapshot.
package talisman

// Condition identifies one unlock rule of the fixed catalog.
type Condition string

const (
	FirstSpell Condition = "FIRST_SPELL"
	Level5     Condition = "LEVEL_5"
	Level10    Condition = "LEVEL_10"
	Streak7    Condition = "STREAK_7"
	Streak30   Condition = "STREAK_30"
	Spells10   Condition = "SPELLS_10"
	Spells50   Condition = "SPELLS_50"
	Spells100  Condition = "SPELLS_100"
)

// Snapshot is the post-update view of a user's statistics.
type Snapshot struct {
	Level                int
	CurrentStreak        int
	MaxStreak            int
	TotalSpellsCompleted int64
}

// Predicate reports whether a condition holds for a snapshot.
type Predicate func(Snapshot) bool

// predicates is the strategy table; adding a condition means adding a row here.
var predicates = map[Condition]Predicate{
	FirstSpell: func(s Snapshot) bool { return s.TotalSpellsCompleted >= 1 },
	Level5:     func(s Snapshot) bool { return s.Level >= 5 },
	Level10:    func(s Snapshot) bool { return s.Level >= 10 },
	Streak7:    func(s Snapshot) bool { return s.MaxStreak >= 7 },
	Streak30:   func(s Snapshot) bool { return s.MaxStreak >= 30 },
	Spells10:   func(s Snapshot) bool { return s.TotalSpellsCompleted >= 10 },
	Spells50:   func(s Snapshot) bool { return s.TotalSpellsCompleted >= 50 },
	Spells100:  func(s Snapshot) bool { return s.TotalSpellsCompleted >= 100 },
}

// Known reports whether c is part of the condition catalog.
func Known(c Condition) bool {
	_, ok := predicates[c]
	return ok
}

// Holds evaluates c against s. Unknown conditions never hold.
func Holds(c Condition, s Snapshot) bool {
	p, ok := predicates[c]
	return ok && p(s)
}
