package achievement

import (
	"time"
)

type BadgeID string

const (
	BadgeFirstTask BadgeID = "first-task"
	BadgeStreak3   BadgeID = "streak-3"
	BadgePoints50  BadgeID = "points-50"
	BadgeTasks10   BadgeID = "tasks-10"
)

// Badge is a named achievement with a one-way locked->unlocked state.
// UnlockedAt is written exactly once, when Unlocked first flips to true.
type Badge struct {
	ID          BadgeID    `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Icon        string     `json:"icon" db:"icon"`
	Unlocked    bool       `json:"unlocked" db:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
}

// Catalog returns the fixed badge set, all locked. The order is stable and
// there is exactly one badge per ID.
func Catalog() []Badge {
	return []Badge{
		{
			ID:          BadgeFirstTask,
			Name:        "First Steps",
			Description: "Complete your first task",
			Icon:        "🎯",
		},
		{
			ID:          BadgeStreak3,
			Name:        "On Fire",
			Description: "Complete tasks 3 days in a row",
			Icon:        "🔥",
		},
		{
			ID:          BadgePoints50,
			Name:        "Point Collector",
			Description: "Earn 50 points",
			Icon:        "⭐",
		},
		{
			ID:          BadgeTasks10,
			Name:        "Task Master",
			Description: "Complete 10 tasks",
			Icon:        "🏆",
		},
	}
}

// KnownBadgeID reports whether id belongs to the fixed catalog.
func KnownBadgeID(id BadgeID) bool {
	switch id {
	case BadgeFirstTask, BadgeStreak3, BadgePoints50, BadgeTasks10:
		return true
	}
	return false
}
