package stats

import (
	"time"

	"taskQuestAPI/internal/achievement"
)

// Aggregate is the single persisted statistics record, one per
// installation. Version is the optimistic-concurrency token: every write
// compares and bumps it, so two writers racing on the same record cannot
// silently overwrite each other.
type Aggregate struct {
	TotalPoints       int                 `json:"total_points" db:"total_points"`
	CurrentStreak     int                 `json:"current_streak" db:"current_streak"`
	LongestStreak     int                 `json:"longest_streak" db:"longest_streak"`
	LastCompletedDate *time.Time          `json:"last_completed_date,omitempty" db:"last_completed_date"`
	TasksCompleted    int                 `json:"tasks_completed" db:"tasks_completed"`
	TotalTasks        int                 `json:"total_tasks" db:"total_tasks"`
	Badges            []achievement.Badge `json:"badges" db:"badges"`
	Version           int                 `json:"version" db:"version"`
}

// Default returns the zero aggregate with the full locked badge catalog.
func Default() Aggregate {
	return Aggregate{
		Badges: achievement.Catalog(),
	}
}

// Apply copies one recomputation result into the aggregate. Version is
// left alone; the store bumps it on write.
func (a *Aggregate) Apply(res achievement.Result) {
	a.TotalPoints = res.TotalPoints
	a.CurrentStreak = res.CurrentStreak
	a.LongestStreak = res.LongestStreak
	a.LastCompletedDate = res.LastCompleted
	a.TasksCompleted = res.TasksCompleted
	a.TotalTasks = res.TotalTasks
	a.Badges = res.Badges
}

// PatchRequest is a partial update of the aggregate. Nil fields are left
// untouched. Badges replaces the whole array; Badge patches a single
// badge by ID.
type PatchRequest struct {
	TotalPoints    *int                `json:"total_points,omitempty"`
	CurrentStreak  *int                `json:"current_streak,omitempty"`
	LongestStreak  *int                `json:"longest_streak,omitempty"`
	TasksCompleted *int                `json:"tasks_completed,omitempty"`
	TotalTasks     *int                `json:"total_tasks,omitempty"`
	Badges         []achievement.Badge `json:"badges,omitempty"`
	Badge          *BadgePatch         `json:"badge,omitempty"`
}

type BadgePatch struct {
	BadgeID    achievement.BadgeID `json:"badge_id"`
	Unlocked   bool                `json:"unlocked"`
	UnlockedAt *time.Time          `json:"unlocked_at,omitempty"`
}

type ReplaceBadgesRequest struct {
	Badges []achievement.Badge `json:"badges"`
}
