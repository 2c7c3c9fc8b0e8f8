// Package achievement holds the badge catalog and the recomputation engine
// that derives completion counts, point totals, streaks, and badge unlocks
// from the full task list. The engine is a pure function: it owns no storage
// and may be re-run after every mutation without drift.
package achievement

import (
	"time"

	"taskQuestAPI/internal/task"
)

// Result is the derived statistics for one recomputation pass.
type Result struct {
	TotalTasks     int
	TasksCompleted int
	TotalPoints    int
	CurrentStreak  int
	LongestStreak  int
	LastCompleted  *time.Time
	Badges         []Badge
	// NewUnlocks are the badges whose Unlocked flag transitioned during
	// this call, in catalog order. Already-unlocked badges never reappear.
	NewUnlocks []Badge
}

// Recompute derives statistics from the full task set.
//
// The streak counts consecutive calendar days (local to now's location,
// time of day discarded) backward from today; a day without a completion
// ends the walk, so no completion today means a streak of 0. Completed
// tasks with no completion timestamp still count toward TasksCompleted and
// TotalPoints but contribute no streak date. priorLongest and priorBadges
// carry the monotonic state: LongestStreak never decreases and an unlocked
// badge never re-locks or has its UnlockedAt rewritten.
func Recompute(tasks []task.Task, priorBadges []Badge, priorLongest int, now time.Time) Result {
	res := Result{
		TotalTasks: len(tasks),
		Badges:     MergeWithCatalog(priorBadges),
	}

	days := make(map[time.Time]bool)
	var lastCompleted *time.Time
	for i := range tasks {
		t := &tasks[i]
		if t.Status != task.StatusCompleted {
			continue
		}
		res.TasksCompleted++
		res.TotalPoints += t.Points

		if t.CompletedAt == nil {
			continue
		}
		days[calendarDay(*t.CompletedAt, now.Location())] = true
		if lastCompleted == nil || t.CompletedAt.After(*lastCompleted) {
			ts := *t.CompletedAt
			lastCompleted = &ts
		}
	}
	res.LastCompleted = lastCompleted

	streak := 0
	for d := calendarDay(now, now.Location()); days[d]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	res.CurrentStreak = streak
	res.LongestStreak = max(priorLongest, streak)

	for i := range res.Badges {
		b := &res.Badges[i]
		if b.Unlocked || !unlockCondition(b.ID, &res) {
			continue
		}
		b.Unlocked = true
		unlockedAt := now
		b.UnlockedAt = &unlockedAt
		res.NewUnlocks = append(res.NewUnlocks, *b)
	}

	return res
}

func unlockCondition(id BadgeID, res *Result) bool {
	switch id {
	case BadgeFirstTask:
		return res.TasksCompleted >= 1
	case BadgeStreak3:
		return res.CurrentStreak >= 3
	case BadgePoints50:
		return res.TotalPoints >= 50
	case BadgeTasks10:
		return res.TasksCompleted >= 10
	}
	return false
}

// MergeWithCatalog returns a fresh catalog with the unlocked state carried
// over from prior. Badges outside the catalog are dropped; a badge the
// prior state marked unlocked stays unlocked with its original UnlockedAt.
// The result always holds exactly one badge per catalog ID.
func MergeWithCatalog(prior []Badge) []Badge {
	badges := Catalog()
	for i := range badges {
		for j := range prior {
			if prior[j].ID != badges[i].ID || !prior[j].Unlocked {
				continue
			}
			badges[i].Unlocked = true
			badges[i].UnlockedAt = prior[j].UnlockedAt
		}
	}
	return badges
}

func calendarDay(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
