package achievement

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskQuestAPI/internal/task"
)

var testNow = time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

func completedTask(points int, completedAt time.Time) task.Task {
	ts := completedAt
	return task.Task{
		Title:       "done",
		Status:      task.StatusCompleted,
		Points:      points,
		CompletedAt: &ts,
	}
}

func pendingTask(points int) task.Task {
	return task.Task{
		Title:  "todo",
		Status: task.StatusPending,
		Points: points,
	}
}

func badgeByID(t *testing.T, badges []Badge, id BadgeID) Badge {
	t.Helper()
	for _, b := range badges {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("badge %s not in result", id)
	return Badge{}
}

func TestRecompute_EmptyTaskList(t *testing.T) {
	res := Recompute(nil, Catalog(), 0, testNow)

	assert.Equal(t, 0, res.TotalTasks)
	assert.Equal(t, 0, res.TasksCompleted)
	assert.Equal(t, 0, res.TotalPoints)
	assert.Equal(t, 0, res.CurrentStreak)
	assert.Equal(t, 0, res.LongestStreak)
	assert.Nil(t, res.LastCompleted)
	assert.Empty(t, res.NewUnlocks)
	for _, b := range res.Badges {
		assert.False(t, b.Unlocked, "badge %s should stay locked", b.ID)
		assert.Nil(t, b.UnlockedAt)
	}
}

func TestRecompute_SingleCompletionToday(t *testing.T) {
	tasks := []task.Task{completedTask(10, testNow.Add(-2*time.Hour))}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 1, res.TasksCompleted)
	assert.Equal(t, 10, res.TotalPoints)
	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 1, res.LongestStreak)

	assert.True(t, badgeByID(t, res.Badges, BadgeFirstTask).Unlocked)
	assert.False(t, badgeByID(t, res.Badges, BadgeStreak3).Unlocked)
	assert.False(t, badgeByID(t, res.Badges, BadgePoints50).Unlocked)
	assert.False(t, badgeByID(t, res.Badges, BadgeTasks10).Unlocked)

	require.Len(t, res.NewUnlocks, 1)
	assert.Equal(t, BadgeFirstTask, res.NewUnlocks[0].ID)
	require.NotNil(t, res.NewUnlocks[0].UnlockedAt)
	assert.Equal(t, testNow, *res.NewUnlocks[0].UnlockedAt)
}

func TestRecompute_ThreeConsecutiveDaysUnlocksStreakBadge(t *testing.T) {
	tasks := []task.Task{
		completedTask(5, testNow),
		completedTask(5, testNow.AddDate(0, 0, -1)),
		completedTask(5, testNow.AddDate(0, 0, -2)),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 3, res.CurrentStreak)
	assert.True(t, badgeByID(t, res.Badges, BadgeStreak3).Unlocked)
}

func TestRecompute_GapBreaksStreak(t *testing.T) {
	tasks := []task.Task{
		completedTask(5, testNow),
		completedTask(5, testNow.AddDate(0, 0, -3)),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 1, res.CurrentStreak)
	assert.False(t, badgeByID(t, res.Badges, BadgeStreak3).Unlocked)
}

func TestRecompute_NoCompletionTodayMeansZeroStreak(t *testing.T) {
	tasks := []task.Task{
		completedTask(5, testNow.AddDate(0, 0, -1)),
		completedTask(5, testNow.AddDate(0, 0, -2)),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 0, res.CurrentStreak)
}

func TestRecompute_PointsBadge(t *testing.T) {
	tasks := []task.Task{
		completedTask(15, testNow),
		completedTask(10, testNow),
		completedTask(12, testNow),
		completedTask(8, testNow),
		completedTask(10, testNow),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 5, res.TasksCompleted)
	assert.Equal(t, 55, res.TotalPoints)
	assert.True(t, badgeByID(t, res.Badges, BadgePoints50).Unlocked)
	assert.False(t, badgeByID(t, res.Badges, BadgeTasks10).Unlocked)
}

func TestRecompute_TenTasksBadge(t *testing.T) {
	var tasks []task.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, completedTask(5, testNow))
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 10, res.TasksCompleted)
	assert.True(t, badgeByID(t, res.Badges, BadgeTasks10).Unlocked)
}

func TestRecompute_PendingTasksDoNotCount(t *testing.T) {
	tasks := []task.Task{
		pendingTask(100),
		pendingTask(100),
		completedTask(10, testNow),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 3, res.TotalTasks)
	assert.Equal(t, 1, res.TasksCompleted)
	assert.Equal(t, 10, res.TotalPoints)
}

func TestRecompute_MissingCompletionTimestamp(t *testing.T) {
	// A completed task with no timestamp still counts toward totals but
	// contributes no streak date.
	broken := task.Task{Title: "broken", Status: task.StatusCompleted, Points: 7}
	tasks := []task.Task{broken, completedTask(3, testNow)}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 2, res.TasksCompleted)
	assert.Equal(t, 10, res.TotalPoints)
	assert.Equal(t, 1, res.CurrentStreak)
}

func TestRecompute_Idempotent(t *testing.T) {
	tasks := []task.Task{
		completedTask(20, testNow),
		completedTask(20, testNow.AddDate(0, 0, -1)),
		completedTask(20, testNow.AddDate(0, 0, -2)),
	}

	first := Recompute(tasks, Catalog(), 0, testNow)
	second := Recompute(tasks, first.Badges, first.LongestStreak, testNow)

	assert.Equal(t, first.TasksCompleted, second.TasksCompleted)
	assert.Equal(t, first.TotalPoints, second.TotalPoints)
	assert.Equal(t, first.CurrentStreak, second.CurrentStreak)
	assert.Equal(t, first.LongestStreak, second.LongestStreak)
	assert.Equal(t, first.Badges, second.Badges)
	assert.Empty(t, second.NewUnlocks, "re-running on unchanged input must not re-unlock")
}

func TestRecompute_UnlockedAtNeverRewritten(t *testing.T) {
	earlier := testNow.AddDate(0, 0, -10)
	prior := Catalog()
	for i := range prior {
		if prior[i].ID == BadgeFirstTask {
			prior[i].Unlocked = true
			prior[i].UnlockedAt = &earlier
		}
	}

	tasks := []task.Task{completedTask(10, testNow)}
	res := Recompute(tasks, prior, 0, testNow)

	got := badgeByID(t, res.Badges, BadgeFirstTask)
	assert.True(t, got.Unlocked)
	require.NotNil(t, got.UnlockedAt)
	assert.Equal(t, earlier, *got.UnlockedAt)
	assert.Empty(t, res.NewUnlocks)
}

func TestRecompute_BadgeStaysUnlockedAfterTasksDeleted(t *testing.T) {
	tasks := []task.Task{completedTask(10, testNow)}
	first := Recompute(tasks, Catalog(), 0, testNow)
	require.True(t, badgeByID(t, first.Badges, BadgeFirstTask).Unlocked)

	// All tasks deleted: counts drop to zero, the badge survives.
	second := Recompute(nil, first.Badges, first.LongestStreak, testNow)

	assert.Equal(t, 0, second.TasksCompleted)
	assert.Equal(t, 0, second.TotalPoints)
	assert.True(t, badgeByID(t, second.Badges, BadgeFirstTask).Unlocked)
}

func TestRecompute_LongestStreakMonotonic(t *testing.T) {
	tasks := []task.Task{completedTask(5, testNow)}

	res := Recompute(tasks, Catalog(), 7, testNow)

	assert.Equal(t, 1, res.CurrentStreak)
	assert.Equal(t, 7, res.LongestStreak)
	assert.GreaterOrEqual(t, res.LongestStreak, res.CurrentStreak)
}

func TestRecompute_DuplicateCompletionsSameDay(t *testing.T) {
	tasks := []task.Task{
		completedTask(5, testNow),
		completedTask(5, testNow.Add(-1*time.Hour)),
		completedTask(5, testNow.Add(-5*time.Hour)),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	assert.Equal(t, 1, res.CurrentStreak, "several completions on one day count once")
}

func TestRecompute_LastCompletedIsMostRecent(t *testing.T) {
	newest := testNow.Add(-30 * time.Minute)
	tasks := []task.Task{
		completedTask(5, testNow.AddDate(0, 0, -2)),
		completedTask(5, newest),
		completedTask(5, testNow.AddDate(0, 0, -1)),
	}

	res := Recompute(tasks, Catalog(), 0, testNow)

	require.NotNil(t, res.LastCompleted)
	assert.Equal(t, newest, *res.LastCompleted)
}

func TestRecompute_StableAcrossSerializationRoundTrip(t *testing.T) {
	tasks := []task.Task{
		completedTask(30, testNow),
		completedTask(30, testNow.AddDate(0, 0, -1)),
	}
	first := Recompute(tasks, Catalog(), 0, testNow)

	raw, err := json.Marshal(first.Badges)
	require.NoError(t, err)
	var reloaded []Badge
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	second := Recompute(tasks, reloaded, first.LongestStreak, testNow)

	assert.Empty(t, second.NewUnlocks)
	assert.Equal(t, first.TotalPoints, second.TotalPoints)
	assert.Equal(t, first.CurrentStreak, second.CurrentStreak)
}

func TestMergeWithCatalog_DropsUnknownAndKeepsOrder(t *testing.T) {
	unlockedAt := testNow
	prior := []Badge{
		{ID: "made-up-badge", Unlocked: true, UnlockedAt: &unlockedAt},
		{ID: BadgeTasks10, Unlocked: true, UnlockedAt: &unlockedAt},
	}

	merged := MergeWithCatalog(prior)

	require.Len(t, merged, len(Catalog()))
	for i, b := range Catalog() {
		assert.Equal(t, b.ID, merged[i].ID)
	}
	assert.True(t, badgeByID(t, merged, BadgeTasks10).Unlocked)
	assert.False(t, badgeByID(t, merged, BadgeFirstTask).Unlocked)
}
