package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskQuestAPI/internal/achievement"
	"taskQuestAPI/internal/events"
	"taskQuestAPI/internal/stats"
	"taskQuestAPI/internal/task"
)

var (
	ErrStatsConflict = errors.New("statistics record was modified concurrently")
	ErrBadgeNotFound = errors.New("badge not found")
)

// statsRowID pins the aggregate to a single row; there is one record per
// installation.
const statsRowID = 1

type StatsService struct {
	db  *pgxpool.Pool
	bus *events.Bus
}

func NewStatsService(db *pgxpool.Pool, bus *events.Bus) *StatsService {
	return &StatsService{db: db, bus: bus}
}

// GetAggregate returns the statistics record, creating the default one on
// first read.
func (s *StatsService) GetAggregate(ctx context.Context) (*stats.Aggregate, error) {
	agg, err := s.loadAggregate(ctx)
	if err == nil {
		return agg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if err := s.insertDefault(ctx); err != nil {
		return nil, err
	}
	return s.loadAggregate(ctx)
}

// RecomputeFrom runs the achievement engine over the full task set and
// persists the result. The write is a compare-and-swap on the version
// column, retried once on conflict with freshly loaded state. Returns the
// stored aggregate and the badges that unlocked during this call.
func (s *StatsService) RecomputeFrom(ctx context.Context, tasks []task.Task) (*stats.Aggregate, []achievement.Badge, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		agg, err := s.GetAggregate(ctx)
		if err != nil {
			return nil, nil, err
		}

		res := achievement.Recompute(tasks, agg.Badges, agg.LongestStreak, time.Now())
		agg.Apply(res)

		if err := s.saveAggregate(ctx, agg); err != nil {
			lastErr = err
			if errors.Is(err, ErrStatsConflict) {
				continue
			}
			return nil, nil, err
		}

		s.bus.PublishStatsChanged(agg)
		for _, b := range res.NewUnlocks {
			s.bus.PublishBadgeUnlocked(b)
		}
		return agg, res.NewUnlocks, nil
	}
	return nil, nil, lastErr
}

// PatchAggregate applies a partial update. Badge changes stay monotonic:
// a locked badge can be unlocked here, an unlocked one is never re-locked
// and keeps its original UnlockedAt.
func (s *StatsService) PatchAggregate(ctx context.Context, req *stats.PatchRequest) (*stats.Aggregate, error) {
	if req.Badge != nil && !achievement.KnownBadgeID(req.Badge.BadgeID) {
		return nil, ErrBadgeNotFound
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		agg, err := s.GetAggregate(ctx)
		if err != nil {
			return nil, err
		}

		if req.TotalPoints != nil {
			agg.TotalPoints = *req.TotalPoints
		}
		if req.CurrentStreak != nil {
			agg.CurrentStreak = *req.CurrentStreak
		}
		if req.LongestStreak != nil {
			agg.LongestStreak = *req.LongestStreak
		}
		if req.TasksCompleted != nil {
			agg.TasksCompleted = *req.TasksCompleted
		}
		if req.TotalTasks != nil {
			agg.TotalTasks = *req.TotalTasks
		}
		if agg.LongestStreak < agg.CurrentStreak {
			agg.LongestStreak = agg.CurrentStreak
		}
		if req.Badges != nil {
			applyBadgeUnlocks(agg, req.Badges)
		}
		if req.Badge != nil {
			patch := achievement.Badge{
				ID:         req.Badge.BadgeID,
				Unlocked:   req.Badge.Unlocked,
				UnlockedAt: req.Badge.UnlockedAt,
			}
			applyBadgeUnlocks(agg, []achievement.Badge{patch})
		}

		if err := s.saveAggregate(ctx, agg); err != nil {
			lastErr = err
			if errors.Is(err, ErrStatsConflict) {
				continue
			}
			return nil, err
		}

		s.bus.PublishStatsChanged(agg)
		return agg, nil
	}
	return nil, lastErr
}

// ReplaceBadges replaces the badge array. Unknown IDs are dropped and
// already-unlocked badges stay unlocked, so the stored set always holds
// exactly one badge per catalog ID.
func (s *StatsService) ReplaceBadges(ctx context.Context, badges []achievement.Badge) (*stats.Aggregate, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		agg, err := s.GetAggregate(ctx)
		if err != nil {
			return nil, err
		}

		applyBadgeUnlocks(agg, badges)

		if err := s.saveAggregate(ctx, agg); err != nil {
			lastErr = err
			if errors.Is(err, ErrStatsConflict) {
				continue
			}
			return nil, err
		}

		s.bus.PublishStatsChanged(agg)
		return agg, nil
	}
	return nil, lastErr
}

// ForceUnlockBadge unlocks one badge regardless of its rule. Unlocking an
// already-unlocked badge is a no-op that still returns the aggregate.
func (s *StatsService) ForceUnlockBadge(ctx context.Context, badgeID achievement.BadgeID) (*stats.Aggregate, error) {
	if !achievement.KnownBadgeID(badgeID) {
		return nil, ErrBadgeNotFound
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		agg, err := s.GetAggregate(ctx)
		if err != nil {
			return nil, err
		}

		var unlocked *achievement.Badge
		for i := range agg.Badges {
			b := &agg.Badges[i]
			if b.ID != badgeID || b.Unlocked {
				continue
			}
			b.Unlocked = true
			now := time.Now()
			b.UnlockedAt = &now
			unlocked = b
		}

		if unlocked == nil {
			return agg, nil
		}

		if err := s.saveAggregate(ctx, agg); err != nil {
			lastErr = err
			if errors.Is(err, ErrStatsConflict) {
				continue
			}
			return nil, err
		}

		s.bus.PublishBadgeUnlocked(*unlocked)
		s.bus.PublishStatsChanged(agg)
		return agg, nil
	}
	return nil, lastErr
}

func (s *StatsService) loadAggregate(ctx context.Context) (*stats.Aggregate, error) {
	query := `
	SELECT total_points, current_streak, longest_streak, last_completed_date,
	       tasks_completed, total_tasks, badges, version
	FROM stats_aggregate
	WHERE id = $1
	`

	agg := &stats.Aggregate{}
	var badgesJSON []byte
	err := s.db.QueryRow(ctx, query, statsRowID).Scan(
		&agg.TotalPoints,
		&agg.CurrentStreak,
		&agg.LongestStreak,
		&agg.LastCompletedDate,
		&agg.TasksCompleted,
		&agg.TotalTasks,
		&badgesJSON,
		&agg.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}

	var badges []achievement.Badge
	if err := json.Unmarshal(badgesJSON, &badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges: %w", err)
	}
	agg.Badges = achievement.MergeWithCatalog(badges)

	return agg, nil
}

func (s *StatsService) insertDefault(ctx context.Context) error {
	def := stats.Default()
	badgesJSON, err := json.Marshal(def.Badges)
	if err != nil {
		return fmt.Errorf("failed to encode badges: %w", err)
	}

	query := `
	INSERT INTO stats_aggregate (id, badges)
	VALUES ($1, $2)
	ON CONFLICT (id) DO NOTHING
	`

	if _, err := s.db.Exec(ctx, query, statsRowID, badgesJSON); err != nil {
		return fmt.Errorf("failed to create default statistics: %w", err)
	}
	return nil
}

func (s *StatsService) saveAggregate(ctx context.Context, agg *stats.Aggregate) error {
	badgesJSON, err := json.Marshal(agg.Badges)
	if err != nil {
		return fmt.Errorf("failed to encode badges: %w", err)
	}

	query := `
	UPDATE stats_aggregate
	SET total_points = $2,
	    current_streak = $3,
	    longest_streak = $4,
	    last_completed_date = $5,
	    tasks_completed = $6,
	    total_tasks = $7,
	    badges = $8,
	    version = version + 1,
	    updated_at = NOW()
	WHERE id = $1 AND version = $9
	`

	result, err := s.db.Exec(
		ctx,
		query,
		statsRowID,
		agg.TotalPoints,
		agg.CurrentStreak,
		agg.LongestStreak,
		agg.LastCompletedDate,
		agg.TasksCompleted,
		agg.TotalTasks,
		badgesJSON,
		agg.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrStatsConflict
	}

	agg.Version++
	return nil
}

// applyBadgeUnlocks merges provided badge states into the aggregate,
// honoring the one-way transition: only locked->unlocked is applied.
func applyBadgeUnlocks(agg *stats.Aggregate, provided []achievement.Badge) {
	for i := range agg.Badges {
		current := &agg.Badges[i]
		for j := range provided {
			if provided[j].ID != current.ID || !provided[j].Unlocked || current.Unlocked {
				continue
			}
			current.Unlocked = true
			if provided[j].UnlockedAt != nil {
				current.UnlockedAt = provided[j].UnlockedAt
			} else {
				now := time.Now()
				current.UnlockedAt = &now
			}
		}
	}
}
