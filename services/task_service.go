package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskQuestAPI/internal/cache"
	"taskQuestAPI/internal/task"
)

var ErrTaskNotFound = errors.New("task not found")

const (
	minTaskPoints = 5
	maxTaskPoints = 25
)

type TaskService struct {
	db    *pgxpool.Pool
	stats *StatsService
	cache *cache.TaskCache
	// points assigns a value to each new task. Injectable so tests can
	// pin it; defaults to uniform [5,25].
	points func() int
}

func NewTaskService(db *pgxpool.Pool, stats *StatsService, taskCache *cache.TaskCache) *TaskService {
	return &TaskService{
		db:    db,
		stats: stats,
		cache: taskCache,
		points: func() int {
			return minTaskPoints + rand.Intn(maxTaskPoints-minTaskPoints+1)
		},
	}
}

func NewTaskServiceWithPoints(db *pgxpool.Pool, stats *StatsService, taskCache *cache.TaskCache, points func() int) *TaskService {
	s := NewTaskService(db, stats, taskCache)
	s.points = points
	return s
}

func (s *TaskService) CreateTask(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &task.Task{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Points:      s.points(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == task.StatusCompleted {
		t.CompletedAt = &now
	}

	query := `
	INSERT INTO tasks (id, title, description, status, points, completed_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(
		ctx,
		query,
		t.ID,
		t.Title,
		t.Description,
		t.Status,
		t.Points,
		t.CompletedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.afterMutation(ctx)
	return t, nil
}

// ListTasks returns every task, newest created first. Reads go through
// the Redis cache when one is configured.
func (s *TaskService) ListTasks(ctx context.Context) ([]task.Task, error) {
	if tasks, ok := s.cache.GetTasks(ctx); ok {
		return tasks, nil
	}

	tasks, err := s.listTasksFromDB(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.SetTasks(ctx, tasks)
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `
	SELECT id, title, description, status, points, completed_at, created_at, updated_at
	FROM tasks
	WHERE id = $1
	`

	t := &task.Task{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Points,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return t, nil
}

// ReplaceTask is the PUT semantics: every mutable field is overwritten
// from the request.
func (s *TaskService) ReplaceTask(ctx context.Context, id uuid.UUID, req *task.ReplaceTaskRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Title = req.Title
	current.Description = req.Description
	s.applyStatus(current, req.Status)

	if err := s.updateTask(ctx, current); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	return current, nil
}

// PatchTask updates only the fields present in the request body.
func (s *TaskService) PatchTask(ctx context.Context, id uuid.UUID, req *task.PatchTaskRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		current.Title = *req.Title
	}
	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.Status != nil {
		s.applyStatus(current, *req.Status)
	}

	if err := s.updateTask(ctx, current); err != nil {
		return nil, err
	}

	s.afterMutation(ctx)
	return current, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	s.afterMutation(ctx)
	return nil
}

// applyStatus flips the status and keeps CompletedAt consistent: set on
// the pending->completed transition, cleared on the way back, preserved
// when the status does not change.
func (s *TaskService) applyStatus(t *task.Task, status task.Status) {
	if t.Status == status {
		return
	}
	t.Status = status
	if status == task.StatusCompleted {
		now := time.Now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

func (s *TaskService) updateTask(ctx context.Context, t *task.Task) error {
	t.UpdatedAt = time.Now()

	query := `
	UPDATE tasks
	SET title = $2,
	    description = $3,
	    status = $4,
	    completed_at = $5,
	    updated_at = $6
	WHERE id = $1
	`

	result, err := s.db.Exec(
		ctx,
		query,
		t.ID,
		t.Title,
		t.Description,
		t.Status,
		t.CompletedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

func (s *TaskService) listTasksFromDB(ctx context.Context) ([]task.Task, error) {
	query := `
	SELECT id, title, description, status, points, completed_at, created_at, updated_at
	FROM tasks
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Status,
			&t.Points,
			&t.CompletedAt,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// afterMutation re-derives the statistics aggregate from the full task
// set and drops the list cache. Recompute failures are logged, not
// surfaced: the task write already succeeded and the aggregate heals on
// the next mutation.
func (s *TaskService) afterMutation(ctx context.Context) {
	s.cache.Invalidate(ctx)

	tasks, err := s.listTasksFromDB(ctx)
	if err != nil {
		log.Printf("TaskService: recompute skipped, list failed: %v", err)
		return
	}

	if _, _, err := s.stats.RecomputeFrom(ctx, tasks); err != nil {
		log.Printf("TaskService: statistics recompute failed: %v", err)
	}
}
