// Package cache keeps a Redis copy of the full task list so repeated GET
// /tasks calls skip the database. The cache is best-effort: any Redis
// failure falls back to the store and never fails a request.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"taskQuestAPI/internal/task"
)

const taskListKey = "tasks:all"

type TaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisURL string, ttl time.Duration) (*TaskCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &TaskCache{client: client, ttl: ttl}, nil
}

// GetTasks returns the cached task list, or (nil, false) on a miss or any
// Redis error. A nil *TaskCache always misses, so callers need no guard
// when Redis is not configured.
func (c *TaskCache) GetTasks(ctx context.Context) ([]task.Task, bool) {
	if c == nil {
		return nil, false
	}

	b, err := c.client.Get(ctx, taskListKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Cache: get tasks failed: %v", err)
		return nil, false
	}

	var tasks []task.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		log.Printf("Cache: unmarshal tasks failed: %v", err)
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) SetTasks(ctx context.Context, tasks []task.Task) {
	if c == nil {
		return
	}

	b, err := json.Marshal(tasks)
	if err != nil {
		log.Printf("Cache: marshal tasks failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, taskListKey, b, c.ttl).Err(); err != nil {
		log.Printf("Cache: set tasks failed: %v", err)
	}
}

// Invalidate drops the cached list so the next read goes to the database.
func (c *TaskCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, taskListKey).Err(); err != nil {
		log.Printf("Cache: invalidate tasks failed: %v", err)
	}
}

func (c *TaskCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
