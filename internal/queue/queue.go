package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const importKey = "queue:import"

// ImportJob asks the worker to turn a web page into an article item.
type ImportJob struct {
	URL         string    `json:"url"`
	Slug        string    `json:"slug,omitempty"`
	Category    string    `json:"category,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Queue is a FIFO of import jobs.
type Queue interface {
	Push(ctx context.Context, job ImportJob) error
	Pop(ctx context.Context) (ImportJob, error)
}

// RedisQueue is a Redis list: LPUSH on one end, BRPOP on the other.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Push(ctx context.Context, job ImportJob) error {
	if job.URL == "" {
		return errors.New("import job needs a url")
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, importKey, data).Err()
}

// Pop waits for a job in the Redis queue (Blocking)
func (q *RedisQueue) Pop(ctx context.Context) (ImportJob, error) {
	// 0 means wait forever until an item arrives
	result, err := q.rdb.BRPop(ctx, 0, importKey).Result()
	if err != nil {
		return ImportJob{}, err
	}

	var job ImportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return ImportJob{}, fmt.Errorf("decode import job: %w", err)
	}
	return job, nil
}

// Len reports how many jobs are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, importKey).Result()
}
