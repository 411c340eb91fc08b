package importjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SnapshotStore keeps finished jobs around after the tracker evicts them
type SnapshotStore interface {
	Save(ctx context.Context, job Job) error
	Load(ctx context.Context, jobID string) (Job, bool, error)
}

// RedisSnapshotStore stores finished jobs in Redis as JSON under a key prefix
type RedisSnapshotStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSnapshotStore creates a Redis-backed SnapshotStore
func NewRedisSnapshotStore(client *goredis.Client, prefix string, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Save writes the job with the configured TTL
func (s *RedisSnapshotStore) Save(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+job.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job snapshot: %w", err)
	}
	return nil
}

// Load reads a job snapshot; found is false when the key does not exist
func (s *RedisSnapshotStore) Load(ctx context.Context, jobID string) (Job, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("failed to load job snapshot: %w", err)
	}

	var job Job
	if err := json.Unmarshal(val, &job); err != nil {
		return Job{}, false, fmt.Errorf("failed to decode job snapshot: %w", err)
	}
	return job, true, nil
}
