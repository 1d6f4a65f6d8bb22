package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshJob asks the background worker to re-fetch a URL playlist.
type RefreshJob struct {
	PlaylistID  string    `json:"playlist_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// RefreshQueue is the Redis list key used for refresh jobs.
const RefreshQueue = KeyPrefix + "jobs:refresh"

// Enqueue pushes a job onto the left side of the refresh list.
func (r *Redis) Enqueue(ctx context.Context, job RefreshJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, RefreshQueue, data).Err()
}

// Dequeue blocks until a job is available on the right side of the list
// or the timeout expires. A timeout or a cancelled ctx yields (nil, nil) so
// the caller can loop and check for shutdown.
func (r *Redis) Dequeue(ctx context.Context, timeout time.Duration) (*RefreshJob, error) {
	result, err := r.client.BRPop(ctx, timeout, RefreshQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job RefreshJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
