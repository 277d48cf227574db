package leader

import (
	"context"
	"errors"
	"sync"
	"time"

	"ece-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`)

var extendScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("PEXPIRE", KEYS[1], ARGV[2])
    else
        return 0
    end
`)

// RedisLeaderElection elects a single scheduler instance through one
// SET NX key, refreshed by a heartbeat while held.
type RedisLeaderElection struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

var _ domain.LeaderElection = (*RedisLeaderElection)(nil)

func NewRedisLeaderElection(client *redis.Client, prefix string, ttl time.Duration) *RedisLeaderElection {
	return &RedisLeaderElection{
		client: client,
		key:    prefix + "scheduler_leader",
		ttl:    ttl,
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	result, err := r.client.SetNX(ctx, r.key, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if result {
		r.mu.Lock()
		if r.stop == nil {
			r.stop = make(chan struct{})
			go r.maintainLeadership(instanceID, r.stop)
		}
		r.mu.Unlock()
	}

	return result, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	r.stopHeartbeat()
	return releaseScript.Run(ctx, r.client, []string{r.key}, instanceID).Err()
}

func (r *RedisLeaderElection) stopHeartbeat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *RedisLeaderElection) maintainLeadership(instanceID string, stop chan struct{}) {
	ticker := time.NewTicker(r.ttl / 3) // refresh at 1/3 of TTL
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		result, err := extendScript.Run(ctx, r.client, []string{r.key},
			instanceID, r.ttl.Milliseconds()).Int64()
		cancel()

		if err != nil || result == 0 {
			// lost leadership; the next BecomeLeader restarts the heartbeat
			r.mu.Lock()
			if r.stop == stop {
				r.stop = nil
			}
			r.mu.Unlock()
			return
		}
	}
}
