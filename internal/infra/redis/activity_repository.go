package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"activity-player/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ActivityLoader fetches activity content from a backing source (portal API, catalog DB).
type ActivityLoader interface {
	LoadActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// ActivityRepository caches normalized activities in Redis and falls back to a loader on miss.
// Activities are stored as: SET activity:{activityID} {json}
type ActivityRepository struct {
	client *redis.Client
	loader ActivityLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewActivityRepository(client *redis.Client, loader ActivityLoader, ttl time.Duration) *ActivityRepository {
	return &ActivityRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ActivityRepository) GetActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	if activity, ok := r.cached(ctx, activityID); ok {
		return activity, nil
	}

	result, err, _ := r.sf.Do(activityID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if activity, ok := r.cached(ctx, activityID); ok {
			return activity, nil
		}

		activity, err := r.loader.LoadActivity(ctx, activityID)
		if err != nil {
			return domain.Activity{}, err
		}

		if data, err := json.Marshal(activity); err == nil {
			_ = r.client.Set(ctx, r.key(activityID), data, r.ttlWithJitter()).Err()
		}
		return activity, nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return result.(domain.Activity), nil
}

// Invalidate drops a cached activity so the next read reloads it.
func (r *ActivityRepository) Invalidate(ctx context.Context, activityID string) error {
	return r.client.Del(ctx, r.key(activityID)).Err()
}

func (r *ActivityRepository) cached(ctx context.Context, activityID string) (domain.Activity, bool) {
	data, err := r.client.Get(ctx, r.key(activityID)).Bytes()
	if err != nil {
		// a miss and an unreachable cache both fall through to the loader
		return domain.Activity{}, false
	}
	var activity domain.Activity
	if err := json.Unmarshal(data, &activity); err != nil {
		return domain.Activity{}, false
	}
	return activity, true
}

func (r *ActivityRepository) key(activityID string) string {
	return "activity:" + activityID
}

func (r *ActivityRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
