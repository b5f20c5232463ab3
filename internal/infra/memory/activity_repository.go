package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"activity-player/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ActivityLoader fetches activity content from a backing source (portal API, catalog DB).
type ActivityLoader interface {
	LoadActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// ActivityRepository caches activities with TTL to avoid refetching on every session.
type ActivityRepository struct {
	loader ActivityLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[string]cachedActivity
}

type cachedActivity struct {
	activity  domain.Activity
	expiresAt time.Time
}

func NewActivityRepository(loader ActivityLoader, ttl time.Duration) *ActivityRepository {
	return &ActivityRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedActivity),
	}
}

func (r *ActivityRepository) GetActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[activityID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.activity, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(activityID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[activityID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.activity, nil
		}
		r.mu.RUnlock()

		activity, err := r.loader.LoadActivity(ctx, activityID)
		if err != nil {
			return domain.Activity{}, err
		}

		r.mu.Lock()
		r.cache[activityID] = cachedActivity{
			activity:  activity,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return activity, nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return result.(domain.Activity), nil
}

// Invalidate drops a cached activity so the next read reloads it.
func (r *ActivityRepository) Invalidate(activityID string) {
	r.mu.Lock()
	delete(r.cache, activityID)
	r.mu.Unlock()
}

// StaticActivityLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticActivityLoader struct {
	activities map[string]domain.Activity
}

func NewStaticActivityLoader(activities map[string]domain.Activity) *StaticActivityLoader {
	return &StaticActivityLoader{activities: activities}
}

func (l *StaticActivityLoader) LoadActivity(_ context.Context, activityID string) (domain.Activity, error) {
	if activity, ok := l.activities[activityID]; ok {
		return activity, nil
	}
	return domain.Activity{}, domain.ErrActivityNotFound
}

func (r *ActivityRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
