package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps attempt ids in Redis (attempt.Store).
// Notes:
//   - Keys expire after ttl, which plays the role of the browser session:
//     a reload within the window resumes, an idle session starts over.
//   - Every write refreshes the expiry.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		prefix: "player:session:",
	}
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
