package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"activity-player/internal/attempt"
	"activity-player/internal/config"
	"activity-player/internal/infra/memory"
	pgloader "activity-player/internal/infra/postgres"
	infraredis "activity-player/internal/infra/redis"
	"activity-player/internal/player"
	"activity-player/internal/progressapi"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is everything a player needs, built from config.
type backend struct {
	client     *progressapi.Client
	activities player.ActivityRepository
	store      attempt.Store
	pool       *pgxpool.Pool
	redis      *redis.Client
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func apiConfig(cfg config.Config) progressapi.Config {
	return progressapi.Config{
		BaseURL:  cfg.API.BaseURL,
		Token:    cfg.API.Token,
		Timeout:  config.TTLDuration(cfg.API.Timeout, 15*time.Second),
		Language: cfg.API.Language,
	}
}

// newBackend wires the portal client, the activity source and the attempt
// store. Activities come from the Postgres catalog when one is configured,
// otherwise from the portal; Redis, when configured, caches both.
func newBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base_url not configured")
	}
	b := &backend{client: progressapi.NewClient(apiConfig(cfg), logger)}

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
	}

	var loader memory.ActivityLoader = b.client
	if b.pool != nil {
		loader = pgloader.NewActivityLoader(b.pool, cfg.API.Language)
	}

	activityTTL := config.TTLDuration(cfg.Activity.TTL, 10*time.Minute)
	if b.redis != nil {
		b.activities = infraredis.NewActivityRepository(b.redis, loader, activityTTL)
		b.store = infraredis.NewSessionStore(b.redis, redisTTL)
	} else {
		b.activities = memory.NewActivityRepository(loader, activityTTL)
		b.store = memory.NewSessionStore()
	}
	logger.Debug("backend ready", "catalog", b.pool != nil, "redis", b.redis != nil)
	return b, nil
}
