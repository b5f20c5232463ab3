package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"activity-player/internal/domain"
	"activity-player/internal/question"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ActivityLoader loads raw activity JSONB from the local catalog and
// normalizes it like a portal API response.
type ActivityLoader struct {
	pool *pgxpool.Pool
	lang string
}

func NewActivityLoader(pool *pgxpool.Pool, lang string) *ActivityLoader {
	return &ActivityLoader{pool: pool, lang: lang}
}

func (l *ActivityLoader) LoadActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM activities WHERE id=$1`, activityID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err != nil {
		return domain.Activity{}, fmt.Errorf("load activity: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Activity{}, fmt.Errorf("unmarshal activity: %w", err)
	}
	activity := question.NormalizeActivity(payload, l.lang)
	if activity.ID == "" {
		activity.ID = activityID
	}
	return activity, nil
}

// SaveActivity upserts a raw activity payload into the catalog.
func (l *ActivityLoader) SaveActivity(ctx context.Context, activityID string, payload json.RawMessage) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO activities (id, data, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		activityID, string(payload))
	if err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}
