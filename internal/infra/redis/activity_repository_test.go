package redis

import (
	"context"
	"testing"
	"time"

	"activity-player/internal/domain"
	"activity-player/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestActivityRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		ActivityLoader: memory.NewStaticActivityLoader(map[string]domain.Activity{
			"act-1": sampleActivity(),
		}),
	}
	repo := NewActivityRepository(client, loader, time.Minute)

	_, err = repo.GetActivity(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("activity:act-1") {
		t.Fatalf("expected activity cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	got, err := repo.GetActivity(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("get cached activity: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if got.Questions[0].Options[1].Value != float64(4) || !got.Questions[0].Options[1].IsCorrect {
		t.Fatalf("cached activity lost option data: %+v", got.Questions[0].Options)
	}

	if err := repo.Invalidate(context.Background(), "act-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetActivity(context.Background(), "act-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestActivityRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	repo := NewActivityRepository(client, memory.NewStaticActivityLoader(map[string]domain.Activity{
		"act-1": sampleActivity(),
	}), time.Minute)

	got, err := repo.GetActivity(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if got.ID != "act-1" {
		t.Fatalf("unexpected activity %+v", got)
	}
}

type countingLoader struct {
	memory.ActivityLoader
	calls int
}

func (l *countingLoader) LoadActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	l.calls++
	return l.ActivityLoader.LoadActivity(ctx, activityID)
}

func sampleActivity() domain.Activity {
	return domain.Activity{
		ID: "act-1",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Type:   domain.TypeTapSelect,
				Options: []domain.Option{
					{ID: "o1", Value: float64(3), Label: "3"},
					{ID: "o2", Value: float64(4), Label: "4", IsCorrect: true},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
