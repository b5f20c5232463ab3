package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"activity-player/internal/domain"
)

func TestActivityRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ActivityLoader: NewStaticActivityLoader(map[string]domain.Activity{
			"act-1": sampleActivity(),
		}),
	}
	repo := NewActivityRepository(loader, time.Minute)

	if _, err := repo.GetActivity(context.Background(), "act-1"); err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	got, err := repo.GetActivity(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("get activity 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(got.Questions) != 1 || got.Questions[0].ID != "q1" {
		t.Fatalf("unexpected activity %+v", got)
	}
}

func TestActivityRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		ActivityLoader: NewStaticActivityLoader(map[string]domain.Activity{"act-1": sampleActivity()}),
	}
	repo := NewActivityRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetActivity(context.Background(), "act-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetActivity(context.Background(), "act-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}

	repo.Invalidate("act-1")
	_, _ = repo.GetActivity(context.Background(), "act-1")
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestActivityRepositoryUnknown(t *testing.T) {
	repo := NewActivityRepository(NewStaticActivityLoader(nil), time.Minute)
	_, err := repo.GetActivity(context.Background(), "missing")
	if !errors.Is(err, domain.ErrActivityNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	ActivityLoader
	calls int
}

func (l *countingLoader) LoadActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	l.calls++
	return l.ActivityLoader.LoadActivity(ctx, activityID)
}

func sampleActivity() domain.Activity {
	return domain.Activity{
		ID:    "act-1",
		Title: "Adding up",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Type:   domain.TypeTapSelect,
				Options: []domain.Option{
					{ID: "o1", Value: "3", Label: "3"},
					{ID: "o2", Value: "4", Label: "4", IsCorrect: true},
				},
			},
		},
	}
}
