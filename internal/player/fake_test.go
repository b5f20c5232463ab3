package player_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"activity-player/internal/domain"
	"activity-player/internal/infra/memory"
	"activity-player/internal/player"
)

var errBoom = errors.New("boom")

// fakeAPI records attempt calls. A non-nil gate blocks the matching call
// until the test closes it.
type fakeAPI struct {
	mu sync.Mutex

	current      map[string]any
	startResp    map[string]any
	startErr     error
	startGate    chan struct{}
	submitErr    error
	completeResp map[string]any
	completeErr  error
	completeGate chan struct{}
	restartResp  map[string]any
	restartErr   error

	starts    int
	submits   []domain.Submission
	completes []domain.Submission
	restarts  int
}

func (f *fakeAPI) CurrentAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeAPI) StartAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	f.starts++
	gate := f.startGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startResp, f.startErr
}

func (f *fakeAPI) SubmitAttempt(_ context.Context, sub domain.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, sub)
	return f.submitErr
}

func (f *fakeAPI) CompleteAttempt(_ context.Context, sub domain.Submission) (map[string]any, error) {
	f.mu.Lock()
	gate := f.completeGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes = append(f.completes, sub)
	return f.completeResp, f.completeErr
}

func (f *fakeAPI) RestartAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return f.restartResp, f.restartErr
}

func (f *fakeAPI) setStart(resp map[string]any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startResp, f.startErr = resp, err
}

func (f *fakeAPI) setSubmitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
}

func (f *fakeAPI) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeAPI) submitted() []domain.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Submission(nil), f.submits...)
}

func (f *fakeAPI) completed() []domain.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Submission(nil), f.completes...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// shapes has a tap-select question and a counting question.
func shapes() domain.Activity {
	return domain.Activity{
		ID:    "act-1",
		Title: "Shapes",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Pick the circle",
				Type:   domain.TypeTapSelect,
				Options: []domain.Option{
					{ID: "a", Value: "a", Label: "circle", IsCorrect: true},
					{ID: "b", Value: "b", Label: "square"},
				},
			},
			{
				ID:     "q2",
				Prompt: "How many apples?",
				Type:   domain.TypeCountObjects,
				Options: []domain.Option{
					{ID: "1", Value: 1},
					{ID: "2", Value: 2, IsCorrect: true},
				},
			},
		},
	}
}

func single() domain.Activity {
	a := shapes()
	a.ID = "act-2"
	a.Questions = a.Questions[:1]
	return a
}

func newPlayer(api *fakeAPI, store *memory.SessionStore, c *clock) *player.Player {
	repo := memory.NewActivityRepository(memory.NewStaticActivityLoader(map[string]domain.Activity{
		"act-1": shapes(),
		"act-2": single(),
	}), time.Minute)
	return player.New(repo, api, store, player.WithClock(c.now))
}

// nextNotice reads events until a notice arrives.
func nextNotice(events <-chan player.Event, timeout time.Duration) (domain.Notice, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return domain.Notice{}, false
			}
			if ev.Type == player.EventNotice {
				return *ev.Notice, true
			}
		case <-deadline:
			return domain.Notice{}, false
		}
	}
}
