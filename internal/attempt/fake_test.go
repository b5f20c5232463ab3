package attempt_test

import (
	"context"
	"errors"
	"sync"

	"activity-player/internal/domain"
)

var errBoom = errors.New("boom")

// fakeAPI records calls and returns canned payloads.
type fakeAPI struct {
	mu sync.Mutex

	current     map[string]any
	currentErr  error
	startResp   map[string]any
	startErr    error
	submitErr   error
	completeRsp map[string]any
	completeErr error
	restartResp map[string]any
	restartErr  error

	starts    int
	submits   []domain.Submission
	completes []domain.Submission
	restarts  int
}

func (f *fakeAPI) CurrentAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

func (f *fakeAPI) StartAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
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
	defer f.mu.Unlock()
	f.completes = append(f.completes, sub)
	return f.completeRsp, f.completeErr
}

func (f *fakeAPI) RestartAttempt(context.Context, string, string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return f.restartResp, f.restartErr
}

// failingStore simulates an unavailable session cache.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, errBoom }
func (failingStore) Set(context.Context, string, string) error { return errBoom }
func (failingStore) Delete(context.Context, string) error { return errBoom }
