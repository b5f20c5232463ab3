// Package attempt owns the mapping between an (activity, child) pair and
// its current attempt id, and mediates every attempt call to the portal API.
package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"activity-player/internal/domain"
)

// Store persists attempt ids for the lifetime of a browser session.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// API is the slice of the portal API the controller depends on.
// CurrentAttempt returns a nil payload when the child has no attempt.
type API interface {
	CurrentAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error)
	StartAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error)
	SubmitAttempt(ctx context.Context, sub domain.Submission) error
	CompleteAttempt(ctx context.Context, sub domain.Submission) (map[string]any, error)
	RestartAttempt(ctx context.Context, activityID, studentID string) (map[string]any, error)
}

// State is the lifecycle position of the attempt.
type State string

const (
	StateNoAttempt       State = "no_attempt"
	StatePendingStart    State = "pending_start"
	StateActive          State = "active"
	StatePendingComplete State = "pending_complete"
	StateCompleted       State = "completed"
	StatePendingRestart  State = "pending_restart"
)

// Key is the session store key for an (activity, child) pair.
func Key(activityID, childID string) string {
	return "attempt:" + activityID + ":" + childID
}

// Resumption describes what Resume found.
type Resumption struct {
	AttemptID string
	FromCache bool
	Completed bool
	Score     *float64
}

// Controller drives one attempt lifecycle. Safe for concurrent use.
type Controller struct {
	api        API
	store      Store
	logger     *slog.Logger
	activityID string
	childID    string

	mu        sync.Mutex
	state     State
	attemptID string
}

func NewController(api API, store Store, activityID, childID string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:        api,
		store:      store,
		activityID: activityID,
		childID:    childID,
		logger:     logger.With("activity_id", activityID, "child_id", childID),
		state:      StateNoAttempt,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttemptID returns the established attempt id, if any.
func (c *Controller) AttemptID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptID, c.attemptID != ""
}

// Resume looks for an attempt to continue. A server-reported completed
// attempt wins; otherwise the cached id, then a server in-progress id.
// Lookup failures are logged and treated as "nothing to resume".
func (c *Controller) Resume(ctx context.Context) (Resumption, error) {
	snapshot, err := c.api.CurrentAttempt(ctx, c.activityID, c.childID)
	if err != nil {
		c.logger.Warn("current attempt lookup failed", "err", err)
		snapshot = nil
	}

	if snapshot != nil && Status(snapshot) == StatusCompleted {
		res := Resumption{Completed: true}
		res.AttemptID, _ = ResolveAttemptID(snapshot)
		if score, ok := Score(snapshot); ok {
			res.Score = &score
		}
		c.mu.Lock()
		c.state = StateCompleted
		c.attemptID = res.AttemptID
		c.mu.Unlock()
		return res, nil
	}

	cached, ok, err := c.store.Get(ctx, c.key())
	if err != nil {
		c.logger.Warn("attempt cache read failed", "err", err)
	}
	if ok && cached != "" {
		c.activate(cached)
		return Resumption{AttemptID: cached, FromCache: true}, nil
	}

	if snapshot != nil {
		if id, ok := ResolveAttemptID(snapshot); ok {
			c.persist(ctx, id)
			c.activate(id)
			return Resumption{AttemptID: id}, nil
		}
	}
	return Resumption{}, nil
}

// Start creates a new attempt. An already active attempt is returned as is.
// When the response carries no recognizable id the result is ErrNoAttempt.
func (c *Controller) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.attemptID != "" && c.state == StateActive {
		id := c.attemptID
		c.mu.Unlock()
		return id, nil
	}
	c.state = StatePendingStart
	c.mu.Unlock()

	payload, err := c.api.StartAttempt(ctx, c.activityID, c.childID)
	if err != nil {
		c.setState(StatePendingStart, StateNoAttempt)
		return "", fmt.Errorf("%w: %w", domain.ErrAttemptStartFailed, err)
	}
	id, ok := ResolveAttemptID(payload)
	if !ok {
		c.setState(StatePendingStart, StateNoAttempt)
		c.logger.Warn("start response carried no attempt id")
		return "", domain.ErrNoAttempt
	}

	c.mu.Lock()
	if c.state != StatePendingStart {
		// a restart or resume settled the attempt while this call was in flight
		current := c.attemptID
		c.mu.Unlock()
		if current == "" {
			return "", domain.ErrNoAttempt
		}
		return current, nil
	}
	c.attemptID = id
	c.state = StateActive
	c.mu.Unlock()

	c.persist(ctx, id)
	c.logger.Info("attempt started", "attempt_id", id)
	return id, nil
}

// Submit sends answer progress for the active attempt. Failures are
// returned, never retried, and leave the controller state untouched.
func (c *Controller) Submit(ctx context.Context, answers map[string]domain.FirstAttempt, timeSpent int) error {
	sub, err := c.submission(answers, timeSpent)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAttemptSubmitFailed, err)
	}
	if err := c.api.SubmitAttempt(ctx, sub); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAttemptSubmitFailed, err)
	}
	return nil
}

// Complete finishes the active attempt and returns the server score when
// the response carries a numeric one.
func (c *Controller) Complete(ctx context.Context, answers map[string]domain.FirstAttempt, timeSpent int) (*float64, error) {
	sub, err := c.submission(answers, timeSpent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAttemptCompleteFailed, err)
	}
	c.setStateFor(sub.AttemptID, StatePendingComplete)

	payload, err := c.api.CompleteAttempt(ctx, sub)
	if err != nil {
		c.setStateFor(sub.AttemptID, StateActive)
		return nil, fmt.Errorf("%w: %w", domain.ErrAttemptCompleteFailed, err)
	}
	c.setStateFor(sub.AttemptID, StateCompleted)

	score, ok := Score(payload)
	if !ok {
		return nil, nil
	}
	return &score, nil
}

// Restart asks the server for a fresh attempt and replaces the cached id.
// An empty id with a nil error means the server restarted without naming
// the new attempt; the caller should Start one.
func (c *Controller) Restart(ctx context.Context) (string, error) {
	c.mu.Lock()
	prev := c.state
	c.state = StatePendingRestart
	c.mu.Unlock()

	payload, err := c.api.RestartAttempt(ctx, c.activityID, c.childID)
	if err != nil {
		c.setState(StatePendingRestart, prev)
		return "", fmt.Errorf("%w: %w", domain.ErrAttemptRestartFailed, err)
	}

	id, ok := ResolveAttemptID(payload)
	if !ok {
		if err := c.store.Delete(ctx, c.key()); err != nil {
			c.logger.Warn("attempt cache delete failed", "err", err)
		}
		c.mu.Lock()
		c.attemptID = ""
		c.state = StateNoAttempt
		c.mu.Unlock()
		return "", nil
	}

	c.persist(ctx, id)
	c.activate(id)
	c.logger.Info("attempt restarted", "attempt_id", id)
	return id, nil
}

func (c *Controller) submission(answers map[string]domain.FirstAttempt, timeSpent int) (domain.Submission, error) {
	id, ok := c.AttemptID()
	if !ok {
		return domain.Submission{}, domain.ErrNoAttempt
	}
	return domain.Submission{
		AttemptID: id,
		StudentID: c.childID,
		Answers:   answers,
		TimeSpent: timeSpent,
	}, nil
}

func (c *Controller) persist(ctx context.Context, id string) {
	if err := c.store.Set(ctx, c.key(), id); err != nil {
		c.logger.Warn("attempt cache write failed", "err", err)
	}
}

func (c *Controller) activate(id string) {
	c.mu.Lock()
	c.attemptID = id
	c.state = StateActive
	c.mu.Unlock()
}

// setState moves to next only while the controller is still in from.
func (c *Controller) setState(from, next State) {
	c.mu.Lock()
	if c.state == from {
		c.state = next
	}
	c.mu.Unlock()
}

// setStateFor ignores transitions for an attempt that has since been replaced.
func (c *Controller) setStateFor(attemptID string, next State) {
	c.mu.Lock()
	if c.attemptID == attemptID {
		c.state = next
	}
	c.mu.Unlock()
}

func (c *Controller) key() string {
	return Key(c.activityID, c.childID)
}
