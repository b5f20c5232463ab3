// Package player runs one child's pass through an activity: answer
// selection and grading, navigation, timing, and the attempt calls that
// record progress on the portal.
package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"activity-player/internal/attempt"
	"activity-player/internal/domain"
	"activity-player/internal/grading"
	"activity-player/internal/timing"
)

// ActivityRepository loads activity content (cached or remote).
type ActivityRepository interface {
	GetActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock is test-only for deterministic timing.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// Player is safe for concurrent use. Attempt calls triggered by user
// actions run in the background; their results are applied only while the
// session generation they were issued under is still current.
type Player struct {
	activities ActivityRepository
	api        attempt.API
	store      attempt.Store
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	gen         uint64
	loaded      bool
	activityID  string
	childID     string
	activity    domain.Activity
	ctrl        *attempt.Controller
	tracker     *timing.Tracker
	outbox      *Outbox
	starting    bool
	phase       Phase
	index       int
	answers     map[string]any
	first       map[string]domain.FirstAttempt
	resolved    map[string]bool
	feedback    domain.Feedback
	serverScore *float64
	subscribers map[chan Event]struct{}

	wg sync.WaitGroup
}

func New(activities ActivityRepository, api attempt.API, store attempt.Store, opts ...Option) *Player {
	p := &Player{
		activities:  activities,
		api:         api,
		store:       store,
		logger:      slog.Default(),
		now:         time.Now,
		phase:       PhaseLoading,
		feedback:    domain.FeedbackNone,
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.tracker = timing.NewTrackerWithClock(p.now)
	p.outbox = NewOutbox(p.sendLocked)
	p.answers = make(map[string]any)
	p.first = make(map[string]domain.FirstAttempt)
	p.resolved = make(map[string]bool)
	return p
}

// Load fetches the activity and resumes or begins an attempt for the child.
// Loading the pair that is already loaded is a no-op; any other pair
// discards the previous session state.
func (p *Player) Load(ctx context.Context, activityID, childID string) error {
	p.mu.Lock()
	if p.loaded && p.activityID == activityID && p.childID == childID {
		p.mu.Unlock()
		return nil
	}
	p.gen++
	p.loaded = false
	p.activityID = activityID
	p.childID = childID
	p.activity = domain.Activity{}
	p.resetLocked(PhaseLoading)
	gen := p.gen
	p.broadcastStateLocked()
	p.mu.Unlock()

	activity, err := p.activities.GetActivity(ctx, activityID)
	if err != nil {
		p.logger.Warn("activity load failed", "activity_id", activityID, "err", err)
		return err
	}

	logger := p.logger.With("activity_id", activityID, "child_id", childID)
	ctrl := attempt.NewController(p.api, p.store, activityID, childID, p.logger)
	res, err := ctrl.Resume(ctx)
	if err != nil {
		logger.Warn("attempt resume failed", "err", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return nil
	}
	p.loaded = true
	p.activity = activity
	p.ctrl = ctrl

	if res.Completed {
		p.phase = PhaseCompleted
		p.serverScore = res.Score
		logger.Info("activity already completed", "attempt_id", res.AttemptID)
		p.broadcastStateLocked()
		return nil
	}

	p.phase = PhasePlaying
	if q, ok := p.currentLocked(); ok {
		p.tracker.Start(q.ID)
	}
	if res.AttemptID == "" {
		p.ensureAttemptLocked()
	}
	logger.Info("activity loaded", "questions", len(activity.Questions), "attempt_id", res.AttemptID)
	p.broadcastStateLocked()
	return nil
}

// SelectAnswer records value for a question and grades it. Answers on a
// resolved question, or outside the playing phase, are ignored.
func (p *Player) SelectAnswer(questionID string, value any) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return State{}, domain.ErrNotLoaded
	}
	q, _, ok := p.activity.Question(questionID)
	if !ok {
		return p.snapshotLocked(), domain.ErrQuestionNotFound
	}
	if p.phase != PhasePlaying || p.resolved[questionID] {
		return p.snapshotLocked(), nil
	}

	p.answers[questionID] = value
	verdict := grading.IsCorrect(q, value)

	recorded := false
	if _, seen := p.first[questionID]; !seen && !grading.Empty(value) {
		p.first[questionID] = domain.FirstAttempt{Value: value, Correct: verdict.Bool()}
		recorded = true
	}

	switch verdict {
	case grading.Correct:
		p.resolved[questionID] = true
		p.feedback = domain.FeedbackCorrect
	case grading.Incorrect:
		p.feedback = domain.FeedbackIncorrect
	default:
		p.feedback = domain.FeedbackNone
		if !grading.Empty(value) && !grading.CanGrade(q) {
			p.resolved[questionID] = true
		}
	}

	if recorded {
		p.dispatchLocked(KindProgress)
	}
	p.broadcastStateLocked()
	return p.snapshotLocked(), nil
}

// Advance moves past the current question. isLast completes the attempt
// instead of moving to the next question.
func (p *Player) Advance(isLast bool) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		return State{}, domain.ErrNotLoaded
	}
	if p.phase != PhasePlaying {
		return p.snapshotLocked(), domain.ErrNotPlaying
	}
	q, ok := p.currentLocked()
	if !ok {
		return p.snapshotLocked(), domain.ErrQuestionNotFound
	}
	value := p.answers[q.ID]
	if grading.Empty(value) {
		return p.snapshotLocked(), domain.ErrAnswerRequired
	}
	if grading.IsCorrect(q, value) == grading.Incorrect {
		p.feedback = domain.FeedbackIncorrect
		p.broadcastStateLocked()
		return p.snapshotLocked(), domain.ErrAnswerIncorrect
	}
	p.resolved[q.ID] = true

	if isLast {
		p.phase = PhaseSubmitting
		p.dispatchLocked(KindComplete)
		p.broadcastStateLocked()
		return p.snapshotLocked(), nil
	}

	p.dispatchLocked(KindProgress)
	if p.index < len(p.activity.Questions)-1 {
		p.index++
	}
	p.feedback = domain.FeedbackNone
	if next, ok := p.currentLocked(); ok {
		p.tracker.Start(next.ID)
	}
	p.broadcastStateLocked()
	return p.snapshotLocked(), nil
}

// Restart asks the portal for a fresh attempt. On success all local state
// is reset to the first question; on failure nothing changes.
func (p *Player) Restart(ctx context.Context) (State, error) {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return State{}, domain.ErrNotLoaded
	}
	ctrl, gen := p.ctrl, p.gen
	p.mu.Unlock()

	id, err := ctrl.Restart(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return p.snapshotLocked(), nil
	}
	if err != nil {
		p.noticeLocked(domain.NoticeError, "Could not restart the activity. Please try again.")
		p.logger.Warn("attempt restart failed", "activity_id", p.activityID, "err", err)
		return p.snapshotLocked(), err
	}

	p.gen++
	p.resetLocked(PhasePlaying)
	if q, ok := p.currentLocked(); ok {
		p.tracker.Start(q.ID)
	}
	if id == "" {
		p.ensureAttemptLocked()
	}
	p.noticeLocked(domain.NoticeInfo, "Starting over with a fresh attempt.")
	p.broadcastStateLocked()
	return p.snapshotLocked(), nil
}

// Snapshot returns a copy of the current session state.
func (p *Player) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Progress is the percentage of resolved questions.
func (p *Player) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return percent(p.answeredLocked(), len(p.activity.Questions))
}

// FinalScore is available once the activity is completed. The portal's
// score wins; otherwise correct first attempts are counted.
func (p *Player) FinalScore() (Score, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scoreLocked()
}

// Subscribe returns a channel of player events starting with the current
// state. The caller must invoke cancel to avoid leaks.
func (p *Player) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	// the initial snapshot goes out under the lock so no newer event can precede it
	p.mu.Lock()
	p.subscribers[ch] = struct{}{}
	initial := p.snapshotLocked()
	ch <- Event{Type: EventState, State: &initial}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// Wait blocks until every background attempt call has returned.
func (p *Player) Wait() {
	p.wg.Wait()
}

func (p *Player) resetLocked(phase Phase) {
	p.phase = phase
	p.index = 0
	p.answers = make(map[string]any)
	p.first = make(map[string]domain.FirstAttempt)
	p.resolved = make(map[string]bool)
	p.feedback = domain.FeedbackNone
	p.serverScore = nil
	p.starting = false
	p.outbox.Clear()
	p.tracker.Reset()
}

func (p *Player) currentLocked() (domain.Question, bool) {
	if p.index < 0 || p.index >= len(p.activity.Questions) {
		return domain.Question{}, false
	}
	return p.activity.Questions[p.index], true
}

func (p *Player) answeredLocked() int {
	n := 0
	for _, q := range p.activity.Questions {
		if p.resolved[q.ID] {
			n++
		}
	}
	return n
}

// dispatchLocked sends the cumulative payload, or buffers it until an
// attempt id exists.
func (p *Player) dispatchLocked(kind Kind) {
	payload := Payload{
		Kind:      kind,
		Answers:   copyFirst(p.first),
		TimeSpent: p.tracker.FlushAndTotal().Total,
	}
	if id, ok := p.ctrl.AttemptID(); ok && !p.starting {
		p.sendLocked(id, payload)
		return
	}
	p.outbox.Hold(payload)
	p.ensureAttemptLocked()
}

// sendLocked issues the attempt call in the background.
func (p *Player) sendLocked(attemptID string, payload Payload) {
	ctrl, gen := p.ctrl, p.gen
	logger := p.logger.With("activity_id", p.activityID, "attempt_id", attemptID)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx := context.Background()

		if payload.Kind == KindProgress {
			if err := ctrl.Submit(ctx, payload.Answers, payload.TimeSpent); err != nil {
				logger.Warn("progress submit failed", "err", err)
				p.mu.Lock()
				if gen == p.gen {
					p.noticeLocked(domain.NoticeError, "Your progress could not be saved right now.")
				}
				p.mu.Unlock()
			}
			return
		}

		score, err := ctrl.Complete(ctx, payload.Answers, payload.TimeSpent)
		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen {
			return
		}
		p.phase = PhaseCompleted
		if err != nil {
			logger.Warn("attempt complete failed", "err", err)
			p.noticeLocked(domain.NoticeError, "Your result could not be saved. The score shown is from this device.")
		} else {
			p.serverScore = score
			logger.Info("attempt completed", "time_spent", payload.TimeSpent)
		}
		p.broadcastStateLocked()
	}()
}

// ensureAttemptLocked starts an attempt in the background unless one is
// already being started. A successful start flushes the outbox.
func (p *Player) ensureAttemptLocked() {
	if p.starting {
		return
	}
	if _, ok := p.ctrl.AttemptID(); ok {
		return
	}
	p.starting = true
	ctrl, gen := p.ctrl, p.gen

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		id, err := ctrl.Start(context.Background())

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen {
			return
		}
		p.starting = false
		if err != nil {
			p.logger.Warn("attempt start failed", "activity_id", p.activityID, "err", err)
			if errors.Is(err, domain.ErrAttemptStartFailed) {
				p.noticeLocked(domain.NoticeError, "Could not start a new attempt. Progress will be saved once the connection recovers.")
			}
			if p.phase == PhaseSubmitting {
				p.outbox.Clear()
				p.phase = PhaseCompleted
				p.noticeLocked(domain.NoticeError, "Your result could not be saved. The score shown is from this device.")
			}
			p.broadcastStateLocked()
			return
		}
		p.outbox.Ready(id)
		p.broadcastStateLocked()
	}()
}

func (p *Player) scoreLocked() (Score, bool) {
	if p.phase != PhaseCompleted {
		return Score{}, false
	}
	total := len(p.activity.Questions)
	if p.serverScore != nil {
		return Score{Value: *p.serverScore, Total: total, ServerReported: true}, true
	}
	correct := 0
	for _, q := range p.activity.Questions {
		if fa, ok := p.first[q.ID]; ok && fa.Correct != nil && *fa.Correct {
			correct++
		}
	}
	return Score{Value: float64(correct), Total: total}, true
}

func (p *Player) snapshotLocked() State {
	st := State{
		ActivityID:    p.activityID,
		ChildID:       p.childID,
		Title:         p.activity.Title,
		Phase:         p.phase,
		Index:         p.index,
		Total:         len(p.activity.Questions),
		Answers:       make(map[string]any, len(p.answers)),
		FirstAttempts: copyFirst(p.first),
		Resolved:      make(map[string]bool, len(p.resolved)),
		Feedback:      p.feedback,
		Answered:      p.answeredLocked(),
		Pending:       p.outbox.Pending(),
	}
	st.Progress = percent(st.Answered, st.Total)
	for k, v := range p.answers {
		st.Answers[k] = v
	}
	for k, v := range p.resolved {
		st.Resolved[k] = v
	}
	if q, ok := p.currentLocked(); ok {
		st.Question = &q
	}
	if p.ctrl != nil {
		st.AttemptID, _ = p.ctrl.AttemptID()
	}
	if score, ok := p.scoreLocked(); ok {
		st.Score = &score
	}
	return st
}

func (p *Player) noticeLocked(level domain.NoticeLevel, message string) {
	n := domain.Notice{Level: level, Message: message, At: p.now()}
	p.publishLocked(Event{Type: EventNotice, Notice: &n})
}

func (p *Player) broadcastStateLocked() {
	st := p.snapshotLocked()
	p.publishLocked(Event{Type: EventState, State: &st})
}

func (p *Player) publishLocked(ev Event) {
	for ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber: drop the oldest event rather than block
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func copyFirst(src map[string]domain.FirstAttempt) map[string]domain.FirstAttempt {
	out := make(map[string]domain.FirstAttempt, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
