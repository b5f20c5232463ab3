package app

import (
	"context"
	"log/slog"
	"sync"

	"activity-player/internal/attempt"
	"activity-player/internal/domain"
	"activity-player/internal/player"
	"github.com/google/uuid"
)

// PlayerService hosts one player session per connected client.
type PlayerService struct {
	activities player.ActivityRepository
	api        attempt.API
	store      attempt.Store
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*player.Player
}

func NewPlayerService(activities player.ActivityRepository, api attempt.API, store attempt.Store, logger *slog.Logger) *PlayerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerService{
		activities: activities,
		api:        api,
		store:      store,
		logger:     logger,
		sessions:   make(map[string]*player.Player),
	}
}

// Open creates a session and loads the activity for the child. Unknown
// activities are rejected and leave no session behind.
func (s *PlayerService) Open(ctx context.Context, activityID, childID string) (string, player.State, error) {
	p := player.New(s.activities, s.api, s.store, player.WithLogger(s.logger))
	if err := p.Load(ctx, activityID, childID); err != nil {
		return "", player.State{}, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = p
	s.mu.Unlock()

	s.logger.Info("player session opened", "session_id", id, "activity_id", activityID, "child_id", childID)
	return id, p.Snapshot(), nil
}

// Switch moves an open session to another activity or child.
func (s *PlayerService) Switch(ctx context.Context, sessionID, activityID, childID string) (player.State, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return player.State{}, err
	}
	if err := p.Load(ctx, activityID, childID); err != nil {
		return p.Snapshot(), err
	}
	return p.Snapshot(), nil
}

func (s *PlayerService) SelectAnswer(sessionID, questionID string, value any) (player.State, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return player.State{}, err
	}
	return p.SelectAnswer(questionID, value)
}

func (s *PlayerService) Advance(sessionID string, isLast bool) (player.State, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return player.State{}, err
	}
	return p.Advance(isLast)
}

func (s *PlayerService) Restart(ctx context.Context, sessionID string) (player.State, error) {
	p, err := s.get(sessionID)
	if err != nil {
		return player.State{}, err
	}
	return p.Restart(ctx)
}

// Subscribe returns a channel of player events for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PlayerService) Subscribe(sessionID string) (<-chan player.Event, func(), error) {
	p, err := s.get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := p.Subscribe()
	return ch, cancel, nil
}

// Leave drops the session. Attempt calls already in flight still finish.
func (s *PlayerService) Leave(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		s.logger.Info("player session closed", "session_id", sessionID)
	}
}

// Count reports the number of open sessions.
func (s *PlayerService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Drain waits for background attempt calls of every open session.
func (s *PlayerService) Drain() {
	s.mu.RLock()
	players := make([]*player.Player, 0, len(s.sessions))
	for _, p := range s.sessions {
		players = append(players, p)
	}
	s.mu.RUnlock()
	for _, p := range players {
		p.Wait()
	}
}

func (s *PlayerService) get(sessionID string) (*player.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return p, nil
}
