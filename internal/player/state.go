package player

import (
	"math"

	"activity-player/internal/domain"
)

// Phase is the player's position in an activity.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhasePlaying    Phase = "playing"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
)

// Score is the result shown on the reward screen.
type Score struct {
	Value          float64 `json:"value"`
	Total          int     `json:"total"`
	ServerReported bool    `json:"serverReported"`
}

// State is a point-in-time copy of a player session.
type State struct {
	ActivityID    string                         `json:"activityId"`
	ChildID       string                         `json:"childId"`
	Title         string                         `json:"title,omitempty"`
	Phase         Phase                          `json:"phase"`
	Index         int                            `json:"index"`
	Total         int                            `json:"total"`
	Question      *domain.Question               `json:"question,omitempty"`
	Answers       map[string]any                 `json:"answers"`
	FirstAttempts map[string]domain.FirstAttempt `json:"firstAttempts"`
	Resolved      map[string]bool                `json:"resolved"`
	Feedback      domain.Feedback                `json:"feedback"`
	Answered      int                            `json:"answered"`
	Progress      int                            `json:"progress"`
	AttemptID     string                         `json:"attemptId,omitempty"`
	Pending       bool                           `json:"pendingSubmission"`
	Score         *Score                         `json:"score,omitempty"`
}

// EventType distinguishes player events.
type EventType string

const (
	EventState  EventType = "state"
	EventNotice EventType = "notice"
)

// Event is pushed to subscribers on every state change and notice.
type Event struct {
	Type   EventType      `json:"type"`
	State  *State         `json:"state,omitempty"`
	Notice *domain.Notice `json:"notice,omitempty"`
}

// percent is round(done/total*100) clamped to [0,100]; zero without questions.
func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(done) / float64(total) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
