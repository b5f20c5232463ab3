package domain

import "time"

// QuestionType classifies how a question is answered.
// Unrecognized raw types are carried verbatim.
type QuestionType string

const (
	TypeTapSelect    QuestionType = "tap_select"
	TypeCountObjects QuestionType = "count_objects"
	TypeTextInput    QuestionType = "text_input"
	TypeUnknown      QuestionType = "unknown"
)

// Known reports whether t is one of the canonical question types.
func (t QuestionType) Known() bool {
	switch t {
	case TypeTapSelect, TypeCountObjects, TypeTextInput:
		return true
	}
	return false
}

// Option represents a possible answer for a choice question.
type Option struct {
	ID        string `json:"id"`
	Value     any    `json:"value"` // compared against the grading reference
	Label     string `json:"label"`
	IsCorrect bool   `json:"isCorrect"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Animation describes how a decorative object enters the screen.
type Animation struct {
	Type      string `json:"type,omitempty"` // bounce, pulse, spin
	AnimateIn bool   `json:"animateIn"`
	DelayMS   int    `json:"delayMs"`
}

// RenderItem is one drawable object in a question's decoration. Display only, never graded.
type RenderItem struct {
	Index     int       `json:"index"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Animation Animation `json:"animation"`
}

// Layout carries display hints for decoration objects.
type Layout struct {
	Size      string `json:"size,omitempty"`
	SizePx    int    `json:"sizePx,omitempty"`
	SpacingPx int    `json:"spacingPx,omitempty"`
	Randomize bool   `json:"randomize,omitempty"`
}

// Question is the canonical form of one prompt within an activity.
type Question struct {
	ID            string       `json:"id"`
	Prompt        string       `json:"prompt"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options"`
	CorrectAnswer any          `json:"correctAnswer,omitempty"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	Objects       []RenderItem `json:"objects,omitempty"`
	Layout        Layout       `json:"layout"`
}

// Activity is a learning unit: an ordered set of questions.
type Activity struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Instructions string     `json:"instructions"`
	TemplateType string     `json:"templateType,omitempty"`
	RewardPoints int        `json:"rewardPoints"`
	Questions    []Question `json:"questions"`
}

// Question returns the question with the given id.
func (a Activity) Question(id string) (Question, int, bool) {
	for i, q := range a.Questions {
		if q.ID == id {
			return q, i, true
		}
	}
	return Question{}, -1, false
}

// Feedback is the last grading signal shown to the player.
type Feedback string

const (
	FeedbackNone      Feedback = "none"
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
)

// FirstAttempt is the scored outcome of the first answer ever given to a question.
// Correct is nil when the question could not be graded.
type FirstAttempt struct {
	Value   any   `json:"value"`
	Correct *bool `json:"correct,omitempty"`
}

// Submission is the payload sent on submit and complete calls.
type Submission struct {
	AttemptID string                  `json:"attempt_id"`
	StudentID string                  `json:"student_id"`
	Answers   map[string]FirstAttempt `json:"answers"`
	TimeSpent int                     `json:"time_spent"`
}

// NoticeLevel grades a transient notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient message for the player UI (a toast).
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}
