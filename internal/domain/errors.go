package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a player session has not been initialized.
	ErrSessionNotFound = errors.New("player session not found")
	// ErrActivityNotFound indicates the activity content could not be loaded.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrQuestionNotFound indicates a question ID is not part of the loaded activity.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoAttempt is returned when an attempt call needs an id that is not known yet.
	ErrNoAttempt = errors.New("no attempt available")

	ErrAttemptStartFailed    = errors.New("attempt start failed")
	ErrAttemptSubmitFailed   = errors.New("attempt submit failed")
	ErrAttemptCompleteFailed = errors.New("attempt complete failed")
	ErrAttemptRestartFailed  = errors.New("attempt restart failed")

	// ErrUnauthorized maps a 401 from the portal API.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is returned before a call when the configured token has expired.
	ErrTokenExpired = errors.New("api token expired")
)

var (
	// ErrNotLoaded is returned by player operations before an activity is loaded.
	ErrNotLoaded = errors.New("no activity loaded")
	// ErrNotPlaying is returned when the player no longer accepts answers.
	ErrNotPlaying = errors.New("player is not accepting answers")
	// ErrAnswerRequired guards advancing past an unanswered question.
	ErrAnswerRequired = errors.New("answer required before advancing")
	// ErrAnswerIncorrect is returned when advancing on a wrong answer.
	ErrAnswerIncorrect = errors.New("answer is not correct yet")
)
