// Package grading decides whether a submitted answer matches a question's
// correct-answer reference. Everything here is pure and deterministic.
package grading

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"activity-player/internal/domain"
)

// Verdict is the outcome of grading one answer.
type Verdict int

const (
	// Unknown means the answer was empty or the question has no reference.
	Unknown Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	}
	return "unknown"
}

// Bool returns the verdict as an optional boolean; nil for Unknown.
func (v Verdict) Bool() *bool {
	if v == Unknown {
		return nil
	}
	b := v == Correct
	return &b
}

// Reference returns the value an answer is compared against: the explicit
// correct answer, else the value of the first option flagged correct.
func Reference(q domain.Question) (any, bool) {
	if !Empty(q.CorrectAnswer) {
		return q.CorrectAnswer, true
	}
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.Value, true
		}
	}
	return nil, false
}

// CanGrade reports whether q has a correct-answer reference.
func CanGrade(q domain.Question) bool {
	_, ok := Reference(q)
	return ok
}

// IsCorrect grades value against q.
func IsCorrect(q domain.Question, value any) Verdict {
	if Empty(value) {
		return Unknown
	}
	ref, ok := Reference(q)
	if !ok {
		return Unknown
	}
	if Normalize(value) == Normalize(ref) {
		return Correct
	}
	return Incorrect
}

// Empty reports whether v counts as "no answer".
func Empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return strings.TrimSpace(t.String()) == ""
	}
	return false
}

// Normalize maps a value to its comparable form. Numbers and numeric
// strings share one canonical rendering; other strings are trimmed and
// lower-cased.
func Normalize(v any) string {
	if f, ok := numeric(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(b))
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
