package attempt

import (
	"encoding/json"
	"strconv"
	"strings"
)

// idFields are the names different API generations used for the attempt id.
var idFields = []string{"attempt_id", "attemptId", "attemptID", "id", "progress_id", "progressId", "uuid"}

// nestedFields hold an attempt object inside an envelope.
var nestedFields = []string{"attempt", "data", "progress", "result"}

// ResolveAttemptID extracts an attempt identifier from a start, restart or
// complete response. Direct id fields win, then nested attempt objects,
// then a composite "<activity>:<status>" fallback. ok is false when nothing
// usable is present; callers treat that as "no attempt yet", not a failure.
func ResolveAttemptID(payload any) (string, bool) {
	return resolve(payload, 0)
}

func resolve(payload any, depth int) (string, bool) {
	m, _ := payload.(map[string]any)
	if m == nil || depth > 3 {
		return "", false
	}
	for _, f := range idFields {
		if id := scalarText(m[f]); id != "" {
			return id, true
		}
	}
	for _, f := range nestedFields {
		if id, ok := resolve(m[f], depth+1); ok {
			return id, true
		}
	}
	activity := scalarText(first(m, "activity_id", "activityId", "activity"))
	status := scalarText(m["status"])
	if activity != "" && status != "" {
		return activity + ":" + status, true
	}
	return "", false
}

// Status returns the lower-cased attempt status reported in payload.
// A boolean completed flag maps to "completed".
func Status(payload map[string]any) string {
	if s := strings.ToLower(scalarText(payload["status"])); s != "" {
		return s
	}
	if c, ok := payload["completed"].(bool); ok && c {
		return StatusCompleted
	}
	for _, f := range nestedFields {
		if inner, ok := payload[f].(map[string]any); ok {
			if s := Status(inner); s != "" {
				return s
			}
		}
	}
	return ""
}

// Score returns the numeric score in payload, if any. Numeric strings count.
func Score(payload map[string]any) (float64, bool) {
	if payload == nil {
		return 0, false
	}
	if f, ok := numeric(first(payload, "score", "final_score", "finalScore")); ok {
		return f, true
	}
	for _, f := range nestedFields {
		if inner, ok := payload[f].(map[string]any); ok {
			if score, ok := Score(inner); ok {
				return score, true
			}
		}
	}
	return 0, false
}

// StatusCompleted is the normalized status of a finished attempt.
const StatusCompleted = "completed"

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
