package question

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// object returns v as a JSON object, or nil.
func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// list returns v as a JSON array, or nil.
func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// first returns the first present, non-null field among keys.
func first(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// text renders scalars as strings; objects and arrays give "".
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// number coerces numeric-looking values; ok is false otherwise.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
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

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}

// localized resolves a translatable field. Candidates are tried in order:
// field_<lang>, field_en, field_sw, bare field (string or {text|<lang>|en|sw}),
// then the first string-valued candidate among alts.
func localized(m map[string]any, lang string, field string, alts ...string) string {
	if m == nil {
		return ""
	}
	suffixes := []string{"en", "sw"}
	if lang != "" && lang != "en" && lang != "sw" {
		suffixes = append([]string{lang}, suffixes...)
	} else if lang == "sw" {
		suffixes = []string{"sw", "en"}
	}
	for _, s := range suffixes {
		if v := strings.TrimSpace(text(m[field+"_"+s])); v != "" {
			return v
		}
	}
	for _, key := range append([]string{field}, alts...) {
		switch v := m[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case map[string]any:
			if s := nestedText(v, lang); s != "" {
				return s
			}
		}
	}
	return ""
}

func nestedText(m map[string]any, lang string) string {
	keys := []string{"text", lang, "en", "sw"}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	for _, v := range m {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
