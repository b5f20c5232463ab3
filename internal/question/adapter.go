// Package question normalizes activity and question payloads from the
// portal API into the canonical domain types. Several generations of the
// API name the same fields differently; all shape sniffing lives here.
package question

import (
	"strconv"
	"strings"

	"activity-player/internal/domain"
)

var typeSynonyms = map[string]domain.QuestionType{
	"tap_select":      domain.TypeTapSelect,
	"tap-select":      domain.TypeTapSelect,
	"multiple_choice": domain.TypeTapSelect,
	"multiple-choice": domain.TypeTapSelect,
	"single_choice":   domain.TypeTapSelect,
	"single-choice":   domain.TypeTapSelect,
	"image_select":    domain.TypeTapSelect,
	"count_objects":   domain.TypeCountObjects,
	"count-objects":   domain.TypeCountObjects,
	"object_counting": domain.TypeCountObjects,
	"object-counting": domain.TypeCountObjects,
	"text_input":      domain.TypeTextInput,
	"text-input":      domain.TypeTextInput,
	"fill_blank":      domain.TypeTextInput,
	"fill-blank":      domain.TypeTextInput,
	"short_answer":    domain.TypeTextInput,
	"short-answer":    domain.TypeTextInput,
}

// NormalizeType maps a raw type string to a canonical type. Unrecognized
// values pass through verbatim; an empty value is TypeUnknown.
func NormalizeType(raw string) domain.QuestionType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.TypeUnknown
	}
	if t, ok := typeSynonyms[strings.ToLower(trimmed)]; ok {
		return t
	}
	return domain.QuestionType(trimmed)
}

// NormalizeActivity maps an activity payload, optionally wrapped in a
// {"data": ...} envelope, to a canonical Activity.
func NormalizeActivity(raw any, lang string) domain.Activity {
	m := object(raw)
	if inner := object(m["data"]); inner != nil {
		m = inner
	}
	if m == nil {
		return domain.Activity{}
	}

	activity := domain.Activity{
		ID:           text(m["id"]),
		Title:        localized(m, lang, "title", "name"),
		Description:  localized(m, lang, "description"),
		Instructions: localized(m, lang, "instructions"),
		TemplateType: text(firstValue(m, "template_type", "templateType", "activity_type")),
	}
	if p, ok := number(firstValue(m, "reward_points", "points", "rewardPoints")); ok {
		activity.RewardPoints = clampInt(p, maxRewardPoints)
	}

	rawQuestions := list(firstValue(m, "questions", "items"))
	activity.Questions = make([]domain.Question, 0, len(rawQuestions))
	for i, rq := range rawQuestions {
		q := NormalizeQuestion(rq, lang)
		if q.ID == "" {
			q.ID = strconv.Itoa(i + 1)
		}
		activity.Questions = append(activity.Questions, q)
	}
	return activity
}

// NormalizeQuestion maps a question payload of any known shape to a
// canonical Question. It never fails: missing data degrades to zero values.
func NormalizeQuestion(raw any, lang string) domain.Question {
	m := object(raw)
	if m == nil {
		return domain.Question{Type: domain.TypeUnknown}
	}
	config := object(firstValue(m, "config_data", "config"))

	q := domain.Question{
		ID:     text(firstValue(m, "id", "question_id", "pk")),
		Prompt: localized(m, lang, "question_text", "prompt", "text"),
		Type:   NormalizeType(text(firstValue(m, "question_type", "type"))),
		ImageURL: text(firstValue(m,
			"question_image_display", "question_image_url", "question_image")),
	}

	if v, ok := first(m, "correct_answer", "correct_answer_value"); ok && !blank(v) {
		q.CorrectAnswer = v
	} else if v, ok := first(config, "correct_answer", "correct_answer_value"); ok && !blank(v) {
		q.CorrectAnswer = v
	}

	for i, ro := range list(firstValue(m, "answers", "options")) {
		q.Options = append(q.Options, normalizeOption(ro, i, lang))
	}

	q.Objects, q.Layout = decoration(m, config)

	if q.Type == domain.TypeCountObjects && len(q.Options) == 0 {
		q.Options = countingOptions(config)
	}
	return q
}

func normalizeOption(raw any, index int, lang string) domain.Option {
	m := object(raw)
	if m == nil {
		// bare scalar option: the value is its own label
		return domain.Option{ID: text(raw), Value: raw, Label: text(raw)}
	}
	opt := domain.Option{
		ID:        text(firstValue(m, "id", "answer_id")),
		IsCorrect: boolean(firstValue(m, "is_correct", "correct", "isCorrect")),
		ImageURL:  text(firstValue(m, "answer_image_display", "image", "image_url")),
	}
	if v, ok := first(m, "answer_value", "id", "value"); ok {
		opt.Value = v
	}
	opt.Label = localized(m, lang, "answer_text", "label", "text")
	if opt.Label == "" {
		opt.Label = text(opt.Value)
	}
	if opt.ID == "" {
		opt.ID = text(opt.Value)
	}
	if opt.ID == "" {
		opt.ID = strconv.Itoa(index)
	}
	return opt
}

// countingOptions generates the 0..count choices a counting question offers.
func countingOptions(config map[string]any) []domain.Option {
	n, _ := number(config["object_count"])
	count := clampCount(n)
	opts := make([]domain.Option, 0, count+1)
	for i := 0; i <= count; i++ {
		opts = append(opts, domain.Option{
			ID:    strconv.Itoa(i),
			Value: float64(i),
			Label: strconv.Itoa(i),
		})
	}
	return opts
}

func firstValue(m map[string]any, keys ...string) any {
	v, _ := first(m, keys...)
	return v
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
