package grading

import (
	"encoding/json"
	"testing"

	"activity-player/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestIsCorrect_ExplicitAnswer(t *testing.T) {
	q := domain.Question{ID: "q1", CorrectAnswer: 3}

	assert.Equal(t, Correct, IsCorrect(q, 3))
	assert.Equal(t, Correct, IsCorrect(q, "3"))
	assert.Equal(t, Correct, IsCorrect(q, " 3.0 "))
	assert.Equal(t, Correct, IsCorrect(q, json.Number("3")))
	assert.Equal(t, Incorrect, IsCorrect(q, 4))
	assert.Equal(t, IsCorrect(q, 3), IsCorrect(q, "3"))
}

func TestIsCorrect_StringsCaseInsensitive(t *testing.T) {
	q := domain.Question{ID: "q1", CorrectAnswer: "  Seven "}

	assert.Equal(t, Correct, IsCorrect(q, "seven"))
	assert.Equal(t, Correct, IsCorrect(q, "SEVEN  "))
	assert.Equal(t, Incorrect, IsCorrect(q, "eight"))
}

func TestIsCorrect_OptionFlag(t *testing.T) {
	q := domain.Question{
		ID: "q1",
		Options: []domain.Option{
			{ID: "a", Value: "a"},
			{ID: "b", Value: "b", IsCorrect: true},
		},
	}

	assert.True(t, CanGrade(q))
	assert.Equal(t, Correct, IsCorrect(q, "B"))
	assert.Equal(t, Incorrect, IsCorrect(q, "a"))
}

func TestIsCorrect_ExplicitWinsOverOptions(t *testing.T) {
	q := domain.Question{
		CorrectAnswer: "a",
		Options:       []domain.Option{{Value: "b", IsCorrect: true}},
	}
	assert.Equal(t, Correct, IsCorrect(q, "a"))
}

func TestIsCorrect_Ungradeable(t *testing.T) {
	q := domain.Question{ID: "q1", Options: []domain.Option{{Value: "a"}, {Value: "b"}}}

	assert.False(t, CanGrade(q))
	assert.Equal(t, Unknown, IsCorrect(q, "a"))
	assert.Equal(t, Unknown, IsCorrect(q, 12))
	assert.Nil(t, IsCorrect(q, "a").Bool())
}

func TestIsCorrect_EmptyAnswer(t *testing.T) {
	q := domain.Question{CorrectAnswer: "a"}

	assert.Equal(t, Unknown, IsCorrect(q, nil))
	assert.Equal(t, Unknown, IsCorrect(q, ""))
	assert.Equal(t, Unknown, IsCorrect(q, "   "))
}

func TestIsCorrect_Deterministic(t *testing.T) {
	q := domain.Question{CorrectAnswer: 2.5}
	for i := 0; i < 10; i++ {
		assert.Equal(t, Correct, IsCorrect(q, "2.5"))
	}
}

func TestVerdictBool(t *testing.T) {
	assert.True(t, *Correct.Bool())
	assert.False(t, *Incorrect.Bool())
	assert.Equal(t, "incorrect", Incorrect.String())
}
