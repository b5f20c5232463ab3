package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"activity-player/internal/domain"
	"activity-player/internal/infra/memory"
	"activity-player/internal/player"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	completeErr error
}

func (stubAPI) CurrentAttempt(context.Context, string, string) (map[string]any, error) {
	return nil, nil
}

func (stubAPI) StartAttempt(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"attempt_id": "atp-1"}, nil
}

func (stubAPI) SubmitAttempt(context.Context, domain.Submission) error {
	return nil
}

func (s stubAPI) CompleteAttempt(context.Context, domain.Submission) (map[string]any, error) {
	return map[string]any{}, s.completeErr
}

func (stubAPI) RestartAttempt(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"attempt_id": "atp-2"}, nil
}

func newTestPlayer(api stubAPI) *player.Player {
	activity := domain.Activity{
		ID:    "act-1",
		Title: "Counting",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "Pick the circle",
				Type:   domain.TypeTapSelect,
				Options: []domain.Option{
					{ID: "a", Value: "a", Label: "circle", IsCorrect: true},
					{ID: "b", Value: "b", Label: "square"},
				},
			},
			{ID: "q2", Prompt: "How many apples?", Type: domain.TypeCountObjects, CorrectAnswer: 3},
		},
	}
	repo := memory.NewActivityRepository(memory.NewStaticActivityLoader(map[string]domain.Activity{"act-1": activity}), time.Minute)
	return player.New(repo, api, memory.NewSessionStore())
}

func TestRunPlay(t *testing.T) {
	in := strings.NewReader("next\n2\nnext\n1\nnext\n3\nnext\n")
	var out bytes.Buffer

	err := runPlay(context.Background(), newTestPlayer(stubAPI{}), "act-1", "kid-1", in, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Counting")
	assert.Contains(t, text, "[1/2] Pick the circle")
	assert.Contains(t, text, "1) circle")
	assert.Contains(t, text, "choose an answer first")
	assert.Contains(t, text, "not quite, try again")
	assert.Contains(t, text, "[2/2] How many apples?")
	assert.Contains(t, text, "all done! score: 1 / 2")
}

func TestRunPlayCompleteFailureShowsNotice(t *testing.T) {
	in := strings.NewReader("1\nnext\n3\nnext\n")
	var out bytes.Buffer

	err := runPlay(context.Background(), newTestPlayer(stubAPI{completeErr: context.DeadlineExceeded}), "act-1", "kid-1", in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "! Your result could not be saved")
	assert.Contains(t, out.String(), "all done! score: 2 / 2")
}

func TestParseAnswer(t *testing.T) {
	q := domain.Question{Type: domain.TypeTapSelect, Options: []domain.Option{{Value: "x"}, {Value: "y"}}}
	assert.Equal(t, "y", parseAnswer(q, "2"))
	assert.Equal(t, "7", parseAnswer(q, "7"))

	counting := domain.Question{Type: domain.TypeCountObjects, Options: []domain.Option{{Value: 0.0}, {Value: 1.0}}}
	assert.Equal(t, "1", parseAnswer(counting, "1"))
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "chatty")
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
