package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"activity-player/internal/app"
	"activity-player/internal/domain"
	"activity-player/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketPlayFlow(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?activityId=act-1&childId=kid-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the initial state first.
	_, payload := readNext(conn, t, "state")
	if payload["phase"] != "playing" {
		t.Fatalf("expected playing phase, got %v", payload["phase"])
	}

	send(conn, t, map[string]any{"type": "select", "payload": map[string]any{"questionId": "q1", "value": "o2"}})
	readUntil(conn, t, func(typ string, p map[string]any) bool {
		resolved, _ := p["resolved"].(map[string]any)
		return typ == "state" && resolved["q1"] == true
	})

	send(conn, t, map[string]any{"type": "advance", "payload": map[string]any{"isLast": true}})
	readUntil(conn, t, func(typ string, p map[string]any) bool {
		return typ == "state" && p["phase"] == "completed"
	})

	send(conn, t, map[string]any{"type": "advance"})
	readUntil(conn, t, func(typ string, p map[string]any) bool {
		return typ == "error" && p["message"] == domain.ErrNotPlaying.Error()
	})
}

func TestWebSocketRejectsUnknownMessage(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?activityId=act-1&childId=kid-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(conn, t, map[string]any{"type": "shout"})
	readUntil(conn, t, func(typ string, p map[string]any) bool {
		return typ == "error" && p["message"] == "unsupported message type"
	})
}

func TestWebSocketUnknownActivity(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?activityId=missing&childId=kid-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "error")
	if payload["message"] != domain.ErrActivityNotFound.Error() {
		t.Fatalf("expected not found error, got %v", payload["message"])
	}
}

func TestMissingParamsAndHealth(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?activityId=act-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func newTestServer() *httptest.Server {
	repo := memory.NewActivityRepository(memory.NewStaticActivityLoader(sampleActivities()), time.Minute)
	service := app.NewPlayerService(repo, stubAPI{}, memory.NewSessionStore(), nil)
	return httptest.NewServer(NewRouter(service, nil))
}

func send(conn *websocket.Conn, t *testing.T, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readUntil(conn *websocket.Conn, t *testing.T, match func(string, map[string]any) bool) {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t, "")
		if match(typ, payload) {
			return
		}
	}
	t.Fatalf("expected message not received")
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleActivities() map[string]domain.Activity {
	return map[string]domain.Activity{
		"act-1": {
			ID: "act-1",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Which shape is round?",
					Type:   domain.TypeTapSelect,
					Options: []domain.Option{
						{ID: "o1", Value: "o1", Label: "square"},
						{ID: "o2", Value: "o2", Label: "circle", IsCorrect: true},
					},
				},
			},
		},
	}
}

type stubAPI struct{}

func (stubAPI) CurrentAttempt(context.Context, string, string) (map[string]any, error) {
	return nil, nil
}

func (stubAPI) StartAttempt(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"attempt_id": "atp-1"}, nil
}

func (stubAPI) SubmitAttempt(context.Context, domain.Submission) error {
	return nil
}

func (stubAPI) CompleteAttempt(context.Context, domain.Submission) (map[string]any, error) {
	return map[string]any{"score": 1}, nil
}

func (stubAPI) RestartAttempt(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"attempt_id": "atp-2"}, nil
}

func TestDeliverStopsWhenWriterGone(t *testing.T) {
	send := make(chan outboundMessage[any]) // nobody reads
	closing := make(chan struct{})
	writerDone := make(chan struct{})
	close(writerDone)

	done := make(chan bool, 1)
	go func() {
		done <- deliver(send, outboundMessage[any]{Type: "error"}, closing, writerDone)
	}()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected delivery to be abandoned")
		}
	case <-time.After(time.Second):
		t.Fatalf("deliver blocked after the writer stopped")
	}
}

func TestDeliverQueuesWhileWriterRuns(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	if !deliver(send, outboundMessage[any]{Type: "state"}, make(chan struct{}), make(chan struct{})) {
		t.Fatalf("expected message to be queued")
	}
	if msg := <-send; msg.Type != "state" {
		t.Fatalf("unexpected message %v", msg.Type)
	}
}
