package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"activity-player/internal/app"
	"activity-player/internal/player"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.PlayerService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PlayerService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

type advancePayload struct {
	IsLast bool `json:"isLast"`
}

type loadPayload struct {
	ActivityID string `json:"activityId"`
	ChildID    string `json:"childId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into a player session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	activityID := r.URL.Query().Get("activityId")
	childID := r.URL.Query().Get("childId")
	if activityID == "" || childID == "" {
		http.Error(w, "missing activityId or childId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID, _, err := h.service.Open(ctx, activityID, childID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(sessionID)

	events, cancel, err := h.service.Subscribe(sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "session_id", sessionID, "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !deliver(send, eventMessage(ev), closeSignals, writerDone) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	fail := func(message string) {
		deliver(send, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}, closeSignals, writerDone)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
				fail("invalid select payload")
				continue
			}
			if _, err := h.service.SelectAnswer(sessionID, payload.QuestionID, payload.Value); err != nil {
				fail(err.Error())
			}
		case "advance":
			var payload advancePayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					fail("invalid advance payload")
					continue
				}
			}
			if _, err := h.service.Advance(sessionID, payload.IsLast); err != nil {
				fail(err.Error())
			}
		case "restart":
			if _, err := h.service.Restart(ctx, sessionID); err != nil {
				fail(err.Error())
			}
		case "load":
			var payload loadPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.ActivityID == "" || payload.ChildID == "" {
				fail("invalid load payload")
				continue
			}
			if _, err := h.service.Switch(ctx, sessionID, payload.ActivityID, payload.ChildID); err != nil {
				fail(err.Error())
			}
		default:
			fail("unsupported message type")
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// deliver queues msg for the writer. It gives up once the handler is
// closing or the writer has stopped on a broken connection.
func deliver(send chan<- outboundMessage[any], msg outboundMessage[any], closing, writerDone <-chan struct{}) bool {
	select {
	case send <- msg:
		return true
	case <-closing:
		return false
	case <-writerDone:
		return false
	}
}

func eventMessage(ev player.Event) outboundMessage[any] {
	if ev.Type == player.EventNotice {
		return outboundMessage[any]{Type: "notice", Payload: ev.Notice}
	}
	return outboundMessage[any]{Type: "state", Payload: ev.State}
}
