package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/domain"
)

type WSHandler struct {
	proctor  *app.Proctor
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(proctor *app.Proctor, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		proctor: proctor,
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

type startPayload struct {
	QuizID string `json:"quizId"`
}

type choicePayload struct {
	Index *int `json:"index"`
}

type dismissPayload struct {
	ID string `json:"id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets, streams session views and
// forwards candidate intents to the proctor.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	views, cancel := h.proctor.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	viewsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(viewsDone)
		for {
			select {
			case view, ok := <-views:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), inbound); err != nil {
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-viewsDone
	close(send)
	<-writerDone
}

var errUnsupported = errors.New("unsupported message type")

func (h *WSHandler) dispatch(ctx context.Context, msg inboundMessage) error {
	switch msg.Type {
	case "start":
		var payload startPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}
		return h.proctor.Start(ctx, payload.QuizID)
	case "select":
		index, err := decodeChoice(msg.Payload)
		if err != nil {
			return err
		}
		return h.proctor.Select(ctx, index)
	case "advance":
		return h.proctor.Advance(ctx)
	case "submit":
		index, err := decodeChoice(msg.Payload)
		if err != nil {
			return err
		}
		return h.proctor.Submit(ctx, index)
	case "retake":
		return h.proctor.Retake(ctx)
	case "dismiss":
		var payload dismissPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}
		return h.proctor.Dismiss(ctx, payload.ID)
	default:
		return errUnsupported
	}
}

// decodePayload tolerates an absent payload; a present one must be valid JSON.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.ErrMalformedPayload
	}
	return nil
}

func decodeChoice(raw json.RawMessage) (int, error) {
	var payload choicePayload
	if err := decodePayload(raw, &payload); err != nil {
		return 0, err
	}
	if payload.Index == nil {
		return 0, domain.ErrMalformedPayload
	}
	return *payload.Index, nil
}
