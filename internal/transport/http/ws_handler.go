package http

import (
	"encoding/json"
	"net/http"
	"time"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/auth"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams the caller's current game and accepts answers over a websocket.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	metrics  Observer
}

func NewWSHandler(service *app.GameService, logger logrus.FieldLogger, metrics Observer) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     logger,
		metrics: metrics,
	}
}

const wsWriteWait = 10 * time.Second

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: statusFor(err)}}
}

// ServeWS upgrades the request and wires the connection into the caller's current game.
// The client receives a "game" message on connect and after every change, and an
// "answerResult" for each answer it sends.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player, _ := auth.PlayerFrom(r.Context())
	log := h.log.WithField("user_id", player.ID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	current, err := h.service.CurrentGame(r.Context(), player.ID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), current.ID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()
	h.metrics.SubscriberOpened()
	defer h.metrics.SubscriberClosed()

	// reload after subscribing so a change between the two calls is not lost
	snapshot, err := h.service.GameByID(r.Context(), player.ID, current.ID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	out := newOutbox(16)
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(out.done)
		for msg := range out.msgs {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !out.push(outboundMessage[any]{Type: "game", Payload: newGameView(update)}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	out.push(outboundMessage[any]{Type: "game", Payload: newGameView(snapshot)})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !h.handleInbound(r, out, current.ID, player.ID, inbound) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(out.msgs)
	<-out.done
}

// handleInbound processes one client message. It reports false once the writer has stopped.
func (h *WSHandler) handleInbound(r *http.Request, out *outbox, gameID, userID string, inbound inboundMessage) bool {
	switch inbound.Type {
	case "answer":
		var in answerInput
		if err := json.Unmarshal(inbound.Payload, &in); err != nil {
			return out.push(errorMessage(&validationError{field: "payload", message: "must be a JSON object"}))
		}
		submission, err := validateAnswerInput(in)
		if err != nil {
			return out.push(errorMessage(err))
		}
		answer, game, err := h.service.SubmitAnswer(r.Context(), gameID, userID, submission)
		if err != nil {
			return out.push(errorMessage(err))
		}
		return out.push(outboundMessage[any]{Type: "answerResult", Payload: newAnswerView(answer)}) &&
			out.push(outboundMessage[any]{Type: "game", Payload: newGameView(game)})
	default:
		return out.push(errorMessage(&validationError{field: "type", message: "unsupported message type"}))
	}
}

// outbox queues messages for the writer goroutine. done is closed when the writer exits,
// after which push gives up instead of blocking.
type outbox struct {
	msgs chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(size int) *outbox {
	return &outbox{
		msgs: make(chan outboundMessage[any], size),
		done: make(chan struct{}),
	}
}

func (o *outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.msgs <- msg:
		return true
	case <-o.done:
		return false
	}
}
