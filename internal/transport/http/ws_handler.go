package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"history-stairs/internal/app"
	"history-stairs/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	accounts     *app.AccountService
	games        *app.GameService
	rankingLimit int
	upgrader     websocket.Upgrader
}

func NewWSHandler(accounts *app.AccountService, games *app.GameService, rankingLimit int) *WSHandler {
	if rankingLimit <= 0 || rankingLimit > app.MaxRankingLimit {
		rankingLimit = app.MaxRankingLimit
	}
	return &WSHandler{
		accounts:     accounts,
		games:        games,
		rankingLimit: rankingLimit,
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

type answerPayload struct {
	Option string `json:"option"`
}

type navigatePayload struct {
	Screen string `json:"screen"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades an authenticated request and streams the player's game over it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.accounts.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	game, err := h.games.Play(r.Context(), identity)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := game.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "profile", Payload: game.Profile()}

	go func() {
		defer close(updatesDone)
		highScore := game.Profile().HighScore
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					// game closed, usually by sign-out
					deadline := time.Now().Add(time.Second)
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game ended"), deadline)
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: snap}}
				if snap.HighScore > highScore {
					highScore = snap.HighScore
					msgs = append(msgs, outboundMessage[any]{Type: "profile", Payload: game.Profile()})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
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
		if reply, ok := h.handle(r, identity, inbound); ok {
			send <- reply
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle runs one client message. Game transitions reach the client through the
// subscription, so only ranking pages and errors are replied to directly.
func (h *WSHandler) handle(r *http.Request, identity domain.Identity, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		_, err := h.games.Submit(r.Context(), identity.UserID, payload.Option)
		if errors.Is(err, domain.ErrNotPlaying) {
			// late or double taps while feedback is showing
			return outboundMessage[any]{}, false
		}
		if err != nil {
			return errorMessage(err.Error()), true
		}
	case "restart":
		if _, err := h.games.Restart(identity.UserID); err != nil {
			return errorMessage(err.Error()), true
		}
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid navigate payload"), true
		}
		screen, err := domain.ParseScreen(payload.Screen)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		if screen == domain.ScreenRanking {
			entries := h.accounts.Rankings(r.Context(), h.rankingLimit)
			return outboundMessage[any]{Type: "ranking", Payload: rankingResponse{Entries: entries}}, true
		}
		snap, err := h.games.Snapshot(identity.UserID)
		if err != nil {
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "state", Payload: snap}, true
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
