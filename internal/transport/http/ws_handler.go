package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
)

// WSHandler upgrades HTTP requests to websockets and dispatches the
// client event contract into the coordinator.
type WSHandler struct {
	coordinator *app.Coordinator
	hub         *Hub
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator, hub *Hub) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         hub,
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

// connState is what the transport knows about one connection: identity
// arrives with the first join-room, privilege with the role query.
type connState struct {
	connectionID string
	userID       string
	privileged   bool
}

// ServeWS runs the read loop for one client connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	cs := &connState{
		connectionID: uuid.NewString(),
		privileged:   r.URL.Query().Get("role") == "host",
	}
	h.hub.Register(cs.connectionID, conn)
	defer func() {
		h.hub.Unregister(cs.connectionID)
		h.coordinator.HandleDisconnect(cs.connectionID)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		if err := h.dispatch(r, cs, inbound); err != nil {
			h.hub.EmitToConnection(cs.connectionID, domain.EventError, domain.ErrorPayload{
				Message: err.Error(),
				Code:    domain.ErrorCode(err),
			})
		}
	}
}

// dispatch decodes one inbound event and runs the matching operation.
// A failure aborts only this operation and is reported to the
// originating connection; the room and the other participants are
// unaffected.
func (h *WSHandler) dispatch(r *http.Request, cs *connState, inbound inboundMessage) error {
	ctx := r.Context()

	switch inbound.Type {
	case domain.EventJoinRoom:
		var p domain.JoinRoomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		joined, err := h.coordinator.JoinRoom(ctx, cs.connectionID, p)
		if err != nil {
			return err
		}
		cs.userID = p.UserID
		h.hub.Subscribe(cs.connectionID, joined.Room.RoomID)
		return nil

	case domain.EventLeaveRoom:
		var p domain.LeaveRoomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		// Unsubscribe first so the leaver does not see the
		// user-left-room broadcast about itself.
		h.hub.Unsubscribe(cs.connectionID, p.RoomID)
		return h.coordinator.LeaveRoom(cs.connectionID, p)

	case domain.EventSubmitAnswer:
		var p domain.AnswerSubmission
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return h.coordinator.SubmitAnswer(ctx, cs.connectionID, cs.userID, p)

	case domain.EventCompleteQuiz:
		var p domain.CompleteQuizPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return h.coordinator.CompleteQuiz(ctx, cs.connectionID, cs.userID, p)

	case domain.EventStartQuiz:
		var p domain.QuizControlPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return h.coordinator.StartQuiz(cs.privileged, p)

	case domain.EventEndQuiz:
		var p domain.QuizControlPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			return err
		}
		return h.coordinator.EndQuiz(cs.privileged, p)

	default:
		return domain.ErrUnknownEvent
	}
}
