package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"connectnow/domain"
	"connectnow/domain/event"
	"connectnow/errors"
	"connectnow/runtime"
)

var validate = validator.New()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin filtering is deployment glue, handled in front of this core.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections and routes inbound frames to the engine.
type Handler struct {
	log        *slog.Logger
	hub        *Hub
	engine     *runtime.Engine
	sendBuffer int
}

func NewHandler(log *slog.Logger, hub *Hub, engine *runtime.Engine, sendBuffer int) *Handler {
	return &Handler{log: log, hub: hub, engine: engine, sendBuffer: sendBuffer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:      uuid.NewString(),
		handler: h,
		conn:    conn,
		send:    make(chan []byte, h.sendBuffer),
	}
	h.hub.add(client)

	go client.writePump()
	go client.readPump()

	h.log.Debug("Connection established", "conn", client.id)
}

// dispatch decodes one inbound frame and applies it. A malformed frame is
// dropped (or answered with an error event for joins); it never takes the
// dispatcher down.
func (h *Handler) dispatch(c *Client, raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		h.log.Debug("Undecodable frame", "conn", c.id, "error", err)
		return
	}

	switch f.Event {
	case event.CreateRoom:
		// Payload is optional on create.
		var cmd domain.CreateRoomCommand
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &cmd); err != nil {
				h.log.Debug("Malformed create-room payload", "conn", c.id, "error", err)
				return
			}
		}
		h.engine.CreateRoom(c.id, cmd)

	case event.JoinRoom:
		cmd, err := decodeJoin(f.Data)
		if err != nil {
			// An undecodable join is answered like an unknown room rather
			// than crashing the dispatcher.
			h.log.Debug("Malformed join payload", "conn", c.id, "error", err)
			h.hub.SendTo(c.id, event.Error, event.ErrRoomNotFoundMessage)
			return
		}
		_ = h.engine.JoinRoom(context.Background(), c.id, cmd)

	case event.SendMessage:
		cmd, err := decode[domain.SendMessageCommand](f.Data)
		if err != nil {
			h.log.Debug("Malformed send-message payload", "conn", c.id, "error", err)
			return
		}
		_ = h.engine.PostMessage(c.id, cmd)

	case event.TypingStart:
		if cmd, err := decode[domain.RoomQueryCommand](f.Data); err == nil {
			h.engine.TypingStart(c.id, cmd)
		}

	case event.TypingStop:
		if cmd, err := decode[domain.RoomQueryCommand](f.Data); err == nil {
			h.engine.TypingStop(c.id, cmd)
		}

	case event.UpdateProfile:
		if cmd, err := decode[domain.UpdateProfileCommand](f.Data); err == nil {
			h.engine.UpdateProfile(c.id, cmd)
		}

	case event.GetUsers:
		if cmd, err := decode[domain.RoomQueryCommand](f.Data); err == nil {
			h.engine.RoomUsers(c.id, cmd)
		}

	default:
		h.log.Debug("Unknown event", "conn", c.id, "event", f.Event)
	}
}

// decode unmarshals and validates one command payload.
func decode[T any](data json.RawMessage) (T, error) {
	var cmd T
	if len(data) == 0 {
		return cmd, errors.ErrMalformedPayload
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, errors.ErrMalformedPayload
	}
	if err := validate.Struct(&cmd); err != nil {
		return cmd, errors.ErrMalformedPayload
	}
	return cmd, nil
}

// decodeJoin accepts the join payload either as a structured object or as a
// JSON-encoded string carrying that object.
func decodeJoin(data json.RawMessage) (domain.JoinRoomCommand, error) {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = json.RawMessage(encoded)
	}
	return decode[domain.JoinRoomCommand](data)
}
