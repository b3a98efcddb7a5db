package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectnow/contract"
	"connectnow/domain"
	"connectnow/domain/event"
	"connectnow/errors"
)

const anonymousName = "Anonymous"

// Engine applies every inbound request to exactly one room under that room's
// lock, then re-emits the result through the broadcast transport. Grace
// timers re-enter the same per-room serialization point when they fire.
type Engine struct {
	log         *slog.Logger
	registry    *Registry
	presence    *PresenceTracker
	typing      *TypingAggregator
	messages    *MessageLog
	broadcaster contract.Broadcaster
}

func NewEngine(
	log *slog.Logger,
	registry *Registry,
	presence *PresenceTracker,
	typing *TypingAggregator,
	messages *MessageLog,
	broadcaster contract.Broadcaster,
) *Engine {
	return &Engine{
		log:         log,
		registry:    registry,
		presence:    presence,
		typing:      typing,
		messages:    messages,
		broadcaster: broadcaster,
	}
}

// CreateRoom allocates a fresh room and replies with its code. The creator
// is not joined automatically; joining is a separate request.
func (e *Engine) CreateRoom(connID string, cmd domain.CreateRoomCommand) string {
	room := e.registry.Create(cmd.Name, cmd.Description)
	e.broadcaster.SendTo(connID, event.RoomCreated, room.Code)
	e.log.Info("Room created", "code", room.Code)
	return room.Code
}

// JoinRoom resolves the room (restoring it from the durable store when
// needed), inserts the participant, replies with the replayed history, and
// announces the join. Only a first join of a userID produces the "joined the
// room" system message; a reconnect, live or within the grace window, is
// silent in the log.
func (e *Engine) JoinRoom(ctx context.Context, connID string, cmd domain.JoinRoomCommand) error {
	code := domain.NormalizeRoomCode(cmd.RoomID)

	room, err := e.registry.Resolve(ctx, code)
	if err != nil {
		e.broadcaster.SendTo(connID, event.Error, event.ErrRoomNotFoundMessage)
		return err
	}

	name := cmd.Name
	if name == "" {
		name = anonymousName
	}
	userID := cmd.UserID
	if userID == "" {
		userID = connID
	}

	participant := domain.Participant{
		UserID:   userID,
		ConnID:   connID,
		Name:     name,
		Status:   domain.StatusOnline,
		JoinedAt: time.Now().UTC(),
	}

	// Claim any open grace window before touching the roster, so the expiry
	// callback can never observe this join half-applied.
	joinedAt, inGrace := e.presence.Reclaim(code, userID)
	if inGrace {
		participant.JoinedAt = joinedAt
	}

	participant, rejoined := room.Join(participant)
	reconnect := rejoined || inGrace

	e.broadcaster.Subscribe(connID, code)

	e.broadcaster.SendTo(connID, event.JoinedRoom, event.JoinedRoomPayload{
		RoomCode:        code,
		Messages:        room.Messages(),
		RoomName:        room.Name,
		RoomDescription: room.Description,
	})

	e.broadcaster.Broadcast(code, event.UserJoined, event.UserJoinedPayload{
		UserCount: room.RosterSize(),
		User:      event.Summarize(participant),
		Users:     event.Summaries(room.Roster()),
	})

	if !reconnect {
		e.messages.Append(room, domain.NewSystemMessage(code, fmt.Sprintf("%s joined the room", name)))
	}

	if reconnect {
		e.log.Debug("User reconnected", "room", code, "user", userID)
	} else {
		e.log.Info("User joined", "room", code, "user", userID)
	}
	return nil
}

// Disconnect is the transport's notification that a connection is gone. The
// roster entry is removed immediately so presence lists update at once, and
// the departure announcement is deferred behind the grace timer.
func (e *Engine) Disconnect(connID string) {
	for _, room := range e.registry.Rooms() {
		participant, ok := room.Leave(connID)
		if !ok {
			continue
		}

		e.broadcaster.Broadcast(room.Code, event.UserLeft, event.UserLeftPayload{
			UserCount: room.RosterSize(),
			Users:     event.Summaries(room.Roster()),
		})

		departed := room
		userID := participant.UserID
		e.presence.Arm(room.Code, userID, participant.Name, participant.JoinedAt, func(name string) {
			e.announceLeft(departed, userID, name)
		})
	}
}

// announceLeft runs when a grace window elapses without a reconnect. The
// roster re-check and the append happen under the room lock; a user who made
// it back in the meantime turns this into a no-op.
func (e *Engine) announceLeft(room *domain.Room, userID, name string) {
	msg := domain.NewSystemMessage(room.Code, fmt.Sprintf("%s left the room", name))
	if e.messages.AppendUnlessUser(room, userID, msg) {
		e.log.Info("User left", "room", room.Code, "user", userID)
	}
}

// PostMessage appends a user message. Sending implicitly stops the sender's
// typing state before the message goes out.
func (e *Engine) PostMessage(connID string, cmd domain.SendMessageCommand) error {
	room, ok := e.registry.Get(domain.NormalizeRoomCode(cmd.RoomCode))
	if !ok {
		e.broadcaster.SendTo(connID, event.Error, event.ErrRoomNotFoundMessage)
		return errors.ErrRoomNotFound
	}

	e.typing.Stop(room, connID)

	name := cmd.Name
	if name == "" {
		name = anonymousName
	}
	userID := cmd.UserID
	if userID == "" {
		userID = connID
	}

	e.messages.Append(room, domain.Message{
		SenderID:   userID,
		SenderName: name,
		Content:    cmd.Content,
		Kind:       domain.Classify(cmd.Attachment),
		Attachment: cmd.Attachment,
	})
	return nil
}

func (e *Engine) TypingStart(connID string, cmd domain.RoomQueryCommand) {
	if room, ok := e.registry.Get(domain.NormalizeRoomCode(cmd.RoomCode)); ok {
		e.typing.Start(room, connID)
	}
}

func (e *Engine) TypingStop(connID string, cmd domain.RoomQueryCommand) {
	if room, ok := e.registry.Get(domain.NormalizeRoomCode(cmd.RoomCode)); ok {
		e.typing.Stop(room, connID)
	}
}

// UpdateProfile mutates the participant's avatar and/or presence status and
// broadcasts the refreshed roster to the whole room.
func (e *Engine) UpdateProfile(connID string, cmd domain.UpdateProfileCommand) {
	room, ok := e.registry.Get(domain.NormalizeRoomCode(cmd.RoomCode))
	if !ok {
		return
	}
	var status *domain.PresenceStatus
	if cmd.Status != nil {
		s := domain.PresenceStatus(*cmd.Status)
		status = &s
	}
	if _, ok := room.UpdateProfile(connID, cmd.Avatar, status); !ok {
		return
	}
	e.broadcaster.Broadcast(room.Code, event.UsersUpdate, event.UsersUpdatePayload{
		Users: event.Summaries(room.Roster()),
	})
}

// RoomUsers direct-replies the roster to an explicit query.
func (e *Engine) RoomUsers(connID string, cmd domain.RoomQueryCommand) {
	room, ok := e.registry.Get(domain.NormalizeRoomCode(cmd.RoomCode))
	if !ok {
		return
	}
	e.broadcaster.SendTo(connID, event.UsersUpdate, event.UsersUpdatePayload{
		Users: event.Summaries(room.Roster()),
	})
}
