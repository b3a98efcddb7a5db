package runtime

import (
	"log/slog"

	"connectnow/contract"
	"connectnow/domain"
	"connectnow/domain/event"
)

// TypingAggregator maintains the per-room typing set and publishes the
// resolved display-name list after every mutation.
//
// Policy: typing-update is broadcast room-wide, including the connection
// whose state changed. All subscribers therefore observe the exact same
// typing list; clients filter out their own name locally.
type TypingAggregator struct {
	log         *slog.Logger
	broadcaster contract.Broadcaster
}

func NewTypingAggregator(log *slog.Logger, broadcaster contract.Broadcaster) *TypingAggregator {
	return &TypingAggregator{log: log, broadcaster: broadcaster}
}

// Start marks the connection as typing. Handles that are not roster members
// are ignored without a broadcast.
func (t *TypingAggregator) Start(room *domain.Room, connID string) {
	if !room.StartTyping(connID) {
		t.log.Debug("Typing start ignored for non-member connection",
			"room", room.Code, "conn", connID)
		return
	}
	t.publish(room)
}

// Stop removes the connection from the typing set. Idempotent: stopping a
// connection that never typed still publishes the (unchanged) list.
func (t *TypingAggregator) Stop(room *domain.Room, connID string) {
	room.StopTyping(connID)
	t.publish(room)
}

func (t *TypingAggregator) publish(room *domain.Room) {
	t.broadcaster.Broadcast(room.Code, event.TypingUpdate, event.TypingUpdatePayload{
		TypingUsers: room.TypingNames(),
	})
}
