package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"connectnow/contract"
	"connectnow/domain"
	"connectnow/domain/event"
	"connectnow/errors"
)

// MessageLog appends messages to a room's in-memory log, mirrors them to the
// durable store in the background, and broadcasts them to the room. The
// in-memory log is authoritative for the life of the process: a store
// failure is logged and otherwise ignored, and no caller ever waits on
// store I/O.
//
// Append and broadcast are serialized per room: subscribers must observe
// messages in the exact order they were appended, so the broadcast enqueue
// happens under the same per-room sequence lock as the append. Enqueueing is
// non-blocking in the transport; the durable mirror stays outside the lock.
type MessageLog struct {
	log         *slog.Logger
	gateway     contract.Gateway
	broadcaster contract.Broadcaster

	mu  sync.Mutex
	seq map[string]*sync.Mutex // room code -> append+broadcast sequence lock
}

func NewMessageLog(log *slog.Logger, gateway contract.Gateway, broadcaster contract.Broadcaster) *MessageLog {
	return &MessageLog{
		log:         log,
		gateway:     gateway,
		broadcaster: broadcaster,
		seq:         make(map[string]*sync.Mutex),
	}
}

// Append completes the message (id, timestamp), appends it to the room,
// broadcasts new-message, and schedules the durable mirror.
func (m *MessageLog) Append(room *domain.Room, msg domain.Message) domain.Message {
	msg = m.complete(room, msg)

	seq := m.roomSeq(room.Code)
	seq.Lock()
	room.Append(msg)
	m.broadcaster.Broadcast(room.Code, event.NewMessage, msg)
	seq.Unlock()

	m.mirror(msg)
	return msg
}

// AppendUnlessUser is the grace-expiry variant: the departure notice is
// appended and broadcast only when the user still has no live connection,
// checked atomically with the append.
func (m *MessageLog) AppendUnlessUser(room *domain.Room, userID string, msg domain.Message) bool {
	msg = m.complete(room, msg)

	seq := m.roomSeq(room.Code)
	seq.Lock()
	appended := room.AppendUnlessUser(userID, msg)
	if appended {
		m.broadcaster.Broadcast(room.Code, event.NewMessage, msg)
	}
	seq.Unlock()

	if appended {
		m.mirror(msg)
	}
	return appended
}

func (m *MessageLog) roomSeq(code string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq, ok := m.seq[code]
	if !ok {
		seq = &sync.Mutex{}
		m.seq[code] = seq
	}
	return seq
}

func (m *MessageLog) complete(room *domain.Room, msg domain.Message) domain.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.RoomCode = room.Code
	return msg
}

// mirror writes the message to the durable store, fire-and-forget.
func (m *MessageLog) mirror(msg domain.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		err := m.gateway.AppendMessage(ctx, msg.RoomCode, msg)
		if err == nil {
			return
		}
		if err == errors.ErrStoreUnavailable {
			m.log.Debug("Message not mirrored, store unavailable", "room", msg.RoomCode)
			return
		}
		m.log.Warn("Message not mirrored", "room", msg.RoomCode, "error", err)
	}()
}
