package runtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"connectnow/domain"
	"connectnow/domain/event"
	"connectnow/errors"
)

// sentEvent is one call recorded by the broadcaster fake. Conn is set for
// direct replies, Room for room-wide broadcasts.
type sentEvent struct {
	Conn    string
	Room    string
	Name    string
	Payload any
}

type recordingBroadcaster struct {
	mu            sync.Mutex
	events        []sentEvent
	subscriptions map[string][]string // conn id -> room codes
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{subscriptions: make(map[string][]string)}
}

func (b *recordingBroadcaster) Subscribe(connID, roomCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions[connID] = append(b.subscriptions[connID], roomCode)
}

func (b *recordingBroadcaster) Broadcast(roomCode, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Room: roomCode, Name: name, Payload: payload})
}

func (b *recordingBroadcaster) SendTo(connID, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Conn: connID, Name: name, Payload: payload})
}

func (b *recordingBroadcaster) named(name string) []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []sentEvent
	for _, e := range b.events {
		if e.Name == name {
			matched = append(matched, e)
		}
	}
	return matched
}

func (b *recordingBroadcaster) systemMessages(contentPart string) int {
	count := 0
	for _, e := range b.named(event.NewMessage) {
		msg, ok := e.Payload.(domain.Message)
		if ok && msg.Kind == domain.KindSystem && strings.Contains(msg.Content, contentPart) {
			count++
		}
	}
	return count
}

// stubGateway is an in-memory contract.Gateway. With unavailable set, every
// call fails fast the way the disabled Badger gateway does.
type stubGateway struct {
	mu          sync.Mutex
	unavailable bool
	rooms       map[string]string
	messages    map[string][]domain.Message
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		rooms:    make(map[string]string),
		messages: make(map[string][]domain.Message),
	}
}

func (g *stubGateway) UpsertRoom(_ context.Context, code, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unavailable {
		return errors.ErrStoreUnavailable
	}
	g.rooms[code] = name
	return nil
}

func (g *stubGateway) RoomExists(_ context.Context, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unavailable {
		return false, errors.ErrStoreUnavailable
	}
	_, ok := g.rooms[code]
	return ok, nil
}

func (g *stubGateway) AppendMessage(_ context.Context, roomCode string, msg domain.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unavailable {
		return errors.ErrStoreUnavailable
	}
	g.messages[roomCode] = append(g.messages[roomCode], msg)
	return nil
}

func (g *stubGateway) ListMessages(_ context.Context, roomCode string, limit int) ([]domain.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unavailable {
		return nil, errors.ErrStoreUnavailable
	}
	stored := g.messages[roomCode]
	if limit > 0 && len(stored) > limit {
		stored = stored[len(stored)-limit:]
	}
	return append([]domain.Message{}, stored...), nil
}

func (g *stubGateway) storedRoom(code string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name, ok := g.rooms[code]
	return name, ok
}

type testCore struct {
	engine      *Engine
	registry    *Registry
	presence    *PresenceTracker
	broadcaster *recordingBroadcaster
	gateway     *stubGateway
}

func newTestCore(gateway *stubGateway, grace time.Duration) testCore {
	log := slog.Default()
	broadcaster := newRecordingBroadcaster()
	registry := NewRegistry(log, gateway, 100)
	presence := NewPresenceTracker(log, grace)
	typing := NewTypingAggregator(log, broadcaster)
	messages := NewMessageLog(log, gateway, broadcaster)
	return testCore{
		engine:      NewEngine(log, registry, presence, typing, messages, broadcaster),
		registry:    registry,
		presence:    presence,
		broadcaster: broadcaster,
		gateway:     gateway,
	}
}
