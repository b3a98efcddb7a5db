// Package runtime is the room coordination core: the registry of live rooms,
// the presence and typing state machines, and the engine that serializes
// every mutation per room before re-emitting it through the transport.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"connectnow/contract"
	"connectnow/domain"
	"connectnow/errors"
)

// storeTimeout bounds every durable-store call issued by the registry, so an
// unhealthy store degrades the system instead of wedging it.
const storeTimeout = 3 * time.Second

// Registry is the process-wide map from room code to live Room. It is owned
// by the server process and passed by reference to every handler; there is
// deliberately no package-level instance.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*domain.Room
	gateway contract.Gateway
	log     *slog.Logger
	window  int // replay window for restored and live rooms
}

func NewRegistry(log *slog.Logger, gateway contract.Gateway, window int) *Registry {
	return &Registry{
		rooms:   make(map[string]*domain.Room),
		gateway: gateway,
		log:     log,
		window:  window,
	}
}

// Create generates a code not currently present in the registry (collisions
// retried), inserts an empty room, and mirrors the record to the durable
// store in the background. Store failure never blocks room creation.
func (r *Registry) Create(name, description string) *domain.Room {
	r.mu.Lock()
	var code string
	for {
		code = domain.NewRoomCode()
		if _, taken := r.rooms[code]; !taken {
			break
		}
	}
	room := domain.NewRoom(code, name, description, r.window)
	r.rooms[code] = room
	r.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := r.gateway.UpsertRoom(ctx, code, name); err != nil {
			r.logStoreMiss("room record not mirrored", code, err)
		}
	}()

	return room
}

// Get returns the in-memory room, without consulting the durable store.
func (r *Registry) Get(code string) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Resolve returns the in-memory room if present; otherwise it asks the
// durable store. A durably-known code is materialized back into memory with
// an empty roster and its history replayed, capped at the replay window.
// A code unknown on both sides resolves to ErrRoomNotFound.
func (r *Registry) Resolve(ctx context.Context, code string) (*domain.Room, error) {
	if room, ok := r.Get(code); ok {
		return room, nil
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	exists, err := r.gateway.RoomExists(ctx, code)
	if err != nil {
		r.logStoreMiss("room lookup degraded to memory-only", code, err)
		return nil, errors.ErrRoomNotFound
	}
	if !exists {
		return nil, errors.ErrRoomNotFound
	}

	history, err := r.gateway.ListMessages(ctx, code, r.window)
	if err != nil {
		r.logStoreMiss("history replay skipped", code, err)
		history = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// A concurrent join may have restored the same code already.
	if room, ok := r.rooms[code]; ok {
		return room, nil
	}
	room := domain.RestoreRoom(code, history, r.window)
	r.rooms[code] = room
	r.log.Info("Room restored from store", "code", code, "replayed", len(history))
	return room, nil
}

// EvictIfIdle removes the room from the registry iff its roster is empty and
// it has been idle beyond the threshold. Durable history is never touched;
// it expires under the store's own policy.
func (r *Registry) EvictIfIdle(code string, threshold time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok || !room.Evictable(time.Now().UTC(), threshold) {
		return false
	}
	delete(r.rooms, code)
	return true
}

// Sweep evicts every idle empty room and returns how many were dropped.
// A sweep over an empty registry is a valid no-op.
func (r *Registry) Sweep(threshold time.Duration) int {
	evicted := 0
	for _, code := range r.codes() {
		if r.EvictIfIdle(code, threshold) {
			r.log.Debug(fmt.Sprintf("Evicted inactive room %s from memory", code))
			evicted++
		}
	}
	return evicted
}

// Rooms returns a snapshot of the live rooms.
func (r *Registry) Rooms() []*domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (r *Registry) logStoreMiss(msg, code string, err error) {
	if err == errors.ErrStoreUnavailable {
		r.log.Debug(msg, "code", code, "error", err)
		return
	}
	r.log.Warn(msg, "code", code, "error", err)
}
