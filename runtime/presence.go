package runtime

import (
	"log/slog"
	"sync"
	"time"
)

type graceKey struct {
	roomCode string
	userID   string
}

type graceEntry struct {
	timer    *time.Timer
	name     string
	joinedAt time.Time
}

// PresenceTracker owns the reconnect grace period: the interval during which
// a disconnected participant may come back without the room ever learning
// they were gone.
//
// The timer handle is stored per (roomCode, userID) and claimed under the
// tracker mutex from exactly one side, either the reconnecting join or the
// expiry callback. Whoever claims it wins; the loser observes a missing
// entry and backs off. The expiry side then still re-checks roster
// membership under the room lock, which closes the remaining window where
// a timer fires while the reconnect is mid-flight.
type PresenceTracker struct {
	mu      sync.Mutex
	grace   time.Duration
	pending map[graceKey]*graceEntry
	log     *slog.Logger
}

func NewPresenceTracker(log *slog.Logger, grace time.Duration) *PresenceTracker {
	return &PresenceTracker{
		grace:   grace,
		pending: make(map[graceKey]*graceEntry),
		log:     log,
	}
}

// Arm schedules the departure announcement for a user that just lost its
// connection. When the grace elapses unclaimed, expire runs with the
// participant's display name. A second disconnect for the same user simply
// rewinds the timer.
func (p *PresenceTracker) Arm(roomCode, userID, name string, joinedAt time.Time, expire func(name string)) {
	key := graceKey{roomCode: roomCode, userID: userID}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.pending[key]; ok {
		existing.timer.Stop()
	}
	entry := &graceEntry{name: name, joinedAt: joinedAt}
	entry.timer = time.AfterFunc(p.grace, func() {
		if p.claim(key, entry) {
			expire(name)
		}
	})
	p.pending[key] = entry
}

// Reclaim cancels the pending departure for a reconnecting user. It reports
// whether a grace window was open and, if so, the JoinedAt recorded before
// the disconnect so the reconnect keeps the original join time.
func (p *PresenceTracker) Reclaim(roomCode, userID string) (time.Time, bool) {
	key := graceKey{roomCode: roomCode, userID: userID}

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.pending[key]
	if !ok {
		return time.Time{}, false
	}
	entry.timer.Stop()
	delete(p.pending, key)
	return entry.joinedAt, true
}

// Pending reports whether a grace window is currently open for the user.
func (p *PresenceTracker) Pending(roomCode, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[graceKey{roomCode: roomCode, userID: userID}]
	return ok
}

// StopAll cancels every pending timer; used on shutdown.
func (p *PresenceTracker) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, key)
	}
}

// claim transfers ownership of the entry to the expiry callback. It fails
// when a reconnect already reclaimed the key, or when the entry was replaced
// by a newer disconnect of the same user.
func (p *PresenceTracker) claim(key graceKey, entry *graceEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.pending[key]
	if !ok || current != entry {
		return false
	}
	delete(p.pending, key)
	return true
}
