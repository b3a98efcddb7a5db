package domain

import (
	"sync"
	"time"
)

// UnknownTypingName replaces the display name of a typing connection whose
// roster entry cannot be resolved, so the typing count stays consistent.
const UnknownTypingName = "Someone"

// Room is a code-addressed chat channel. All mutable collections (roster,
// typing set, message log, lastActive) are guarded by one mutex per room:
// no operation observes a partially updated Room, and rooms never share
// a serialization point with each other.
type Room struct {
	Code        string
	Name        string
	Description string
	CreatedAt   time.Time

	mu         sync.Mutex
	lastActive time.Time
	messages   []Message
	roster     map[string]Participant // conn id -> participant
	typing     map[string]struct{}    // conn ids currently typing
	window     int                    // replay window, <= 0 means unbounded
}

func NewRoom(code, name, description string, window int) *Room {
	if name == "" {
		name = "Room " + code
	}
	now := time.Now().UTC()
	return &Room{
		Code:        code,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		lastActive:  now,
		roster:      make(map[string]Participant),
		typing:      make(map[string]struct{}),
		window:      window,
	}
}

// RestoreRoom rebuilds an in-memory room from durable history, with an empty
// roster. The durable record does not carry the display name, so the default
// one is used, exactly as on the original restore path.
func RestoreRoom(code string, history []Message, window int) *Room {
	room := NewRoom(code, "", "", window)
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	room.messages = append(room.messages, history...)
	return room
}

// Evictable reports whether the room may be dropped from memory:
// empty roster and idle beyond the threshold. A room with members is never
// evictable, regardless of age.
func (r *Room) Evictable(now time.Time, threshold time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roster) == 0 && now.Sub(r.lastActive) > threshold
}

// Join inserts the participant into the roster. When another connection of
// the same UserID is still present (a reconnect race), the older entry is
// removed and its JoinedAt is preserved. Reports whether the user was
// already a roster member.
func (r *Room) Join(p Participant) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rejoined := false
	for connID, existing := range r.roster {
		if existing.UserID == p.UserID {
			p.JoinedAt = existing.JoinedAt
			delete(r.roster, connID)
			delete(r.typing, connID)
			rejoined = true
			break
		}
	}
	r.roster[p.ConnID] = p
	r.lastActive = time.Now().UTC()
	return p, rejoined
}

// Leave removes the connection from the roster and the typing set.
// Returns the removed participant when the connection was a member.
func (r *Room) Leave(connID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.roster[connID]
	if !ok {
		return Participant{}, false
	}
	delete(r.roster, connID)
	delete(r.typing, connID)
	r.lastActive = time.Now().UTC()
	return p, true
}

func (r *Room) Member(connID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.roster[connID]
	return p, ok
}

// HasUser reports whether any live connection belongs to the given user.
func (r *Room) HasUser(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasUserLocked(userID)
}

func (r *Room) hasUserLocked(userID string) bool {
	for _, p := range r.roster {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Room) RosterSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roster)
}

func (r *Room) Roster() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster := make([]Participant, 0, len(r.roster))
	for _, p := range r.roster {
		roster = append(roster, p)
	}
	return roster
}

// UpdateProfile overwrites avatar and/or status of the connection's entry.
func (r *Room) UpdateProfile(connID string, avatar *string, status *PresenceStatus) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.roster[connID]
	if !ok {
		return Participant{}, false
	}
	if avatar != nil {
		p.Avatar = *avatar
	}
	if status != nil {
		p.Status = *status
	}
	r.roster[connID] = p
	r.lastActive = time.Now().UTC()
	return p, true
}

// StartTyping adds the connection to the typing set, but only for roster
// members: stale or never-joined handles are ignored.
func (r *Room) StartTyping(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roster[connID]; !ok {
		return false
	}
	r.typing[connID] = struct{}{}
	r.lastActive = time.Now().UTC()
	return true
}

// StopTyping removes the connection from the typing set. Idempotent.
func (r *Room) StopTyping(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.typing, connID)
}

// TypingNames resolves the display names of all currently-typing
// connections. A handle whose roster entry is gone resolves to
// UnknownTypingName instead of being dropped.
func (r *Room) TypingNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.typing))
	for connID := range r.typing {
		if p, ok := r.roster[connID]; ok {
			names = append(names, p.Name)
			continue
		}
		names = append(names, UnknownTypingName)
	}
	return names
}

// Append adds the message to the log, trimming the oldest entries beyond
// the replay window. Order is insertion order and is never rewritten.
func (r *Room) Append(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(msg)
}

// AppendUnlessUser appends the message only when the given user has no live
// connection in the roster. This is the grace-timer guard: membership and
// append are checked under one lock so a concurrent reconnect can never be
// followed by a stale departure notice.
func (r *Room) AppendUnlessUser(userID string, msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasUserLocked(userID) {
		return false
	}
	r.appendLocked(msg)
	return true
}

func (r *Room) appendLocked(msg Message) {
	r.messages = append(r.messages, msg)
	if r.window > 0 && len(r.messages) > r.window {
		r.messages = r.messages[len(r.messages)-r.window:]
	}
	r.lastActive = time.Now().UTC()
}

// Messages returns a copy of the log, oldest first. Never nil, so an empty
// history marshals as [] on the wire.
func (r *Room) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message{}, r.messages...)
}
