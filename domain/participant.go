// Package domain contains core concepts of the room coordination system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type PresenceStatus string

const (
	StatusOnline PresenceStatus = "online"
	StatusAway   PresenceStatus = "away"
	StatusBusy   PresenceStatus = "busy"
)

// Participant is one connected member of a room.
// UserID is stable across reconnects; ConnID identifies a single live
// transport connection and changes on every reconnect.
type Participant struct {
	UserID   string
	ConnID   string
	Name     string
	Avatar   string
	Status   PresenceStatus
	JoinedAt time.Time
}
