// Package event defines the wire contract between the coordination core and
// its broadcast transport: event names and broadcast payload shapes.
package event

import (
	"github.com/samber/lo"

	"connectnow/domain"
)

// Outbound event names (server -> subscribers, or direct replies).
const (
	RoomCreated  = "room-created"
	JoinedRoom   = "joined-room"
	NewMessage   = "new-message"
	UserJoined   = "user-joined"
	UserLeft     = "user-left"
	TypingUpdate = "typing-update"
	UsersUpdate  = "users-update"
	Error        = "error"
)

// Inbound event names (connection -> server).
const (
	CreateRoom    = "create-room"
	JoinRoom      = "join-room"
	SendMessage   = "send-message"
	TypingStart   = "typing-start"
	TypingStop    = "typing-stop"
	UpdateProfile = "update-profile"
	GetUsers      = "get-users"
)

// ErrRoomNotFoundMessage is the human-readable error payload for joins
// against a code unknown to both memory and the durable store.
const ErrRoomNotFoundMessage = "Room not found"

// UserSummary is the public projection of a participant.
type UserSummary struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Status domain.PresenceStatus `json:"status"`
	Avatar string                `json:"avatar,omitempty"`
}

type JoinedRoomPayload struct {
	RoomCode        string           `json:"roomCode"`
	Messages        []domain.Message `json:"messages"`
	RoomName        string           `json:"roomName"`
	RoomDescription string           `json:"roomDescription,omitempty"`
}

type UserJoinedPayload struct {
	UserCount int           `json:"userCount"`
	User      UserSummary   `json:"user"`
	Users     []UserSummary `json:"users"`
}

type UserLeftPayload struct {
	UserCount int           `json:"userCount"`
	Users     []UserSummary `json:"users"`
}

type TypingUpdatePayload struct {
	TypingUsers []string `json:"typingUsers"`
}

type UsersUpdatePayload struct {
	Users []UserSummary `json:"users"`
}

func Summarize(p domain.Participant) UserSummary {
	return UserSummary{
		ID:     p.UserID,
		Name:   p.Name,
		Status: p.Status,
		Avatar: p.Avatar,
	}
}

func Summaries(roster []domain.Participant) []UserSummary {
	return lo.Map(roster, func(p domain.Participant, _ int) UserSummary {
		return Summarize(p)
	})
}
