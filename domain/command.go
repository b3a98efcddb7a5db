package domain

// Commands are the decoded inbound requests of the wire contract.
// Validation tags are enforced at the transport boundary before a command
// reaches the engine.

type CreateRoomCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type JoinRoomCommand struct {
	RoomID string `json:"roomId" validate:"required"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type SendMessageCommand struct {
	RoomCode   string      `json:"roomCode" validate:"required"`
	Content    string      `json:"content"`
	UserID     string      `json:"userId"`
	Name       string      `json:"name"`
	Attachment *Attachment `json:"file"`
}

type UpdateProfileCommand struct {
	RoomCode string  `json:"roomCode" validate:"required"`
	Avatar   *string `json:"avatar"`
	Status   *string `json:"status" validate:"omitempty,oneof=online away busy"`
}

// RoomQueryCommand covers typing-start, typing-stop and get-users, which all
// carry only the room code.
type RoomQueryCommand struct {
	RoomCode string `json:"roomCode" validate:"required"`
}
