// Package domain contains core concepts of the room coordination system.
// This file defines Message events and related rules.
// Messages are immutable once appended to a room.
package domain

import (
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

const (
	systemSenderID   = "system"
	systemSenderName = "System"
)

// Attachment describes a file already uploaded through the external relay.
// The core never sees file bytes, only this metadata.
type Attachment struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size"`
	MimeType  string `json:"mimeType"`
}

// Message represents an immutable chat event within a room.
// Field tags follow the wire contract consumed by clients.
type Message struct {
	ID         string      `json:"id"`
	RoomCode   string      `json:"-"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"sender"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"type"`
	Attachment *Attachment `json:"file,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Classify derives the message kind from an optional attachment.
// KindSystem is never inferred here; it is set explicitly by internal callers.
func Classify(attachment *Attachment) MessageKind {
	if attachment == nil {
		return KindText
	}
	mediaType, _, err := mime.ParseMediaType(attachment.MimeType)
	if err == nil && strings.HasPrefix(mediaType, "image/") {
		return KindImage
	}
	return KindFile
}

// NewSystemMessage builds a join/leave notice attributed to the system sender.
func NewSystemMessage(roomCode, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		RoomCode:   roomCode,
		SenderID:   systemSenderID,
		SenderName: systemSenderName,
		Content:    content,
		Kind:       KindSystem,
		Timestamp:  time.Now().UTC(),
	}
}
