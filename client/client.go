package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"

	"connectnow/domain"
	"connectnow/domain/event"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:4000/ws"`
	RoomCode  string `env:"CHAT_ROOM_CODE,required=true"`
	UserName  string `env:"CHAT_USER_NAME,default=Anonymous"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle: configuration loading, the join
// handshake, then a receive loop printing room traffic while stdin lines are
// sent as messages.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	userID := uuid.NewString()
	if err = send(conn, event.JoinRoom, domain.JoinRoomCommand{
		RoomID: config.RoomCode, Name: config.UserName, UserID: userID,
	}); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}

	log.Info(fmt.Sprintf(">>> Connected to %s! Listening room %s (Ctrl+C to quit)...",
		config.ServerURL, config.RoomCode))

	// Stdin lines become messages; closing stdin just stops sending.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			_ = send(conn, event.SendMessage, domain.SendMessageCommand{
				RoomCode: config.RoomCode, Content: line, UserID: userID, Name: config.UserName,
			})
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Stopping client...")
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}

		var f frame
		if err = json.Unmarshal(raw, &f); err != nil {
			continue
		}
		display(log, f)
	}
}

func send(conn *websocket.Conn, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(frame{Event: name, Data: data})
}

func display(log *slog.Logger, f frame) {
	switch f.Event {
	case event.NewMessage:
		var msg domain.Message
		if json.Unmarshal(f.Data, &msg) == nil {
			log.Info(fmt.Sprintf("[%s] %s: %s",
				msg.Timestamp.Format(time.TimeOnly), msg.SenderName, msg.Content))
		}
	case event.JoinedRoom:
		var reply event.JoinedRoomPayload
		if json.Unmarshal(f.Data, &reply) == nil {
			log.Info(fmt.Sprintf("Joined %s (%d replayed messages)", reply.RoomName, len(reply.Messages)))
			for _, msg := range reply.Messages {
				log.Info(fmt.Sprintf("[%s] %s: %s",
					msg.Timestamp.Format(time.TimeOnly), msg.SenderName, msg.Content))
			}
		}
	case event.TypingUpdate:
		var update event.TypingUpdatePayload
		if json.Unmarshal(f.Data, &update) == nil && len(update.TypingUsers) > 0 {
			log.Debug(fmt.Sprintf("typing: %v", update.TypingUsers))
		}
	case event.Error:
		log.Warn(fmt.Sprintf("Server error: %s", f.Data))
	}
}
