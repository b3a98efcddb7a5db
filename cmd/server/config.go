package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=4000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	// Empty path disables durable persistence; the core then runs
	// memory-only, exactly as when the store is unreachable.
	BadgerFilepath string `env:"BADGER_FILEPATH"`

	GracePeriod      time.Duration `env:"GRACE_PERIOD,default=5s"`
	ReapInterval     time.Duration `env:"REAP_INTERVAL,default=1h"`
	RoomIdleTimeout  time.Duration `env:"ROOM_IDLE_TIMEOUT,default=1h"`
	MessageRetention time.Duration `env:"MESSAGE_RETENTION,default=168h"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	ReplayWindow   int `env:"REPLAY_WINDOW,default=100"`
	SendBufferSize int `env:"SEND_BUFFER_SIZE,default=256"`
}
