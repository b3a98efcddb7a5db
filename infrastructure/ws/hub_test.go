package ws

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStalledClient(hub *Hub, id string, buffer int) *Client {
	// No pumps are started: the send buffer is never drained, like a peer
	// that stopped reading.
	return &Client{
		id:      id,
		handler: &Handler{log: slog.Default(), hub: hub},
		send:    make(chan []byte, buffer),
	}
}

func Test_Full_Send_Buffer_Drops_The_Client_Without_Panic(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	client := newStalledClient(hub, "conn-1", 1)
	hub.add(client)
	hub.Subscribe("conn-1", "A1B2C3")

	// First broadcast fills the one-slot buffer, the second overflows it and
	// marks the client dead, the rest must be silently ignored.
	for i := 0; i < 5; i++ {
		hub.Broadcast("A1B2C3", "new-message", map[string]string{"content": "hi"})
	}
	hub.SendTo("conn-1", "users-update", nil)

	req.Eventually(func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, stillThere := hub.clients["conn-1"]
		return !stillThere && len(hub.rooms) == 0
	}, time.Second, 5*time.Millisecond)

	// The channel was closed exactly once, by drop, after the client left
	// the fan-out maps; further broadcasts reach nobody.
	hub.Broadcast("A1B2C3", "new-message", map[string]string{"content": "late"})
}

func Test_Healthy_Client_Survives_A_Sibling_Overflow(t *testing.T) {
	req := require.New(t)
	hub := NewHub(slog.Default())
	stalled := newStalledClient(hub, "conn-1", 1)
	healthy := newStalledClient(hub, "conn-2", 16)
	hub.add(stalled)
	hub.add(healthy)
	hub.Subscribe("conn-1", "A1B2C3")
	hub.Subscribe("conn-2", "A1B2C3")

	for i := 0; i < 4; i++ {
		hub.Broadcast("A1B2C3", "new-message", map[string]string{"content": "hi"})
	}

	req.Eventually(func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, stillThere := hub.clients["conn-1"]
		return !stillThere
	}, time.Second, 5*time.Millisecond)

	hub.mu.RLock()
	_, ok := hub.clients["conn-2"]
	hub.mu.RUnlock()
	req.True(ok)
	req.Equal(4, queuedFrames(healthy))
}

func queuedFrames(c *Client) int {
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			return count
		}
	}
}
