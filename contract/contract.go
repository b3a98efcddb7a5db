//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"connectnow/domain"
)

// Broadcaster is the transport collaborator: it delivers events to every
// connection subscribed to a room, or to a single connection for scoped
// replies. Delivery is best-effort; a slow or dead connection is the
// transport's problem, never the engine's.
type Broadcaster interface {
	Subscribe(connID, roomCode string)
	Broadcast(roomCode, name string, payload any)
	SendTo(connID, name string, payload any)
}

// Gateway is the durable store collaborator. Every call must return rather
// than block when the store is unavailable; the core treats any error as
// "degrade to memory-only" and keeps going.
type Gateway interface {
	UpsertRoom(ctx context.Context, code, name string) error
	RoomExists(ctx context.Context, code string) (bool, error)
	AppendMessage(ctx context.Context, roomCode string, msg domain.Message) error
	ListMessages(ctx context.Context, roomCode string, limit int) ([]domain.Message, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
