package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"connectnow/domain"
	"connectnow/errors"
)

// BadgerGateway is the durable-store collaborator backed by BadgerDB.
// Entries carry a TTL so rooms and messages expire on their own, without the
// in-memory core ever deleting durable history.
//
// A nil db constructs a disabled gateway whose calls fail fast with
// ErrStoreUnavailable: the coordination core is expected to run correctly
// in memory-only mode.
type BadgerGateway struct {
	db        *badger.DB
	log       *slog.Logger
	retention time.Duration
}

func NewBadgerGateway(db *badger.DB, log *slog.Logger, retention time.Duration) BadgerGateway {
	return BadgerGateway{db: db, log: log, retention: retention}
}

type roomRecord struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func roomKey(code string) []byte {
	return []byte("room:" + code)
}

// messageKey is formatted as "msg:{room_code}:{timestamp_padded}:{id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the message id as a collision disconnector
//     if two messages arrive at the same nanosecond.
func messageKey(roomCode string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomCode, at.UnixNano(), id))
}

func messagePrefix(roomCode string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", roomCode))
}

// UpsertRoom writes (or refreshes) the durable room record. Re-upserting an
// existing code resets its TTL, mirroring a "last active" refresh.
func (g BadgerGateway) UpsertRoom(ctx context.Context, code, name string) error {
	if err := g.guard(ctx); err != nil {
		return err
	}
	if name == "" {
		name = "Room " + code
	}
	bytes, err := json.Marshal(roomRecord{Code: code, Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(g.entry(roomKey(code), bytes))
	})
}

func (g BadgerGateway) RoomExists(ctx context.Context, code string) (bool, error) {
	if err := g.guard(ctx); err != nil {
		return false, err
	}
	exists := false
	err := g.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(code))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (g BadgerGateway) AppendMessage(ctx context.Context, roomCode string, msg domain.Message) error {
	if err := g.guard(ctx); err != nil {
		return err
	}
	bytes, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(g.entry(messageKey(roomCode, msg.Timestamp, msg.ID), bytes))
	})
}

// ListMessages retrieves the most recent messages of a room, oldest first,
// capped at limit. The reverse prefix scan relies on the padded timestamp in
// the key: we seek past the newest possible key, walk backwards collecting
// up to limit values, then flip the slice back to chronological order.
func (g BadgerGateway) ListMessages(ctx context.Context, roomCode string, limit int) ([]domain.Message, error) {
	if err := g.guard(ctx); err != nil {
		return nil, err
	}
	var raw [][]byte
	err := g.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomCode)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raw) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.Message
		if err = json.Unmarshal(raw[i], &msg); err != nil {
			return nil, err
		}
		msg.RoomCode = roomCode
		messages = append(messages, msg)
	}
	return messages, nil
}

func (g BadgerGateway) Available() bool {
	return g.db != nil && !g.db.IsClosed()
}

func (g BadgerGateway) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !g.Available() {
		return errors.ErrStoreUnavailable
	}
	return nil
}

func (g BadgerGateway) entry(key, value []byte) *badger.Entry {
	entry := badger.NewEntry(key, value)
	if g.retention > 0 {
		entry = entry.WithTTL(g.retention)
	}
	return entry
}
