package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"connectnow/domain"
)

// Offline inspector for the durable room store. Opens the Badger directory
// read-only and renders room records or message history as a table.
//
//	go run ./tools -db /var/lib/connectnow -prefix msg:A1B2C3:

type roomRow struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "room:", "Prefix to scan (room: or msg:{code}:)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db path")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Time", "Sender", "Kind", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func toRow(key string, value []byte) []string {
	if strings.HasPrefix(key, "room:") {
		var room roomRow
		if err := json.Unmarshal(value, &room); err != nil {
			return []string{key, "", "", "ERR", err.Error()}
		}
		return []string{key, room.CreatedAt.Format(time.TimeOnly), "", "room", room.Name}
	}

	var msg domain.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return []string{key, "", "", "ERR", err.Error()}
	}
	content := msg.Content
	if msg.Attachment != nil {
		content = fmt.Sprintf("%s (%s)", msg.Attachment.Name, msg.Attachment.MimeType)
	}
	return []string{key, msg.Timestamp.Format(time.TimeOnly), msg.SenderName, string(msg.Kind), content}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
