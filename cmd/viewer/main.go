package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// viewer dumps conversations and their logs from a live store.
// Read-only: BypassLockGuard allows opening while the daemon holds the lock.
func main() {
	dbPath := flag.String("db", "./badger", "Path to badger DB")
	prefix := flag.String("prefix", "conv:", "Prefix to scan")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Participants", "Reference", "Last Message", "At", "Unread"})
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

			// Ignore secondary indexes explicitly
			if strings.HasPrefix(string(item.Key()), "idx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var record struct {
					ID            string     `json:"id"`
					Participants  []string   `json:"participants"`
					LastMessage   string     `json:"lastMessage"`
					LastMessageAt *time.Time `json:"lastMessageAt"`
					Reference     *struct {
						Type string `json:"referenceType"`
						ID   string `json:"referenceId"`
					} `json:"reference"`
				}
				if err := json.Unmarshal(v, &record); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				unread := totalUnread(txn, record.ID)
				unreadCell := fmt.Sprintf("%d", unread)
				if unread > 0 {
					unreadCell = color.Red.Sprintf("%d", unread)
				}

				reference := "-"
				if record.Reference != nil {
					reference = record.Reference.Type + "/" + record.Reference.ID
				}

				at := "--:--:--"
				if record.LastMessageAt != nil && !record.LastMessageAt.IsZero() {
					at = record.LastMessageAt.Format("15:04:05")
				}

				// Display the first 8 characters of the id for readability
				displayID := record.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				table.Append([]string{
					displayID,
					strings.Join(record.Participants, ","),
					reference,
					record.LastMessage,
					at,
					unreadCell,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}

func totalUnread(txn *badger.Txn, conversationID string) uint64 {
	var total uint64
	prefix := []byte("unread:" + conversationID + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		_ = it.Item().Value(func(val []byte) error {
			if len(val) == 8 {
				total += binary.BigEndian.Uint64(val)
			}
			return nil
		})
	}
	return total
}
