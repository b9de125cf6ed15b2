package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"poll-chat/domain"
	"poll-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/messages", "Path to badger DB")
	after := flag.String("after", "", "Only show messages after this cursor")
	flag.Parse()

	cursor, err := domain.ParseCursor(*after)
	if err != nil {
		log.Fatal("Invalid cursor: ", err)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	if err := dump(db, cursor, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// dump prints every message after cursor as a table.
func dump(db *badger.DB, cursor domain.Cursor, out io.Writer) error {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Seq", "Time", "Nickname", "Message", "ID"})
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

	prefix := []byte(repositories.MessagePrefix)
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				message, err := repositories.DecodeMessage(v)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				if message.Seq <= cursor {
					return nil
				}

				// The first 8 characters of the ID are enough to tell messages apart
				displayID := message.ID
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}
				table.Append([]string{
					message.Seq.String(),
					message.At.Format("2006-01-02 15:04:05"),
					message.NickName,
					message.Text,
					displayID,
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
		return err
	}

	table.Render()
	return nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A database left dirty by a crash must be opened once in write mode to truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
