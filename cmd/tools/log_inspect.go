// Command log_inspect dumps the durable message log of a chat-relay BadgerDB
// to the terminal. Useful to check what actually got persisted without
// starting the server.
package main

import (
	"chat-relay/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "/tmp/chat-relay/badger", "Path to badger DB")
	// "msg:" covers every channel; narrow with "msg:room:general:" etc.
	prefix := flag.String("prefix", "msg:", "Key prefix to scan")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithReadOnly(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Channel", "Time", "Sender", "Type", "Message", "File URL"})
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

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var message repositories.DiskMessage
				if err := json.Unmarshal(v, &message); err != nil {
					// Skip the broken entry instead of aborting the scan
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				body := message.Body
				if len(body) > 60 {
					body = body[:57] + "..."
				}
				table.Append([]string{
					string(message.Channel),
					message.At.Format("2006-01-02 15:04:05"),
					message.Sender,
					string(message.Type),
					body,
					message.FileURL,
				})
				count++
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
	fmt.Printf("\n%d message(s) under prefix %q\n", count, *prefix)
}
