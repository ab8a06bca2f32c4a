// Command watch connects to a running docaudit server and follows the
// realtime session from a terminal. Status updates and streamed AI answers
// are printed as they arrive; lines typed on stdin are sent as chat
// messages.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docaudit/pkg/wsclient"
)

func main() {
	url := flag.String("url", "ws://localhost:4000/api/v1/ws", "realtime endpoint")
	token := flag.String("token", os.Getenv("DOCAUDIT_TOKEN"), "session token (default $DOCAUDIT_TOKEN)")
	flag.Parse()

	if *token == "" {
		slog.Error("no session token; pass -token or set DOCAUDIT_TOKEN")
		os.Exit(1)
	}

	mgr := wsclient.NewManager(wsclient.Options{
		URL:        *url,
		Credential: *token,
	})
	mgr.Enable()
	defer mgr.Disable()

	go follow(mgr)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		if _, err := mgr.SendMessage(text); err != nil {
			slog.Error("send failed", "error", err)
		}
	}
}

// follow polls the session log and conversation and prints anything new.
func follow(mgr *wsclient.Manager) {
	var logSeen int
	printed := make(map[string]bool)

	for range time.Tick(200 * time.Millisecond) {
		for _, entry := range mgr.Log()[logSeen:] {
			if entry.Error {
				fmt.Fprintf(os.Stderr, "! %s\n", entry.Text)
			} else {
				fmt.Printf("* %s\n", entry.Text)
			}
			logSeen++
		}

		for _, entry := range mgr.Aggregator().Entries() {
			if entry.Role != wsclient.RoleAssistant || entry.Streaming || printed[entry.ID] {
				continue
			}
			printed[entry.ID] = true
			fmt.Printf("> %s\n", entry.Text)
		}
	}
}
