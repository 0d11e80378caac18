// Command battle-client is a terminal client for the battle server's
// websocket gateway. It identifies with a hello frame, then sends each
// stdin line as a message and prints notices as they arrive.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

type frame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text,omitempty"`
}

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8081/ws", "gateway websocket URL")
		userID = flag.String("user", "", "participant id (required)")
		name   = flag.String("name", "", "display name (defaults to the participant id)")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: battle-client -user <id> [-name <display name>] [-url ws://host:port/ws]")
		os.Exit(2)
	}
	if *name == "" {
		*name = *userID
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("connect to %s: %v", *url, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(frame{Type: "hello", UserID: *userID, Name: *name}); err != nil {
		log.Fatalf("send hello: %v", err)
	}

	fmt.Printf("Connected as %s. Commands: !roll, !battle @user, !accept, !team, !sell <card>, !battlestats\n", *userID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if err := json.Unmarshal(raw, &f); err != nil {
				continue
			}
			switch f.Type {
			case "notice":
				fmt.Println(f.Text)
			case "error":
				fmt.Printf("server error: %s\n", f.Text)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-done:
			fmt.Println("connection closed")
			return
		case <-interrupt:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if err := conn.WriteJSON(frame{Type: "message", Text: line}); err != nil {
				log.Printf("send failed: %v", err)
				return
			}
		}
	}
}
