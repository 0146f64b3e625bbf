package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:5000/ws"`
	Token     string `env:"CHAT_TOKEN,required=true"`
	Room      string `env:"CHAT_ROOM,default=general"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wireMessage struct {
	User    string    `json:"user"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	FileURL string    `json:"fileUrl,omitempty"`
	ISO     time.Time `json:"iso"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle: configuration, connection,
// the receive loop, and the stdin send loop.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := config.ServerURL + "?token=" + config.Token
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer conn.Close()

	color.Green.Printf(">>> Connected to %s, joining room %q (Ctrl+C to quit)\n",
		config.ServerURL, config.Room)

	if err := send(conn, "join_room", map[string]string{"roomName": config.Room}); err != nil {
		return exitRuntime, err
	}

	go receiveLoop(conn)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatch(conn, config.Room, line); err != nil {
			return exitRuntime, err
		}
	}
	<-ctx.Done()
	return exitOK, nil
}

// dispatch interprets one stdin line: "/dm user text" opens a DM and sends
// there, everything else goes to the configured room.
func dispatch(conn *websocket.Conn, room, line string) error {
	if rest, ok := strings.CutPrefix(line, "/dm "); ok {
		parts := strings.SplitN(rest, " ", 2)
		if len(parts) != 2 {
			color.Yellow.Println("usage: /dm <user> <message>")
			return nil
		}
		if err := send(conn, "join_dm", map[string]string{"withUser": parts[0]}); err != nil {
			return err
		}
		return send(conn, "private_message", map[string]string{
			"to": parts[0], "message": parts[1], "type": "text",
		})
	}
	return send(conn, "send_room_message", map[string]string{
		"roomName": room, "message": line, "type": "text",
	})
}

func send(conn *websocket.Conn, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Data: raw})
}

func receiveLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			color.Red.Printf("Connection closed: %v\n", err)
			os.Exit(exitOK)
		}
		render(env)
	}
}

func render(env envelope) {
	switch env.Event {
	case "room_history", "dm_history":
		var history []wireMessage
		if err := json.Unmarshal(env.Data, &history); err != nil {
			return
		}
		renderHistory(env.Event, history)

	case "room_message", "private_message":
		var message wireMessage
		if err := json.Unmarshal(env.Data, &message); err != nil {
			return
		}
		renderMessage(env.Event, message)

	case "online_users":
		var online []string
		if err := json.Unmarshal(env.Data, &online); err != nil {
			return
		}
		color.Cyan.Printf("online: %s\n", strings.Join(online, ", "))

	case "user_typing":
		var notice struct {
			User string `json:"user"`
		}
		if err := json.Unmarshal(env.Data, &notice); err != nil {
			return
		}
		color.Gray.Printf("%s is typing...\n", notice.User)
	}
}

func renderHistory(name string, history []wireMessage) {
	color.Green.Printf("--- %s (%d messages) ---\n", name, len(history))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "User", "Type", "Message"})
	for _, message := range history {
		table.Append([]string{
			message.ISO.Local().Format("15:04:05"),
			message.User,
			message.Type,
			message.Message,
		})
	}
	table.Render()
}

func renderMessage(name string, message wireMessage) {
	stamp := message.ISO.Local().Format("15:04:05")
	switch {
	case message.Type == "system":
		color.Yellow.Printf("[%s] %s\n", stamp, message.Message)
	case name == "private_message":
		color.Magenta.Printf("[%s] (dm) %s: %s\n", stamp, message.User, message.Message)
	default:
		color.Normal.Printf("[%s] %s: %s\n", stamp, message.User, message.Message)
	}
	if message.FileURL != "" {
		color.Blue.Printf("      attachment: %s\n", message.FileURL)
	}
}
