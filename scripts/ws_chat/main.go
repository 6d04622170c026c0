package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	flag.Parse()

	name := strings.TrimSpace(*user)
	if name == "" {
		return errors.New("user must not be blank")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	for _, dest := range []string{core.ChannelPublic, core.ChannelUsers, core.PrivateChannel(name)} {
		if err := send(proto.InboundTypeSubscribe, proto.SubscribeData{Destination: dest}); err != nil {
			return err
		}
	}
	if err := send(proto.InboundTypeAddUser, proto.ChatMessage{Type: "JOIN", Sender: name}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, name)
	fmt.Println("Type messages and press Enter to send, @user: text for a private message. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, name, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame struct {
			Type        string          `json:"type"`
			Destination string          `json:"destination"`
			Data        json.RawMessage `json:"data"`
			Error       *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			fmt.Printf("! %s: %s\n", frame.Error.Code, frame.Error.Msg)
			continue
		}
		if frame.Type != proto.OutboundTypeMessage {
			continue
		}

		if frame.Destination == core.ChannelUsers {
			var users []string
			if err := json.Unmarshal(frame.Data, &users); err != nil {
				log.Printf("unmarshal users: %v", err)
				continue
			}
			fmt.Printf("* online: %s\n", strings.Join(users, ", "))
			continue
		}

		var msg proto.ChatMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			log.Printf("unmarshal message: %v", err)
			continue
		}
		fmt.Println(formatMessage(frame.Destination, msg))
	}
}

func formatMessage(destination string, msg proto.ChatMessage) string {
	switch msg.Type {
	case "JOIN", "LEAVE":
		return "* " + msg.Content
	}
	if destination != core.ChannelPublic {
		return fmt.Sprintf("(private) %s: %s", msg.Sender, msg.Content)
	}
	return fmt.Sprintf("%s: %s", msg.Sender, msg.Content)
}

var privatePattern = regexp.MustCompile(`^@([^:]+):\s*(.*)$`)

// parseLine splits "@user: text" into a private message; anything else is a
// broadcast.
func parseLine(line string) (receiver, content string) {
	if m := privatePattern.FindStringSubmatch(line); m != nil {
		receiver = strings.TrimSpace(m[1])
		content = strings.TrimSpace(m[2])
		if receiver != "" && content != "" {
			return receiver, content
		}
	}
	return "", line
}

func writeLoop(ctx context.Context, name string, send func(string, any) error) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			receiver, content := parseLine(text)
			typ := proto.InboundTypeSend
			if receiver != "" {
				typ = proto.InboundTypePrivateSend
			}
			msg := proto.ChatMessage{Type: "CHAT", Sender: name, Receiver: receiver, Content: content}
			if err := send(typ, msg); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
