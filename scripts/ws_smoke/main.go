package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	steps := []struct {
		typ  string
		data any
	}{
		{proto.InboundTypeConnect, proto.ConnectData{Protocol: proto.ProtocolVersion}},
		{proto.InboundTypeSubscribe, proto.SubscribeData{Destination: core.ChannelPublic}},
		{proto.InboundTypeSubscribe, proto.SubscribeData{Destination: core.ChannelUsers}},
		{proto.InboundTypeAddUser, proto.ChatMessage{Type: "JOIN", Sender: *user}},
		{proto.InboundTypeSend, proto.ChatMessage{Type: "CHAT", Sender: *user, Content: *text}},
	}
	for _, step := range steps {
		if err := mustSend(step.typ, step.data); err != nil {
			return err
		}
	}

	for {
		var outbound struct {
			Type        string          `json:"type"`
			Destination string          `json:"destination"`
			Data        json.RawMessage `json:"data"`
			Error       *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Destination != "" {
			fmt.Printf(" destination=%s", outbound.Destination)
		}
		fmt.Println()

		switch outbound.Type {
		case proto.OutboundTypeError:
			if outbound.Error != nil {
				return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
			}
		case proto.OutboundTypeConnected:
			var c proto.Connected
			if err := json.Unmarshal(outbound.Data, &c); err == nil {
				fmt.Printf("Connected: id=%s protocol=%d\n", c.ConnectionID, c.Protocol)
			}
		case proto.OutboundTypeMessage:
			if outbound.Destination == core.ChannelUsers {
				fmt.Printf("Users: %s\n", string(outbound.Data))
				continue
			}
			var msg proto.ChatMessage
			if err := json.Unmarshal(outbound.Data, &msg); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("%s: sender=%s content=%q\n", msg.Type, msg.Sender, msg.Content)
			if msg.Type == "CHAT" && msg.Sender == *user {
				return nil
			}
		}
	}
}
