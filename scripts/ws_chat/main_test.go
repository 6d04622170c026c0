package main

import (
	"testing"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line         string
		wantReceiver string
		wantContent  string
	}{
		{line: "hello", wantReceiver: "", wantContent: "hello"},
		{line: "@carol: hi there", wantReceiver: "carol", wantContent: "hi there"},
		{line: "@ carol :hi", wantReceiver: "carol", wantContent: "hi"},
		{line: "@carol:", wantReceiver: "", wantContent: "@carol:"},
		{line: "mail me @ home: later", wantReceiver: "", wantContent: "mail me @ home: later"},
	}

	for _, tt := range tests {
		receiver, content := parseLine(tt.line)
		if receiver != tt.wantReceiver || content != tt.wantContent {
			t.Errorf("parseLine(%q) = (%q, %q), want (%q, %q)", tt.line, receiver, content, tt.wantReceiver, tt.wantContent)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	if got := formatMessage(core.ChannelPublic, proto.ChatMessage{Type: "JOIN", Content: "bob joined the chat!"}); got != "* bob joined the chat!" {
		t.Errorf("join: %q", got)
	}
	if got := formatMessage(core.PrivateChannel("me"), proto.ChatMessage{Type: "CHAT", Sender: "bob", Content: "hi"}); got != "(private) bob: hi" {
		t.Errorf("private: %q", got)
	}
	if got := formatMessage(core.ChannelPublic, proto.ChatMessage{Type: "CHAT", Sender: "bob", Content: "hi"}); got != "bob: hi" {
		t.Errorf("public: %q", got)
	}
}
