package client

import (
	"strings"
	"testing"
	"time"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		ServerURL:     "http://localhost:8080",
		CommandPrefix: '/',
	}
}

// TestWebsocketURL verifies scheme translation and endpoint joining.
func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "http", in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "https", in: "https://chat.example", want: "wss://chat.example/ws"},
		{name: "trailing slash", in: "http://localhost:8080/", want: "ws://localhost:8080/ws"},
		{name: "already ws", in: "ws://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "unsupported scheme", in: "ftp://localhost", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := websocketURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("websocketURL(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("websocketURL(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("websocketURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestFormatChatMessage verifies sender naming, reply prefixes, and the
// display-name fallback chain.
func TestFormatChatMessage(t *testing.T) {
	app := &App{}
	sentAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	plain := protocol.ChatMessage{
		ID:             7,
		SenderID:       2,
		SenderUsername: "bob",
		Content:        "hello",
		SentAt:         sentAt,
	}
	line := app.formatChatMessage(plain)
	if !strings.Contains(line, "[#7]") || !strings.Contains(line, "bob: hello") {
		t.Fatalf("formatted line = %q", line)
	}

	named := plain
	named.SenderDisplayName = "Bob the Builder"
	if line := app.formatChatMessage(named); !strings.Contains(line, "Bob the Builder: hello") {
		t.Fatalf("display name ignored: %q", line)
	}

	anonymous := plain
	anonymous.SenderUsername = ""
	if line := app.formatChatMessage(anonymous); !strings.Contains(line, "user 2: hello") {
		t.Fatalf("fallback name missing: %q", line)
	}

	reply := plain
	reply.ID = 9
	reply.ReplyTo = &protocol.ReplyPreview{ID: 7, SenderUsername: "alice", Content: "hi"}
	line = app.formatChatMessage(reply)
	if !strings.Contains(line, "replying to #7 alice") {
		t.Fatalf("reply prefix missing: %q", line)
	}
}

// TestTabCompletion verifies prefix completion against the command
// catalog.
func TestTabCompletion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unique match gains space", input: "/reg", want: "/register "},
		{name: "ambiguous extends to common prefix", input: "/re", want: "/re"},
		{name: "no match unchanged", input: "/zzz", want: "/zzz"},
		{name: "plain text unchanged", input: "hello", want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewApp(testClientConfig()).(*App)
			app.input.SetValue(tt.input)
			app.input.CursorEnd()
			app.handleTabCompletion()
			if got := app.input.Value(); got != tt.want {
				t.Fatalf("completion of %q = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestWrapLines verifies width-aware wrapping prefers space boundaries.
func TestWrapLines(t *testing.T) {
	lines := wrapLines([]string{"alpha beta gamma", ""}, 10)
	want := []string{"alpha beta", "gamma", ""}
	if len(lines) != len(want) {
		t.Fatalf("wrapped = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("wrapped[%d] = %q, want %q", i, lines[i], want[i])
		}
	}

	unbroken := wrapLines([]string{"abcdefghijkl"}, 10)
	if len(unbroken) != 2 {
		t.Fatalf("unbroken wrap = %q", unbroken)
	}
}

// TestPipeHistoryBounded verifies the pipe view retains only the most
// recent frames.
func TestPipeHistoryBounded(t *testing.T) {
	app := NewApp(testClientConfig()).(*App)
	for i := 0; i < pipeHistoryLimit+5; i++ {
		frame, err := protocol.NewFrame("tick", nil)
		if err != nil {
			t.Fatalf("new frame: %v", err)
		}
		app.appendPipeEntry(pipeDirectionOut, frame)
	}
	if len(app.pipeHistory) != pipeHistoryLimit {
		t.Fatalf("pipe history = %d entries, want %d", len(app.pipeHistory), pipeHistoryLimit)
	}
}
