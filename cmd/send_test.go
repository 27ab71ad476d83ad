package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/client"
)

func TestSendCommand(t *testing.T) {
	store, dispatcher, url := startTestServer(t)

	out, err := execute(t, "--server", url, "send", "hello", "there")
	if err != nil {
		t.Fatalf("send error = %v", err)
	}
	if !strings.Contains(out, "Started a new chat") {
		t.Errorf("send into an empty store should report the new chat:\n%s", out)
	}
	dispatcher.Wait()

	id := store.Active()
	if id == "" || !strings.Contains(out, internal.PathFor(id)) {
		t.Fatalf("output %q does not name the active chat %q", out, id)
	}
	msgs := store.Messages(id)
	if len(msgs) != 2 || msgs[0].Content != "hello there" {
		t.Errorf("Messages() = %+v", msgs)
	}
}

func TestSendCommand_Wait(t *testing.T) {
	_, _, url := startTestServer(t)

	out, err := execute(t, "--server", url, "send", "--wait", "--model", "qwen", "ping")
	if err != nil {
		t.Fatalf("send --wait error = %v", err)
	}
	if !strings.Contains(out, internal.EchoReply("ping")) {
		t.Errorf("output missing the reply:\n%s", out)
	}
	if !strings.Contains(out, "Assistant (qwen)") {
		t.Errorf("reply should come from the requested model:\n%s", out)
	}
}

func TestSendCommand_Errors(t *testing.T) {
	store, _, url := startTestServer(t)
	store.Create("Only")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"blank text", []string{"send", "   "}, "validation_failed"},
		{"unknown model", []string{"send", "--model", "gpt-17", "hi"}, "validation_failed"},
		{"unknown chat", []string{"send", "--chat", "missing", "hi"}, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--server", url}, tt.args...)...)
			var apiErr *client.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("send error = %v, want APIError", err)
			}
			if apiErr.Code != tt.code {
				t.Errorf("APIError.Code = %q, want %q", apiErr.Code, tt.code)
			}
		})
	}
	if got := len(store.Messages(store.MostRecent())); got != 0 {
		t.Errorf("rejected sends left %d messages", got)
	}
}

func TestWaitForReply_Timeout(t *testing.T) {
	store, _, url := startTestServer(t)
	id := store.Create("Quiet")
	store.Append(id, internal.Message{Role: internal.RoleUser, Content: "anyone?"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := waitForReply(ctx, client.New(url), id, 0, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waitForReply() error = %v, want deadline exceeded", err)
	}
}

func TestWaitForReply_SkipsOtherReplies(t *testing.T) {
	store, _, url := startTestServer(t)
	id := store.Create("Shared")
	store.Append(id, internal.Message{Role: internal.RoleUser, Content: "theirs"})
	store.Append(id, internal.Message{Role: internal.RoleUser, Content: "mine"})
	store.Append(id, internal.Message{Role: internal.RoleAssistant, Content: "for theirs"})

	c := client.New(url)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := waitForReply(ctx, c, id, 1, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("waitForReply() error = %v, want deadline exceeded", err)
	}

	store.Append(id, internal.Message{Role: internal.RoleAssistant, Content: "for mine"})
	session, err := waitForReply(context.Background(), c, id, 1, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("waitForReply() error = %v", err)
	}
	if at, _ := replyTo(session.Messages, 1); session.Messages[at].Content != "for mine" {
		t.Errorf("reply = %q, want %q", session.Messages[at].Content, "for mine")
	}
}

func TestReplyTo(t *testing.T) {
	user := func(s string) internal.Message { return internal.Message{Role: internal.RoleUser, Content: s} }
	bot := func(s string) internal.Message { return internal.Message{Role: internal.RoleAssistant, Content: s} }

	tests := []struct {
		name   string
		msgs   []internal.Message
		index  int
		wantAt int
		wantOK bool
	}{
		{"answered", []internal.Message{user("a"), bot("ra")}, 0, 1, true},
		{"not yet", []internal.Message{user("a")}, 0, 0, false},
		{"earlier exchange", []internal.Message{user("a"), bot("ra"), user("b"), bot("rb")}, 2, 3, true},
		{"queued behind another", []internal.Message{user("a"), user("b"), bot("ra")}, 1, 0, false},
		{"queued then answered", []internal.Message{user("a"), user("b"), bot("ra"), user("c"), bot("rb")}, 1, 4, true},
		{"pending reply", []internal.Message{user("a"), bot("")}, 0, 1, false},
		{"not a user message", []internal.Message{user("a"), bot("ra")}, 1, 0, false},
		{"out of range", []internal.Message{user("a")}, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, ok := replyTo(tt.msgs, tt.index)
			if at != tt.wantAt || ok != tt.wantOK {
				t.Errorf("replyTo() = %d, %v, want %d, %v", at, ok, tt.wantAt, tt.wantOK)
			}
		})
	}
}
