package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEchoModel_Complete(t *testing.T) {
	m := &EchoModel{Delay: 5 * time.Millisecond}

	got, err := m.Complete(context.Background(), "hello", "chatgpt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "**You said:** hello" {
		t.Errorf("Complete() = %q, want echo reply", got)
	}
}

func TestEchoModel_CompleteCanceled(t *testing.T) {
	m := &EchoModel{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, "hello", "chatgpt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestModelFunc(t *testing.T) {
	var gotModel string
	f := ModelFunc(func(ctx context.Context, prompt, modelID string) (string, error) {
		gotModel = modelID
		return prompt + "!", nil
	})

	got, err := f.Complete(context.Background(), "hi", "qwen")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hi!" || gotModel != "qwen" {
		t.Errorf("Complete() = %q (model %q)", got, gotModel)
	}
}

func TestModelIDs(t *testing.T) {
	ids := ModelIDs(DefaultModels)
	want := []string{"chatgpt", "yandexgpt", "qwen", "gigachat"}
	if len(ids) != len(want) {
		t.Fatalf("ModelIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ModelIDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestMessagePending(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"empty assistant", Message{Role: RoleAssistant}, true},
		{"filled assistant", Message{Role: RoleAssistant, Content: "ok"}, false},
		{"empty user", Message{Role: RoleUser}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Pending(); got != tt.want {
				t.Errorf("Pending() = %v, want %v", got, tt.want)
			}
		})
	}
}
