package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) *Session {
	now := time.Now().Format(time.RFC3339)
	return &Session{
		ID:        id,
		Name:      "Test Conversation",
		CreatedAt: now,
		Messages: []Message{
			{
				Role:      RoleUser,
				Content:   "Hello, how are you?",
				Model:     "chatgpt",
				Timestamp: now,
			},
			{
				Role:      RoleAssistant,
				Content:   "I'm doing well, thank you!",
				Model:     "chatgpt",
				Timestamp: now,
			},
		},
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	return &Session{
		ID:        id,
		Name:      "Test Conversation",
		CreatedAt: time.Now().Format(time.RFC3339),
		Messages:  messages,
	}
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// NewTestStore creates a store with predictable ids and a fixed clock
func NewTestStore() *Store {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewStore(
		WithIDGenerator(SequentialIDs("s")),
		WithClock(func() time.Time { return fixed }),
	)
}

// GatedModel is a ModelClient whose replies are released by the test.
// Each call blocks until Release is called for its prompt.
type GatedModel struct {
	mu    sync.Mutex
	gates map[string]chan error
	calls chan string
}

// NewGatedModel creates a GatedModel
func NewGatedModel() *GatedModel {
	return &GatedModel{
		gates: make(map[string]chan error),
		calls: make(chan string, 64),
	}
}

func (m *GatedModel) gate(prompt string) chan error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.gates[prompt]
	if !ok {
		ch = make(chan error, 1)
		m.gates[prompt] = ch
	}
	return ch
}

// Complete blocks until the prompt is released, then echoes it or returns the release error
func (m *GatedModel) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	gate := m.gate(prompt)
	m.calls <- prompt
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-gate:
		if err != nil {
			return "", err
		}
		return EchoReply(prompt), nil
	}
}

// Release lets the call for prompt finish with err (nil for a normal reply)
func (m *GatedModel) Release(prompt string, err error) {
	m.gate(prompt) <- err
}

// Called waits for the next model call and returns its prompt
func (m *GatedModel) Called(timeout time.Duration) (string, bool) {
	select {
	case p := <-m.calls:
		return p, true
	case <-time.After(timeout):
		return "", false
	}
}
