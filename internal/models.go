package internal

import (
	"context"
	"fmt"
	"time"
)

// ModelInfo describes a selectable model
type ModelInfo struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
}

// DefaultModels is the model selector offered when no catalogue is configured
var DefaultModels = []ModelInfo{
	{ID: "chatgpt", Label: "ChatGPT"},
	{ID: "yandexgpt", Label: "YandexGPT"},
	{ID: "qwen", Label: "Qwen"},
	{ID: "gigachat", Label: "GigaChat"},
}

// ModelClient produces an assistant reply for a prompt
type ModelClient interface {
	Complete(ctx context.Context, prompt, modelID string) (string, error)
}

// ModelFunc adapts a function to ModelClient
type ModelFunc func(ctx context.Context, prompt, modelID string) (string, error)

// Complete calls f
func (f ModelFunc) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	return f(ctx, prompt, modelID)
}

// EchoModel is the stand-in backend: it answers with the prompt after a fixed delay
type EchoModel struct {
	Delay time.Duration
}

// Complete waits Delay and echoes the prompt
func (m *EchoModel) Complete(ctx context.Context, prompt, modelID string) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return EchoReply(prompt), nil
}

// EchoReply is the reply text EchoModel produces for prompt
func EchoReply(prompt string) string {
	return fmt.Sprintf("**You said:** %s", prompt)
}

// ModelIDs returns the ids of models in order
func ModelIDs(models []ModelInfo) []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}
