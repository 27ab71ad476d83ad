package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// DefaultMaxMessageLength is the composer limit in characters
const DefaultMaxMessageLength = 4000

// DispatcherConfig configures message validation and reply handling
type DispatcherConfig struct {
	MaxLength    int           // characters; DefaultMaxMessageLength if zero
	ReplyTimeout time.Duration // per model call; no limit if zero
	DefaultModel string        // used when Send gets no model id
	Models       []string      // accepted model ids; any id if empty
}

// Receipt tells the caller where a sent message landed
type Receipt struct {
	SessionID string `json:"chat_id"`
	Created   bool   `json:"created"`
	Path      string `json:"path"`
	Index     int    `json:"index"` // transcript position of the user message
}

// Dispatcher appends user messages and schedules the assistant replies
type Dispatcher struct {
	store   *Store
	model   ModelClient
	cfg     DispatcherConfig
	allowed map[string]struct{}
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	tails   map[string]chan struct{}
	pending atomic.Int64
}

// NewDispatcher creates a dispatcher that writes into store
func NewDispatcher(store *Store, model ModelClient, cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxMessageLength
	}
	allowed := make(map[string]struct{}, len(cfg.Models))
	for _, id := range cfg.Models {
		allowed[id] = struct{}{}
	}
	if cfg.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.DefaultModel = cfg.Models[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		store:   store,
		model:   model,
		cfg:     cfg,
		allowed: allowed,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		tails:   make(map[string]chan struct{}),
	}
}

// Send validates text, appends it as a user message and schedules the reply.
// With no chatID the active session is used, and one is created when none is active.
func (d *Dispatcher) Send(ctx context.Context, text, modelID, chatID string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Receipt{}, &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(text); n > d.cfg.MaxLength {
		return Receipt{}, &ValidationError{Field: "text", Reason: fmt.Sprintf("is %d characters, limit is %d", n, d.cfg.MaxLength)}
	}
	model, err := d.resolveModel(modelID)
	if err != nil {
		return Receipt{}, err
	}

	// the reply slot is claimed under the store lock, in append order
	var slot replySlot
	posted, err := d.store.PostWith(chatID, Message{
		Role:      RoleUser,
		Content:   text,
		Model:     model,
		Timestamp: d.now().Format(time.RFC3339),
	}, func(id string, _ int) error {
		var claimErr error
		slot, claimErr = d.claim(id)
		return claimErr
	})
	if err != nil {
		return Receipt{}, err
	}
	if posted.Created {
		LogDebug("Created session %s for first message", posted.ID)
	}

	d.schedule(posted.ID, text, model, slot)
	return Receipt{
		SessionID: posted.ID,
		Created:   posted.Created,
		Path:      PathFor(posted.ID),
		Index:     posted.Index,
	}, nil
}

// Pending returns the number of replies still in flight
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// Wait blocks until every scheduled reply has been appended or dropped
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight replies and waits for their goroutines
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) resolveModel(modelID string) (string, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return d.cfg.DefaultModel, nil
	}
	if len(d.allowed) > 0 {
		if _, ok := d.allowed[modelID]; !ok {
			return "", &ValidationError{Field: "model", Reason: fmt.Sprintf("unknown model %q", modelID)}
		}
	}
	return modelID, nil
}

// replySlot is a place in a session's reply chain. The reply waits for prev
// and closes done once it is appended or dropped.
type replySlot struct {
	prev <-chan struct{}
	done chan struct{}
}

// claim joins the reply chain of sessionID. It fails once the dispatcher is closed.
func (d *Dispatcher) claim(sessionID string) (replySlot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return replySlot{}, ErrDispatcherClosed
	}
	slot := replySlot{prev: d.tails[sessionID], done: make(chan struct{})}
	d.tails[sessionID] = slot.done
	d.wg.Add(1)
	d.pending.Add(1)
	return slot, nil
}

// schedule starts the deferred reply for a claimed slot. Replies to one
// session are appended in claim order.
func (d *Dispatcher) schedule(sessionID, prompt, model string, slot replySlot) {
	go func() {
		defer d.wg.Done()
		defer d.pending.Add(-1)
		defer d.release(sessionID, slot.done)

		reply := d.complete(prompt, model)

		if slot.prev != nil {
			select {
			case <-slot.prev:
			case <-d.ctx.Done():
			}
		}
		if d.ctx.Err() != nil {
			LogDebug("Dispatcher closed, dropping reply for session %s", sessionID)
			return
		}
		// looked up by id now, not when scheduled
		if !d.store.Append(sessionID, reply) {
			LogDebug("Session %s was deleted, dropping reply", sessionID)
		}
	}()
}

func (d *Dispatcher) release(sessionID string, done chan struct{}) {
	close(done)
	d.mu.Lock()
	if d.tails[sessionID] == done {
		delete(d.tails, sessionID)
	}
	d.mu.Unlock()
}

// complete calls the model and converts any failure into an error-marked reply
func (d *Dispatcher) complete(prompt, model string) Message {
	ctx, cancel := d.ctx, context.CancelFunc(func() {})
	if d.cfg.ReplyTimeout > 0 {
		ctx, cancel = context.WithTimeout(d.ctx, d.cfg.ReplyTimeout)
	}
	defer cancel()

	msg := Message{Role: RoleAssistant, Model: model}
	text, err := d.model.Complete(ctx, prompt, model)
	switch {
	case err == nil:
		msg.Content = text
	case errors.Is(err, context.DeadlineExceeded):
		merr := &ModelError{Model: model, Err: err}
		LogWarn("%v", merr)
		msg.Content = fmt.Sprintf("Error: %s did not reply within %s", model, d.cfg.ReplyTimeout)
		msg.Error = true
	default:
		merr := &ModelError{Model: model, Err: err}
		LogWarn("%v", merr)
		msg.Content = fmt.Sprintf("Error: %s failed to reply: %v", model, err)
		msg.Error = true
	}
	msg.Timestamp = d.now().Format(time.RFC3339)
	return msg
}
