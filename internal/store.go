package internal

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"
)

// DefaultMaxNameLength matches the rename input limit of the chat sidebar
const DefaultMaxNameLength = 50

// EventKind names a store mutation
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventRenamed    EventKind = "renamed"
	EventDeleted    EventKind = "deleted"
	EventSelected   EventKind = "selected"
	EventDeselected EventKind = "deselected"
	EventReordered  EventKind = "reordered"
	EventAppended   EventKind = "appended"
)

// Event is delivered to subscribers after a mutation is committed.
// Active is the active session id as of Version.
type Event struct {
	Kind      EventKind
	SessionID string
	Active    string
	Version   uint64
}

// OpenResult describes how Open resolved a requested session id
type OpenResult int

const (
	// Opened means the requested session existed and is now active
	Opened OpenResult = iota
	// Redirected means the id was unknown and the most recent session was selected instead
	Redirected
	// Created means the store was empty and a new session was created and selected
	Created
)

type record struct {
	id        string
	name      string
	createdAt time.Time
	seq       uint64
	messages  []Message
}

type subscriber struct {
	id int
	fn func(Event)
}

// Store owns the ordered chat sessions and their transcripts.
// Every operation runs under one lock, so mutations never interleave.
type Store struct {
	mu       sync.Mutex
	sessions []*record
	active   string
	issued   map[string]struct{}
	seq      uint64
	version  uint64
	subs     []subscriber
	nextSub  int
	newID    func() string
	now      func() time.Time
	maxName  int
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithIDGenerator replaces the session id generator
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces the time source used for timestamps
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) { s.now = fn }
}

// WithMaxNameLength limits session names, in runes
func WithMaxNameLength(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxName = n
		}
	}
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		issued:  make(map[string]struct{}),
		newID:   shortuuid.New,
		now:     time.Now,
		maxName: DefaultMaxNameLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends a new empty session and returns its id. It does not select it.
func (s *Store) Create(initialName string) string {
	s.mu.Lock()
	rec := s.createLocked(initialName)
	notify := s.commitLocked(EventCreated, rec.id)
	s.mu.Unlock()

	notify()
	return rec.id
}

// Rename replaces a session's name with the trimmed newName
func (s *Store) Rename(id, newName string) error {
	name := strings.TrimSpace(newName)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if n := utf8.RuneCountInString(name); n > s.maxName {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("is %d characters, limit is %d", n, s.maxName)}
	}

	s.mu.Lock()
	rec := s.findLocked(id)
	if rec == nil {
		s.mu.Unlock()
		return sessionNotFound(id)
	}
	rec.name = name
	notify := s.commitLocked(EventRenamed, id)
	s.mu.Unlock()

	notify()
	return nil
}

// Delete removes a session. Deleting the active session clears the active pointer.
// Returns false if no session had that id.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.active == id {
		s.active = ""
	}
	notify := s.commitLocked(EventDeleted, id)
	s.mu.Unlock()

	notify()
	return true
}

// Select makes id the active session. Unknown ids leave the pointer unchanged.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return sessionNotFound(id)
	}
	if s.active == id {
		s.mu.Unlock()
		return nil
	}
	s.active = id
	notify := s.commitLocked(EventSelected, id)
	s.mu.Unlock()

	notify()
	return nil
}

// Deselect clears the active pointer
func (s *Store) Deselect() {
	s.mu.Lock()
	if s.active == "" {
		s.mu.Unlock()
		return
	}
	prev := s.active
	s.active = ""
	notify := s.commitLocked(EventDeselected, prev)
	s.mu.Unlock()

	notify()
}

// EnsureActive returns the active session id, creating and selecting a new
// session first when none is active.
func (s *Store) EnsureActive(name string) (string, bool) {
	s.mu.Lock()
	rec, created := s.ensureActiveLocked(name)
	var notes []func()
	if created {
		notes = s.commitCreatedLocked(rec.id)
	}
	s.mu.Unlock()

	for _, notify := range notes {
		notify()
	}
	return rec.id, created
}

// Open selects id if it exists. An unknown id selects the most recently
// created session instead, or creates one when the store is empty.
func (s *Store) Open(id string) (string, OpenResult) {
	s.mu.Lock()
	var notes []func()

	result := Opened
	target := s.findLocked(id)
	if target == nil {
		target = s.mostRecentLocked()
		result = Redirected
	}
	switch {
	case target == nil:
		// empty store, so nothing is active either
		target, _ = s.ensureActiveLocked("")
		notes = s.commitCreatedLocked(target.id)
		result = Created
	case s.active != target.id:
		s.active = target.id
		notes = append(notes, s.commitLocked(EventSelected, target.id))
	}
	s.mu.Unlock()

	for _, notify := range notes {
		notify()
	}
	return target.id, result
}

// Posted describes where Post put a message
type Posted struct {
	ID      string
	Created bool
	Index   int // position of the message in the transcript
}

// PostHook runs under the store lock once a post has a target, before the
// message is appended. An error aborts the post and leaves the store as it was.
type PostHook func(id string, index int) error

// Post appends msg to chatID, or when chatID is empty to the active session,
// creating and selecting one if none is active. Resolution and append happen
// atomically. Returns the target id and whether it was created.
func (s *Store) Post(chatID string, msg Message) (string, bool, error) {
	p, err := s.PostWith(chatID, msg, nil)
	return p.ID, p.Created, err
}

// PostWith is Post with a hook that sees the target and index before the
// append. Posts to one session run their hooks in append order.
func (s *Store) PostWith(chatID string, msg Message, hook PostHook) (Posted, error) {
	s.mu.Lock()

	var rec *record
	created := false
	if chatID != "" {
		rec = s.findLocked(chatID)
		if rec == nil {
			s.mu.Unlock()
			return Posted{}, sessionNotFound(chatID)
		}
	} else {
		rec, created = s.ensureActiveLocked("")
	}

	index := len(rec.messages)
	if hook != nil {
		if err := hook(rec.id, index); err != nil {
			if created {
				s.discardLocked(rec)
			}
			s.mu.Unlock()
			return Posted{}, err
		}
	}

	var notes []func()
	if created {
		notes = s.commitCreatedLocked(rec.id)
	}
	rec.messages = append(rec.messages, s.stampLocked(msg))
	notes = append(notes, s.commitLocked(EventAppended, rec.id))
	s.mu.Unlock()

	for _, notify := range notes {
		notify()
	}
	return Posted{ID: rec.id, Created: created, Index: index}, nil
}

// Append adds msg to the end of the session's transcript.
// Returns false without error if the session no longer exists.
func (s *Store) Append(id string, msg Message) bool {
	s.mu.Lock()
	rec := s.findLocked(id)
	if rec == nil {
		s.mu.Unlock()
		return false
	}
	rec.messages = append(rec.messages, s.stampLocked(msg))
	notify := s.commitLocked(EventAppended, id)
	s.mu.Unlock()

	notify()
	return true
}

// Reorder moves the session at from to position to
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	moved, err := Move(s.sessions, from, to)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}
	s.sessions = moved
	notify := s.commitLocked(EventReordered, moved[to].id)
	s.mu.Unlock()

	notify()
	return nil
}

// Messages returns a copy of the session's transcript, empty if the id is absent
func (s *Store) Messages(id string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyMessages(s.findLocked(id))
}

// CurrentMessages returns the active session's transcript, empty if none is active
func (s *Store) CurrentMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyMessages(s.findLocked(s.active))
}

// Active returns the active session id, or "" if none
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Has reports whether a session with this id exists
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id) != nil
}

// Len returns the number of sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// MostRecent returns the id of the most recently created session, or ""
func (s *Store) MostRecent() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.mostRecentLocked(); rec != nil {
		return rec.id
	}
	return ""
}

// Session returns a copy of one session with its transcript
func (s *Store) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findLocked(id)
	if rec == nil {
		return nil, false
	}
	return &Session{
		ID:        rec.id,
		Name:      rec.name,
		CreatedAt: rec.createdAt.Format(time.RFC3339),
		Messages:  copyMessages(rec),
	}, true
}

// Sessions returns summaries in list order
func (s *Store) Sessions() []SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summariesLocked("")
}

// Search returns summaries whose name contains term, case-insensitively.
// The result is a view; reorder indices always refer to Sessions().
func (s *Store) Search(term string) []SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summariesLocked(strings.ToLower(strings.TrimSpace(term)))
}

// View returns a consistent snapshot of everything presentation needs
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		Sessions: s.summariesLocked(""),
		ActiveID: s.active,
		Path:     PathFor(s.active),
		Messages: copyMessages(s.findLocked(s.active)),
	}
}

// Subscribe registers fn for events after each committed mutation.
// fn runs on the mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// state returns the active id and the version it belongs to
func (s *Store) state() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.version
}

func (s *Store) createLocked(initialName string) *record {
	name := strings.TrimSpace(initialName)
	if name == "" {
		name = fmt.Sprintf("New chat %d", len(s.sessions)+1)
	}
	if utf8.RuneCountInString(name) > s.maxName {
		name = string([]rune(name)[:s.maxName])
	}

	id := s.newID()
	for {
		if _, taken := s.issued[id]; id != "" && !taken {
			break
		}
		id = s.newID()
	}
	s.issued[id] = struct{}{}

	s.seq++
	rec := &record{
		id:        id,
		name:      name,
		createdAt: s.now(),
		seq:       s.seq,
		messages:  []Message{},
	}
	s.sessions = append(s.sessions, rec)
	return rec
}

// ensureActiveLocked returns the active record, creating and selecting one
// when none is active. Nothing is committed; see commitCreatedLocked.
func (s *Store) ensureActiveLocked(name string) (*record, bool) {
	if s.active != "" {
		if rec := s.findLocked(s.active); rec != nil {
			return rec, false
		}
	}
	rec := s.createLocked(name)
	s.active = rec.id
	return rec, true
}

func (s *Store) commitCreatedLocked(id string) []func() {
	return []func(){
		s.commitLocked(EventCreated, id),
		s.commitLocked(EventSelected, id),
	}
}

// discardLocked undoes an uncommitted ensureActiveLocked. The id stays issued.
func (s *Store) discardLocked(rec *record) {
	if n := len(s.sessions); n > 0 && s.sessions[n-1] == rec {
		s.sessions = s.sessions[:n-1]
	}
	if s.active == rec.id {
		s.active = ""
	}
}

func (s *Store) commitLocked(kind EventKind, id string) func() {
	s.version++
	ev := Event{Kind: kind, SessionID: id, Active: s.active, Version: s.version}

	subs := make([]func(Event), len(s.subs))
	for i, sub := range s.subs {
		subs[i] = sub.fn
	}
	return func() {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func (s *Store) stampLocked(msg Message) Message {
	if msg.Timestamp == "" {
		msg.Timestamp = s.now().Format(time.RFC3339)
	}
	return msg
}

func (s *Store) findLocked(id string) *record {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.sessions[idx]
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, rec := range s.sessions {
		if rec.id == id {
			return i
		}
	}
	return -1
}

func (s *Store) mostRecentLocked() *record {
	var latest *record
	for _, rec := range s.sessions {
		if latest == nil || rec.seq > latest.seq {
			latest = rec
		}
	}
	return latest
}

func (s *Store) summariesLocked(filter string) []SessionSummary {
	out := make([]SessionSummary, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if filter != "" && !strings.Contains(strings.ToLower(rec.name), filter) {
			continue
		}
		out = append(out, SessionSummary{
			ID:           rec.id,
			Name:         rec.name,
			CreatedAt:    rec.createdAt.Format(time.RFC3339),
			MessageCount: len(rec.messages),
			Active:       rec.id == s.active,
		})
	}
	return out
}

func copyMessages(rec *record) []Message {
	if rec == nil {
		return []Message{}
	}
	out := make([]Message, len(rec.messages))
	copy(out, rec.messages)
	return out
}
