package internal

import (
	"net/url"
	"strings"
	"sync"
)

// ChatPathPrefix is the deep-link prefix for a session
const ChatPathPrefix = "/chat/"

// PathFor returns the deep link for a session id, or "/" for no session
func PathFor(id string) string {
	if id == "" {
		return "/"
	}
	return ChatPathPrefix + url.PathEscape(id)
}

// ParsePath extracts the session id from a deep link.
// "/" and "/chat" yield an empty id.
func ParsePath(path string) (string, error) {
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" || trimmed == "/chat" {
		return "", nil
	}
	if !strings.HasPrefix(trimmed, ChatPathPrefix) {
		return "", &ValidationError{Field: "path", Reason: "expected /chat/{id}, got " + path}
	}

	raw := trimmed[len(ChatPathPrefix):]
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" || strings.Contains(id, "/") {
		return "", &ValidationError{Field: "path", Reason: "malformed session id in " + path}
	}
	return id, nil
}

// Router keeps the deep-link path in step with the store's active session.
// The store is authoritative; the path is derived from its events.
type Router struct {
	store  *Store
	cancel func()

	mu        sync.Mutex
	path      string
	version   uint64
	listeners []func(string)
}

// NewRouter binds a router to store
func NewRouter(store *Store) *Router {
	r := &Router{store: store}
	active, version := store.state()
	r.path = PathFor(active)
	r.version = version
	r.cancel = store.Subscribe(r.onEvent)
	return r
}

// Navigate applies a URL to the store and returns the path the store settled on.
// A known id is selected. An unknown id redirects to the most recently created
// session, or creates one when the store is empty. "/" deselects.
func (r *Router) Navigate(path string) (string, error) {
	id, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	if id == "" {
		r.store.Deselect()
		return "/", nil
	}

	resolved, result := r.store.Open(id)
	switch result {
	case Redirected:
		LogInfo("Unknown session %s, redirecting to %s", id, resolved)
	case Created:
		LogInfo("Unknown session %s on empty store, created %s", id, resolved)
	}
	return PathFor(resolved), nil
}

// Path returns the current deep link
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// OnChange registers fn to be called with each new path
func (r *Router) OnChange(fn func(path string)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, fn)
	idx := len(r.listeners) - 1
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.listeners[idx] = nil
	}
}

// Close detaches the router from the store
func (r *Router) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Router) onEvent(ev Event) {
	r.mu.Lock()
	if ev.Version <= r.version {
		r.mu.Unlock()
		return
	}
	r.version = ev.Version

	next := PathFor(ev.Active)
	if next == r.path {
		r.mu.Unlock()
		return
	}
	r.path = next
	listeners := make([]func(string), 0, len(r.listeners))
	for _, fn := range r.listeners {
		if fn != nil {
			listeners = append(listeners, fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}
