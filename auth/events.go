package auth

import "sync"

// Event names for credential lifecycle notifications.
type Event string

const (
	// EventLogin fires when credentials are first set.
	EventLogin Event = "login"
	// EventRefreshed fires after a successful token refresh.
	EventRefreshed Event = "refreshed"
	// EventExpired fires when credentials become unusable: a refresh failed
	// or a 401 arrived with no refresh token available.
	EventExpired Event = "expired"
	// EventLogout fires when credentials are cleared explicitly.
	EventLogout Event = "logout"
)

// Listener receives lifecycle notifications. The credentials argument is nil
// for EventExpired and EventLogout.
type Listener func(creds *Credentials)

type listenerEntry struct {
	id uint64
	fn Listener
}

// events is an ordered listener registry per event name. Listeners run
// synchronously in registration order; removal handles follow the same
// contract as interceptor removal (identity match, repeat calls are no-ops).
type events struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Event][]listenerEntry
}

func newEvents() *events {
	return &events{listeners: make(map[Event][]listenerEntry)}
}

func (e *events) on(event Event, fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		entries := e.listeners[event]
		for idx, entry := range entries {
			if entry.id == id {
				e.listeners[event] = append(entries[:idx], entries[idx+1:]...)
				return
			}
		}
	}
}

func (e *events) emit(event Event, creds *Credentials) {
	e.mu.Lock()
	entries := make([]listenerEntry, len(e.listeners[event]))
	copy(entries, e.listeners[event])
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(creds)
	}
}
