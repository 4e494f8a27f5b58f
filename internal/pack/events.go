package pack

import "sync"

// Event is a plugin lifecycle notification type.
type Event int

const (
	// EventBeforeInstall fires before a plugin is cloned.
	EventBeforeInstall Event = iota
	// EventAfterInstall fires after a plugin is installed and checked out.
	EventAfterInstall
	// EventBeforeUpdate fires before a plugin's working tree is moved.
	EventBeforeUpdate
	// EventAfterUpdate fires after a plugin is checked out to a new commit.
	EventAfterUpdate
)

// String returns a string representation of the event type.
func (e Event) String() string {
	switch e {
	case EventBeforeInstall:
		return "before-install"
	case EventAfterInstall:
		return "after-install"
	case EventBeforeUpdate:
		return "before-update"
	case EventAfterUpdate:
		return "after-update"
	default:
		return "unknown"
	}
}

// EventPayload carries the plugin identity to lifecycle listeners.
// External hooks use it to run dependency installers or build steps.
type EventPayload struct {
	// Path is the plugin directory.
	Path string

	// Source is the plugin origin URI.
	Source string

	// Name is the plugin identifier.
	Name string
}

// Listener handles lifecycle events. Listeners are invoked synchronously
// in subscription order and must not call back into the Manager.
type Listener func(event Event, payload EventPayload)

// listeners is a small synchronous observer list.
// Panics in listeners are recovered so a misbehaving hook cannot abort a
// pipeline run.
type listeners struct {
	mu   sync.RWMutex
	list []Listener
}

// subscribe adds a listener and returns an unsubscribe function.
func (l *listeners) subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	l.list = append(l.list, fn)
	index := len(l.list) - 1
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if index < len(l.list) {
			l.list[index] = nil
		}
	}
}

// fire delivers an event to all listeners.
func (l *listeners) fire(event Event, payload EventPayload) {
	l.mu.RLock()
	snapshot := make([]Listener, len(l.list))
	copy(snapshot, l.list)
	l.mu.RUnlock()

	for _, fn := range snapshot {
		if fn == nil {
			continue
		}
		func() {
			defer func() {
				recover()
			}()
			fn(event, payload)
		}()
	}
}
