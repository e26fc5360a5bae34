// Package hotkey provides global key bindings using gohook. Each binding
// emits its action on a channel when the key combo is pressed.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// Binding maps a key combo to an action name.
type Binding struct {
	Keys   []string
	Action string
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Action string
}

// Listener manages global hotkeys and emits action events.
type Listener struct {
	bindings []Binding
	ch       chan Event
	done     chan struct{}
	once     sync.Once
}

// NewListener creates a Listener for bindings.
// Keys should be lowercase key names (e.g., ["ctrl", "alt", "l"]).
func NewListener(bindings []Binding) *Listener {
	return &Listener{
		bindings: bindings,
		ch:       make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	for _, b := range l.bindings {
		hook.Register(hook.KeyDown, b.Keys, func(hook.Event) {
			l.emit(b.Action)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit sends without blocking; presses are dropped while the channel is full.
func (l *Listener) emit(action string) {
	select {
	case l.ch <- Event{Action: action}:
	default:
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
