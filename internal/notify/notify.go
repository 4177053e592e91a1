// Package notify delivers user-facing notifications, the client's equivalent of toasts.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message shown to the user
type Notification struct {
	Level   Level
	Title   string
	Message string
	// Field names the input a validation message belongs to, if any
	Field string
}

// Notifier shows notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Nop drops every notification
var Nop Notifier = NotifierFunc(func(Notification) {})

// Terminal renders notifications with pterm prefix printers
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal returns a terminal notifier writing to w (stderr when nil)
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{w: w}
}

// Notify prints the notification on one line
func (t *Terminal) Notify(n Notification) {
	text := n.Message
	if n.Field != "" {
		text = fmt.Sprintf("%s: %s", n.Field, n.Message)
	}
	if n.Title != "" {
		text = fmt.Sprintf("%s - %s", n.Title, text)
	}

	var line string
	switch n.Level {
	case LevelSuccess:
		line = pterm.Success.Sprint(text)
	case LevelWarning:
		line = pterm.Warning.Sprint(text)
	case LevelError:
		line = pterm.Error.Sprint(text)
	default:
		line = pterm.Info.Sprint(text)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, line)
}

// Recorder keeps every notification it receives
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records n
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the recorded notifications in arrival order
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of recorded notifications
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
