// Package notify delivers user-facing notifications.
//
// Notifications are fire-and-forget: a Notifier never reports failure to its
// caller. Sinks that can fail (network publishers) log and move on.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Color is the notification tone.
type Color string

const (
	Positive Color = "positive"
	Negative Color = "negative"
)

// Position is where a UI should place the notification.
type Position string

const Top Position = "top"

// Default display durations.
const (
	PositiveTimeout = 3 * time.Second
	NegativeTimeout = 5 * time.Second
)

// Notification is a single user-facing message.
type Notification struct {
	Message  string        `json:"message"`
	Color    Color         `json:"color"`
	Position Position      `json:"position"`
	Timeout  time.Duration `json:"timeout"`
}

// Success builds a positive notification with the default placement and timeout.
func Success(message string) Notification {
	return Notification{Message: message, Color: Positive, Position: Top, Timeout: PositiveTimeout}
}

// Failure builds a negative notification with the default placement and timeout.
func Failure(message string) Notification {
	return Notification{Message: message, Color: Negative, Position: Top, Timeout: NegativeTimeout}
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Multi delivers each notification to every notifier, in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Writer prints notifications to a terminal: positive messages to out,
// negative ones to errOut prefixed with "error: ".
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

// NewWriter creates a Writer. When quiet is set, positive messages are dropped.
func NewWriter(out, errOut io.Writer, quiet bool) *Writer {
	return &Writer{out: out, errOut: errOut, quiet: quiet}
}

func (w *Writer) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n.Color == Negative {
		fmt.Fprintf(w.errOut, "error: %s\n", n.Message)
		return
	}
	if !w.quiet {
		fmt.Fprintln(w.out, n.Message)
	}
}
