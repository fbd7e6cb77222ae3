// Package notify delivers user-visible notifications. The daemon has no
// window of its own, so messages go to the log and to a bounded history the
// dashboard and CLI can read back.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/ports"
)

// Entry is one delivered notification.
type Entry struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// LogNotifier writes notifications to a logger and keeps the most recent ones.
type LogNotifier struct {
	log   zerolog.Logger
	limit int

	mu      sync.Mutex
	history []Entry
}

var _ ports.Notifier = (*LogNotifier)(nil)

// New returns a notifier keeping up to limit entries.
func New(log zerolog.Logger, limit int) *LogNotifier {
	if limit < 1 {
		limit = 1
	}
	return &LogNotifier{
		log:   log.With().Str("component", "notify").Logger(),
		limit: limit,
	}
}

// Notify logs the message at info level and records it.
func (n *LogNotifier) Notify(title, message string) {
	n.log.Info().Str("title", title).Msg(message)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = append(n.history, Entry{Title: title, Message: message, At: time.Now()})
	if over := len(n.history) - n.limit; over > 0 {
		n.history = append(n.history[:0], n.history[over:]...)
	}
}

// Fanout delivers each notification to every notifier in order.
type Fanout []ports.Notifier

var _ ports.Notifier = Fanout(nil)

// Notify forwards the message.
func (f Fanout) Notify(title, message string) {
	for _, n := range f {
		n.Notify(title, message)
	}
}

// Recent returns delivered notifications, oldest first.
func (n *LogNotifier) Recent() []Entry {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Entry, len(n.history))
	copy(out, n.history)
	return out
}
