package ports

import (
	"context"
	"errors"
)

// TabIDNone is the sentinel tab identifier the host uses for windows that are
// not tabs (devtools, popups). Tabs carrying it are never tracked.
const TabIDNone = -1

// ErrTabNotFound is returned by TabDirectory lookups when the tab closed
// between enumeration and access.
var ErrTabNotFound = errors.New("tab not found")

// Tab is a snapshot of one open browser tab. The host assigns IDs per browser
// session; the same page gets a different ID after a restart.
type Tab struct {
	ID         int    `json:"id"`
	URL        string `json:"url,omitempty"`
	PendingURL string `json:"pendingUrl,omitempty"` // in-flight navigation target
	Title      string `json:"title,omitempty"`
	FaviconURL string `json:"favIconUrl,omitempty"`
}

// EffectiveURL returns the committed URL, or the pending URL while the tab is
// still loading. Empty when neither is known yet.
func (t Tab) EffectiveURL() string {
	if t.URL != "" {
		return t.URL
	}
	return t.PendingURL
}

// CreateOptions describes a tab to open.
type CreateOptions struct {
	URL    string
	Active bool // false opens the tab in the background
}

// TabDirectory is the host's tab subsystem. Every call may block on the
// browser and may fail transiently; callers treat a failure on one tab as
// "nothing to do" for that tab.
type TabDirectory interface {
	// Query enumerates all open tabs across all windows.
	Query(ctx context.Context) ([]Tab, error)

	// Get fetches a single tab. Returns ErrTabNotFound if it is gone.
	Get(ctx context.Context, id int) (Tab, error)

	// Create opens a new tab and returns its snapshot.
	Create(ctx context.Context, opts CreateOptions) (Tab, error)

	// Remove closes a tab.
	Remove(ctx context.Context, id int) error

	// Activate focuses a tab in its window.
	Activate(ctx context.Context, id int) error
}

// Notifier shows a user-visible message. Fire-and-forget: implementations
// swallow their own failures.
type Notifier interface {
	Notify(title, message string)
}
