package ports

// =============================================================================
// Tab Lifecycle Port
//
// The host reports what happened to its tabs; the daemon decides what that
// means for activity. Adapters (CDP, the extension bridge over the socket)
// translate host-specific notifications into TabEvents.
// =============================================================================

// EventSource is the port for consuming host lifecycle events.
type EventSource interface {
	// Start begins delivering events to callback. The callback may be
	// invoked from any goroutine. Call Stop() to terminate.
	Start(callback func(TabEvent)) error

	// Stop terminates delivery and releases resources.
	// Safe to call multiple times. Blocks until cleanup completes.
	Stop()
}

// EventKind classifies a TabEvent. Values are the wire names used by the
// extension bridge.
type EventKind string

const (
	// EventInstalled fires once when the extension is installed or updated.
	EventInstalled EventKind = "installed"

	// EventStartup fires when the browser starts with the extension loaded.
	EventStartup EventKind = "startup"

	// EventActivated fires when the user focuses a tab.
	EventActivated EventKind = "activated"

	// EventCreated fires when a tab is opened. Tab carries the snapshot.
	EventCreated EventKind = "created"

	// EventUpdated fires on any tab property change. Change describes what
	// changed; Tab carries the snapshot after the change.
	EventUpdated EventKind = "updated"

	// EventRemoved fires after a tab closed.
	EventRemoved EventKind = "removed"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventInstalled, EventStartup, EventActivated, EventCreated, EventUpdated, EventRemoved:
		return true
	}
	return false
}

// TabChange describes which properties changed in an EventUpdated.
type TabChange struct {
	// URL is set only when the tab's URL changed (navigation or redirect).
	// A reload leaves it empty.
	URL string `json:"url,omitempty"`

	// Status is "loading" or "complete" when the load state changed.
	Status string `json:"status,omitempty"`
}

// StatusComplete is the TabChange.Status value reported when a load finishes.
const StatusComplete = "complete"

// TabEvent is one host lifecycle notification. Events carry no timestamp;
// activity is stamped with the daemon clock when the event is handled.
type TabEvent struct {
	Kind   EventKind  `json:"kind"`
	TabID  int        `json:"tabId,omitempty"`
	Change *TabChange `json:"change,omitempty"`
	Tab    *Tab       `json:"tab,omitempty"`
}
