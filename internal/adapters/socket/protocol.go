// Package socket implements a JSON-over-Unix-socket protocol for the idletab
// daemon. The protocol uses newline-delimited JSON: each message is one JSON
// object + \n. The CLI and the browser-extension bridge are the clients.
package socket

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/corey/idletab/internal/domain/activity"
)

// SocketPath returns the Unix socket path for a given data directory.
// Format: /tmp/idletab-{first12hex}.sock
func SocketPath(dataDir string) string {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		abs = dataDir
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/idletab-%x.sock", h[:6])
}

// Method names for the protocol. The first six match the message actions the
// settings UI sends.
const (
	MethodGetTabStats   = "getTabStats"
	MethodForceCleanup  = "forceCleanup"
	MethodGetSettings   = "getSettings"
	MethodSaveSettings  = "saveSettings"
	MethodStartTestMode = "startTestMode"
	MethodSyncTimers    = "syncTimers"
	MethodFocusTab      = "focusTab"
	MethodTabEvent      = "tabEvent"
	MethodHealth        = "health"
	MethodShutdown      = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// SuccessResult acknowledges a command. Error is set only when Success is
// false and the failure is the user's to fix (e.g. invalid settings).
type SuccessResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CleanupResult is the result of a forceCleanup request.
type CleanupResult struct {
	Success    bool  `json:"success"`
	Closed     int   `json:"closed"`
	Candidates int   `json:"candidates"`
	Disabled   bool  `json:"disabled,omitempty"`
	Failed     []int `json:"failed,omitempty"`
}

// TestModeResult is the result of a startTestMode request.
type TestModeResult struct {
	Success bool   `json:"success"`
	Created int    `json:"created"`
	Error   string `json:"error,omitempty"`
}

// FocusParams is the params for a focusTab request.
type FocusParams struct {
	TabID int `json:"tabId"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	TrackedTabs int    `json:"trackedTabs"`
	TrackedURLs int    `json:"trackedUrls"`
	TestTabs    int    `json:"testTabs"`

	Alarms        []string       `json:"alarms,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`
}

// Notification is one message the daemon delivered, oldest first in
// HealthResult.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// SettingsParams is the params for a saveSettings request.
type SettingsParams = activity.Settings

// decodeParams re-marshals a generic params value into a typed struct.
func decodeParams(params interface{}, v interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
