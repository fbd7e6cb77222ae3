package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/corey/idletab/internal/domain/activity"
	"github.com/corey/idletab/internal/ports"
)

// Client connects to the idletab daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Stats fetches the tab statistics.
func (c *Client) Stats() (*activity.Stats, error) {
	return callFor[activity.Stats](c, MethodGetTabStats, nil, 30*time.Second)
}

// ForceCleanup runs a sweep now.
func (c *Client) ForceCleanup() (*CleanupResult, error) {
	return callFor[CleanupResult](c, MethodForceCleanup, nil, 60*time.Second)
}

// Settings fetches the current settings.
func (c *Client) Settings() (*activity.Settings, error) {
	return callFor[activity.Settings](c, MethodGetSettings, nil, 5*time.Second)
}

// SaveSettings stores new settings. A rejected value comes back as
// Success=false with the reason, not as an error.
func (c *Client) SaveSettings(set activity.Settings) (*SuccessResult, error) {
	return callFor[SuccessResult](c, MethodSaveSettings, set, 5*time.Second)
}

// StartTestMode opens the synthetic overdue tabs.
func (c *Client) StartTestMode() (*TestModeResult, error) {
	return callFor[TestModeResult](c, MethodStartTestMode, nil, 30*time.Second)
}

// SyncTimers runs the full reconciliation.
func (c *Client) SyncTimers() error {
	_, err := callFor[SuccessResult](c, MethodSyncTimers, nil, 30*time.Second)
	return err
}

// FocusTab activates a tab.
func (c *Client) FocusTab(tabID int) error {
	_, err := callFor[SuccessResult](c, MethodFocusTab, FocusParams{TabID: tabID}, 5*time.Second)
	return err
}

// SendEvent delivers a host lifecycle event.
func (c *Client) SendEvent(ev ports.TabEvent) error {
	_, err := callFor[SuccessResult](c, MethodTabEvent, ev, 10*time.Second)
	return err
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	return callFor[HealthResult](c, MethodHealth, nil, 5*time.Second)
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{
		ID:     uuid.NewString(),
		Method: MethodShutdown,
	})
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// callFor sends one request and decodes the result into T.
func callFor[T any](c *Client, method string, params interface{}, timeout time.Duration) (*T, error) {
	resp, err := c.callWithTimeout(Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: params,
	}, timeout)
	if err != nil {
		return nil, err
	}
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var result T
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, 5*time.Second)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id mismatch: sent %s, got %s", req.ID, resp.ID)
	}
	return &resp, nil
}
