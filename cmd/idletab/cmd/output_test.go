package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	bolt "go.etcd.io/bbolt"

	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/domain/activity"
)

func TestFormatIdle(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0, "<1 min"},
		{0.005, "<1 min"},
		{0.5, "30 min"},
		{0.99, "59 min"},
		{1, "1.0 h"},
		{80.46, "80.5 h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatIdle(tt.hours), "hours=%v", tt.hours)
	}
}

func TestFormatStats(t *testing.T) {
	last := int64(1700000000000)
	out := formatStats(&activity.Stats{
		TotalTabs:             3,
		ActiveTabs:            2,
		InactiveTabs:          1,
		InactiveDaysThreshold: 3,
		Enabled:               true,
		TabDetails: []activity.TabDetail{
			{ID: 4, Title: "Old docs", LastActivity: &last, InactiveHours: 80.5, Status: activity.StatusInactive},
			{ID: 9, Title: "Fresh", Status: activity.StatusTracking},
		},
	})
	assert.Contains(t, out, "3 tabs")
	assert.Contains(t, out, "threshold 3d")
	assert.Contains(t, out, "80.5 h")
	assert.Contains(t, out, "Old docs")
	assert.Contains(t, out, "—", "tracking tabs have no idle time")
}

func TestFormatStats_Empty(t *testing.T) {
	out := formatStats(&activity.Stats{InactiveDaysThreshold: 3})
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, "no trackable tabs")
}

func TestFormatCleanup(t *testing.T) {
	assert.Contains(t, formatCleanup(&socket.CleanupResult{Disabled: true}), "disabled")

	out := formatCleanup(&socket.CleanupResult{Success: true, Closed: 2, Candidates: 3, Failed: []int{7}})
	assert.Contains(t, out, "closed 2 of 3")
	assert.Contains(t, out, "could not close: 7")
}

func TestFormatSettingsAndHealth(t *testing.T) {
	assert.Contains(t, formatSettings(&activity.Settings{Enabled: true, InactiveDaysThreshold: 5}), "5 days")

	out := formatHealth(&socket.HealthResult{Status: "ok", Uptime: "1m0s", TrackedTabs: 4, TrackedURLs: 6})
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "Tabs:       4")
	assert.NotContains(t, out, "Test tabs")
	assert.NotContains(t, out, "Alarms")

	out = formatHealth(&socket.HealthResult{
		Status: "ok",
		Alarms: []string{"checkInactiveTabs", "syncTimers"},
		Notifications: []socket.Notification{
			{Message: "Closed 1 inactive tabs", At: time.Now()},
			{Message: "Closed 4 inactive tabs", At: time.Now()},
		},
	})
	assert.Contains(t, out, "Alarms:     checkInactiveTabs, syncTimers")
	assert.Contains(t, out, "Last note:  Closed 4 inactive tabs")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestIsDBLockError(t *testing.T) {
	assert.False(t, isDBLockError(nil))
	assert.True(t, isDBLockError(fmt.Errorf("open store: bbolt open: %w", bolt.ErrTimeout)))
	assert.False(t, isDBLockError(errors.New("permission denied")))
}

func TestDiagnoseDBLock_NoDaemon(t *testing.T) {
	msg := diagnoseDBLock(t.TempDir())
	assert.Contains(t, msg, "another process")
}
