package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/domain/activity"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// maxTitle is the width titles are cut to in the stats table.
const maxTitle = 48

// formatStats formats the stats object for terminal display.
//
//	⚡ 12 tabs │ 9 active │ 3 inactive │ threshold 3d │ enabled
//	    ID  IDLE      STATUS    TITLE
//	    17  80.5 h    inactive  Some page
func formatStats(st *activity.Stats) string {
	var sb strings.Builder
	state := colorGreen + "enabled" + colorReset
	if !st.Enabled {
		state = colorYellow + "disabled" + colorReset
	}
	sb.WriteString(fmt.Sprintf("%s⚡ %d tabs%s │ %d active │ %d inactive │ threshold %dd │ %s\n",
		colorBold, st.TotalTabs, colorReset, st.ActiveTabs, st.InactiveTabs, st.InactiveDaysThreshold, state))

	if len(st.TabDetails) == 0 {
		sb.WriteString("  no trackable tabs\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%s  %6s  %-9s %-9s %s%s\n", colorGray, "ID", "IDLE", "STATUS", "TITLE", colorReset))
	for _, d := range st.TabDetails {
		idle := "—"
		if d.LastActivity != nil {
			idle = formatIdle(d.InactiveHours)
		}
		sb.WriteString(fmt.Sprintf("  %6d  %-9s %s%-9s%s %s\n",
			d.ID, idle, statusColor(d.Status), d.Status, colorReset, truncate(d.Title, maxTitle)))
	}
	return sb.String()
}

// formatIdle renders inactive hours: minutes below one hour, else hours
// with one decimal.
func formatIdle(hours float64) string {
	if hours >= 1 {
		return fmt.Sprintf("%.1f h", hours)
	}
	minutes := int(math.Round(hours * 60))
	if minutes > 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	return "<1 min"
}

func statusColor(status string) string {
	switch status {
	case activity.StatusInactive:
		return colorRed
	case activity.StatusTracking:
		return colorCyan
	default:
		return colorGreen
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// formatCleanup formats a forced sweep result.
func formatCleanup(r *socket.CleanupResult) string {
	if r.Disabled {
		return "⚡ auto-close is disabled — nothing closed (enable with: idletab settings set --enable)\n"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚡ closed %d of %d inactive tabs\n", r.Closed, r.Candidates))
	if len(r.Failed) > 0 {
		ids := make([]string, len(r.Failed))
		for i, id := range r.Failed {
			ids[i] = fmt.Sprint(id)
		}
		sb.WriteString(fmt.Sprintf("  %scould not close: %s%s\n", colorYellow, strings.Join(ids, ", "), colorReset))
	}
	return sb.String()
}

// formatSettings formats the sweeper settings.
func formatSettings(s *activity.Settings) string {
	enabled := "no"
	if s.Enabled {
		enabled = "yes"
	}
	return fmt.Sprintf("  Enabled:    %s\n  Threshold:  %d days\n", enabled, s.InactiveDaysThreshold)
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s⚡ idletab daemon%s\n", colorBold, colorReset))
	sb.WriteString(fmt.Sprintf("  Status:     %s%s%s\n", colorGreen, h.Status, colorReset))
	sb.WriteString(fmt.Sprintf("  Tabs:       %d\n", h.TrackedTabs))
	sb.WriteString(fmt.Sprintf("  URLs:       %d\n", h.TrackedURLs))
	if h.TestTabs > 0 {
		sb.WriteString(fmt.Sprintf("  Test tabs:  %d\n", h.TestTabs))
	}
	sb.WriteString(fmt.Sprintf("  Uptime:     %s\n", h.Uptime))
	if len(h.Alarms) > 0 {
		sb.WriteString(fmt.Sprintf("  Alarms:     %s\n", strings.Join(h.Alarms, ", ")))
	}
	if n := len(h.Notifications); n > 0 {
		last := h.Notifications[n-1]
		sb.WriteString(fmt.Sprintf("  Last note:  %s %s(%s)%s\n",
			last.Message, colorGray, last.At.Local().Format("Jan 2 15:04"), colorReset))
	}
	return sb.String()
}
