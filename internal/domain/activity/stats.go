package activity

import (
	"context"
	"math"
	"sort"
)

// Tab statuses reported by Stats.
const (
	StatusTracking = "tracking"
	StatusInactive = "inactive"
	StatusActive   = "active"
)

// Stats is the aggregate view shown by the UI.
type Stats struct {
	TotalTabs             int         `json:"totalTabs"`
	ActiveTabs            int         `json:"activeTabs"`
	InactiveTabs          int         `json:"inactiveTabs"`
	InactiveDaysThreshold int         `json:"inactiveDaysThreshold"`
	Enabled               bool        `json:"enabled"`
	TabDetails            []TabDetail `json:"tabDetails"`
}

// TabDetail describes one trackable tab. LastActivity is nil while the tab
// is still being tracked for the first time.
type TabDetail struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Favicon       string  `json:"favicon"`
	LastActivity  *int64  `json:"lastActivity"`
	InactiveHours float64 `json:"inactiveHours"`
	Status        string  `json:"status"`
}

// Stats runs the cross-tab sync and then classifies every trackable tab.
// Tabs without a known instant count as active ("tracking"). Details are
// sorted longest-idle first. TotalTabs counts every open tab, system pages
// included.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.syncURLsLocked(ctx); err != nil {
		return Stats{}, err
	}

	set, _, err := e.store.loadSettings()
	if err != nil {
		e.log.Error().Err(err).Msg("stats: settings unreadable, using defaults")
	}
	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return Stats{}, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return Stats{}, err
	}

	now := e.nowMillis()
	threshold := now - set.thresholdMillis()
	st := Stats{
		TotalTabs:             len(tabs),
		InactiveDaysThreshold: set.InactiveDaysThreshold,
		Enabled:               set.Enabled,
		TabDetails:            make([]TabDetail, 0, len(tabs)),
	}

	backfilled := false
	for _, t := range tabs {
		if !trackable(t) {
			continue
		}
		url := t.EffectiveURL()
		d := TabDetail{
			ID:      t.ID,
			Title:   displayTitle(t.Title, url),
			URL:     url,
			Favicon: t.FaviconURL,
			Status:  StatusActive,
		}
		ts, ok, changed := l.Resolve(t.ID, url)
		backfilled = backfilled || changed
		switch {
		case !ok:
			d.Status = StatusTracking
			st.ActiveTabs++
		case ts < threshold:
			d.Status = StatusInactive
			st.InactiveTabs++
		default:
			st.ActiveTabs++
		}
		if ok {
			last := ts
			d.LastActivity = &last
			d.InactiveHours = inactiveHours(now, ts)
		}
		st.TabDetails = append(st.TabDetails, d)
	}

	if backfilled {
		if err := e.store.saveLedger(l); err != nil {
			return Stats{}, err
		}
	}

	sort.SliceStable(st.TabDetails, func(i, j int) bool {
		return st.TabDetails[i].InactiveHours > st.TabDetails[j].InactiveHours
	})
	return st, nil
}

// inactiveHours returns now-ts in hours, floored at zero and rounded to two
// decimals.
func inactiveHours(now, ts int64) float64 {
	h := float64(now-ts) / msPerHour
	if h < 0 {
		return 0
	}
	return math.Round(h*100) / 100
}

func displayTitle(title, url string) string {
	switch {
	case title != "":
		return title
	case url != "":
		return url
	default:
		return "Untitled tab"
	}
}
