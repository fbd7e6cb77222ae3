package activity

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/corey/idletab/internal/ports"
)

// TestPageURL is the placeholder page test tabs open. Each tab gets a unique
// marker in the query string so no two test tabs share a URL entry.
const TestPageURL = "https://example.com/"

// TestMarkerParam is the query parameter carrying the marker.
const TestMarkerParam = "auto-close-test"

// TestTabURL returns the placeholder URL for one test tab.
func TestTabURL(marker string) string {
	return TestPageURL + "?" + url.Values{TestMarkerParam: {marker}}.Encode()
}

// StartTestMode opens background tabs that are already a day past the
// inactivity threshold, so the next sweep closes them. They join the test-tab
// set, which keeps lifecycle events from refreshing them. A failed create is
// logged and skipped. Returns how many tabs were created.
func (e *Engine) StartTestMode(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, _, err := e.store.loadSettings()
	if err != nil {
		e.log.Error().Err(err).Msg("test mode: settings unreadable, using defaults")
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return 0, err
	}

	stale := e.nowMillis() - int64(set.InactiveDaysThreshold+1)*msPerDay
	created := 0
	for i := 0; i < e.cfg.TestTabCount; i++ {
		u := TestTabURL(uuid.NewString())
		tab, err := e.tabs.Create(ctx, ports.CreateOptions{URL: u, Active: false})
		if err != nil {
			e.log.Warn().Err(err).Int("attempt", i).Msg("create test tab")
			continue
		}
		if !validTabID(tab.ID) {
			continue
		}
		l.Stamp(tab.ID, u, stale)
		e.testTabs[tab.ID] = struct{}{}
		e.lastURL[tab.ID] = u
		created++
	}

	if err := e.store.saveLedgerAndTestTabs(l, e.testTabs); err != nil {
		return created, err
	}
	e.log.Info().Int("created", created).Msg("test mode started")
	return created, nil
}
