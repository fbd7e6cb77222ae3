package activity

import (
	"context"
	"fmt"
)

// NotificationTitle is the title of every notification the engine sends.
const NotificationTitle = "Auto Close Inactive Tabs"

// SweepResult reports what a sweep did.
type SweepResult struct {
	Disabled   bool  `json:"disabled,omitempty"`
	Candidates int   `json:"candidates"`
	Closed     int   `json:"closed"`
	Failed     []int `json:"failed,omitempty"`
}

// Sweep closes every trackable tab whose last activity is strictly older than
// the configured threshold. It runs the cross-tab sync first. A tab with no
// known activity is never closed. Closing is best-effort per tab: a failure is
// logged and recorded in Failed, and the sweep moves on.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res SweepResult
	if _, err := e.syncURLsLocked(ctx); err != nil {
		return res, err
	}

	set, _, err := e.store.loadSettings()
	if err != nil {
		e.log.Error().Err(err).Msg("sweep: settings unreadable, using defaults")
	}
	if !set.Enabled {
		e.log.Info().Msg("sweep skipped: disabled")
		res.Disabled = true
		return res, nil
	}

	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return res, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return res, err
	}

	threshold := e.nowMillis() - set.thresholdMillis()
	type candidate struct {
		id  int
		url string
	}
	var candidates []candidate
	backfilled := false
	for _, t := range tabs {
		if !trackable(t) {
			continue
		}
		url := t.EffectiveURL()
		ts, ok, changed := l.Resolve(t.ID, url)
		backfilled = backfilled || changed
		if !ok {
			continue
		}
		if ts < threshold {
			candidates = append(candidates, candidate{id: t.ID, url: url})
		}
	}
	res.Candidates = len(candidates)

	if backfilled {
		if err := e.store.saveLedger(l); err != nil {
			return res, err
		}
	}
	if len(candidates) == 0 {
		e.log.Info().Int("tabs", len(tabs)).Msg("sweep: nothing to close")
		return res, nil
	}

	testChanged := false
	for _, c := range candidates {
		if err := e.tabs.Remove(ctx, c.id); err != nil {
			e.log.Warn().Err(err).Int("tab", c.id).Msg("close tab")
			res.Failed = append(res.Failed, c.id)
			continue
		}
		delete(l.Tabs, c.id)
		delete(l.URLs, c.url)
		delete(e.lastURL, c.id)
		delete(e.firstSeen, c.id)
		if e.isTestTab(c.id) {
			delete(e.testTabs, c.id)
			testChanged = true
		}
		res.Closed++
	}

	if testChanged {
		err = e.store.saveLedgerAndTestTabs(l, e.testTabs)
	} else {
		err = e.store.saveLedger(l)
	}
	if err != nil {
		return res, err
	}

	e.log.Info().
		Int("candidates", res.Candidates).
		Int("closed", res.Closed).
		Int("failed", len(res.Failed)).
		Msg("sweep complete")
	e.notify(NotificationTitle, fmt.Sprintf("Closed %d inactive tabs", res.Closed))
	return res, nil
}
