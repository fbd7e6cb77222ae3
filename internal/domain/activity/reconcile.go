package activity

import (
	"context"
	"time"

	"github.com/corey/idletab/internal/ports"
)

// =============================================================================
// Reconciliation passes
//
// Each pass is a pure function over (ledger, open tabs) that reports whether
// it changed anything, plus an Engine method that loads, runs, and saves under
// the engine lock. Every pass is idempotent and safe to run alone, and every
// pass prefers the older instant when two candidates disagree.
// =============================================================================

// restore is the start-of-process pass. The host renumbers tabs on restart,
// so the URL side is the only link between a restored tab and its history:
// a tab whose URL is known inherits the URL's instant. A tab known only by ID
// (same session) backfills its URL. A tab known by neither side is new and
// gets now, unless its URL is not resolved yet, in which case it is left
// alone rather than marked fresh. Finally, entries for tab IDs that are no
// longer open are dropped. URL entries are never dropped here.
func restore(l *Ledger, tabs []ports.Tab, now int64) bool {
	changed := false
	open := make(map[int]struct{}, len(tabs))
	for _, t := range tabs {
		if !validTabID(t.ID) {
			continue
		}
		open[t.ID] = struct{}{}
		if !trackable(t) {
			continue
		}
		url := t.EffectiveURL()
		tabTs, hasTab := l.Tabs[t.ID]
		urlTs, hasURL := l.URLs[url]
		switch {
		case hasURL:
			// An older tab entry is the more conservative value; keep it.
			if !hasTab || tabTs > urlTs {
				l.Tabs[t.ID] = urlTs
				changed = true
			}
		case hasTab:
			l.URLs[url] = tabTs
			changed = true
		default:
			l.Stamp(t.ID, url, now)
			changed = true
		}
	}
	for id := range l.Tabs {
		if _, ok := open[id]; !ok {
			delete(l.Tabs, id)
			changed = true
		}
	}
	return changed
}

// repair fills in whichever side is missing for each open tab. When neither
// side knows a tab, it is stamped now only if this process has not seen the
// tab for longer than the recency window; otherwise the first sighting is used,
// since a tab that has been open that long was merely slow to report its URL
// and is not fresh.
func repair(l *Ledger, tabs []ports.Tab, now, recency int64, firstSeen map[int]int64) bool {
	changed := false
	for _, t := range tabs {
		if !trackable(t) {
			continue
		}
		url := t.EffectiveURL()
		tabTs, hasTab := l.Tabs[t.ID]
		urlTs, hasURL := l.URLs[url]
		switch {
		case hasTab && hasURL:
			continue
		case hasURL:
			l.Tabs[t.ID] = urlTs
		case hasTab:
			l.URLs[url] = tabTs
		default:
			ts := now
			if seen, ok := firstSeen[t.ID]; ok && seen < now-recency {
				ts = seen
			}
			l.Stamp(t.ID, url, ts)
		}
		changed = true
	}
	return changed
}

// syncURLs groups open tabs by URL and pulls every tab in a group down to the
// URL's instant. A URL with no entry adopts the oldest instant among its tabs.
// Tabs newer than the URL are clamped to it; older tabs are left alone. Once a
// URL is known to have been idle since T, no tab showing it may claim to be
// more recently active than T.
func syncURLs(l *Ledger, tabs []ports.Tab) bool {
	groups := make(map[string][]int)
	for _, t := range tabs {
		if !trackable(t) {
			continue
		}
		url := t.EffectiveURL()
		groups[url] = append(groups[url], t.ID)
	}

	changed := false
	for url, ids := range groups {
		urlTs, hasURL := l.URLs[url]
		if !hasURL {
			for _, id := range ids {
				if ts, ok := l.Tabs[id]; ok && (!hasURL || ts < urlTs) {
					urlTs, hasURL = ts, true
				}
			}
			if !hasURL {
				continue
			}
			l.URLs[url] = urlTs
			changed = true
		}
		for _, id := range ids {
			if ts, ok := l.Tabs[id]; !ok || ts > urlTs {
				l.Tabs[id] = urlTs
				changed = true
			}
		}
	}
	return changed
}

// pruneURLs drops URL entries that no open tab holds. Tabs still loading
// hold nothing yet, which is why this runs only after the grace window.
func pruneURLs(l *Ledger, tabs []ports.Tab) int {
	held := make(map[string]struct{}, len(tabs))
	for _, t := range tabs {
		if url := t.EffectiveURL(); url != "" {
			held[url] = struct{}{}
		}
	}
	removed := 0
	for url := range l.URLs {
		if _, ok := held[url]; !ok {
			delete(l.URLs, url)
			removed++
		}
	}
	return removed
}

// Initialize runs the restore pass. Called on install and on browser startup.
// It also reloads the test-tab set and writes default settings on first run.
func (e *Engine) Initialize(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if set, err := e.store.loadTestTabs(); err != nil {
		e.log.Error().Err(err).Msg("reload test tabs")
	} else {
		e.testTabs = set
	}
	if err := e.ensureSettings(); err != nil {
		e.log.Error().Err(err).Msg("write default settings")
	}

	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return false, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return false, err
	}
	now := e.nowMillis()
	for _, t := range tabs {
		if validTabID(t.ID) {
			e.observe(t.ID, now)
			if url := t.EffectiveURL(); anchorsNavigation(url) {
				e.lastURL[t.ID] = url
			}
		}
	}

	changed := restore(l, tabs, now)
	if changed {
		if err := e.store.saveLedger(l); err != nil {
			return false, err
		}
	}
	e.log.Info().
		Int("tabs", len(tabs)).
		Int("tracked_tabs", len(l.Tabs)).
		Int("tracked_urls", len(l.URLs)).
		Bool("changed", changed).
		Msg("activity initialized")
	return changed, nil
}

// Repair runs the verify/repair pass.
func (e *Engine) Repair(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repairLocked(ctx)
}

func (e *Engine) repairLocked(ctx context.Context) (bool, error) {
	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return false, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return false, err
	}
	now := e.nowMillis()
	for _, t := range tabs {
		if validTabID(t.ID) {
			e.observe(t.ID, now)
		}
	}
	changed := repair(l, tabs, now, e.cfg.RecencyWindow.Milliseconds(), e.firstSeen)
	if changed {
		if err := e.store.saveLedger(l); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// SyncURLs runs the cross-tab URL sync pass.
func (e *Engine) SyncURLs(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncURLsLocked(ctx)
}

func (e *Engine) syncURLsLocked(ctx context.Context) (bool, error) {
	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return false, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return false, err
	}
	changed := syncURLs(l, tabs)
	if changed {
		if err := e.store.saveLedger(l); err != nil {
			return false, err
		}
	}
	e.lastSync = e.cfg.Now()
	return changed, nil
}

// SyncTimers is the full reconciliation requested by the UI: repair, then
// cross-tab sync.
func (e *Engine) SyncTimers(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	repaired, err := e.repairLocked(ctx)
	if err != nil {
		return false, err
	}
	synced, err := e.syncURLsLocked(ctx)
	if err != nil {
		return repaired, err
	}
	return repaired || synced, nil
}

// SyncIfDue runs the cross-tab sync pass only if at least minInterval has
// passed since the last sync. The periodic alarm uses this instead of
// SyncTimers: the repair pass stamps "now" and is too aggressive to run
// unattended.
func (e *Engine) SyncIfDue(ctx context.Context, minInterval time.Duration) (ran, changed bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.lastSync.IsZero() && e.cfg.Now().Sub(e.lastSync) < minInterval {
		return false, false, nil
	}
	changed, err = e.syncURLsLocked(ctx)
	return true, changed, err
}

// CleanupURLs drops URL entries that no open tab holds.
func (e *Engine) CleanupURLs(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tabs, err := e.queryTabs(ctx)
	if err != nil {
		return 0, err
	}
	l, err := e.store.loadLedger()
	if err != nil {
		return 0, err
	}
	removed := pruneURLs(l, tabs)
	if removed > 0 {
		if err := e.store.saveLedger(l); err != nil {
			return 0, err
		}
	}
	e.log.Debug().Int("removed", removed).Msg("url cleanup")
	return removed, nil
}

// ScheduleURLCleanup runs CleanupURLs once after the grace window. The
// returned channel is closed when the cleanup has run or ctx was cancelled.
func (e *Engine) ScheduleURLCleanup(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(e.cfg.CleanupGrace)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := e.CleanupURLs(ctx); err != nil {
			e.log.Error().Err(err).Msg("delayed url cleanup")
		}
	}()
	return done
}
