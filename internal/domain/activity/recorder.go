package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/corey/idletab/internal/ports"
)

// RecordActivity updates the ledger for one tab. A user action (activation,
// focus, navigation to a different URL) resets both sides to now; it is the
// only path that ever moves a timestamp forward. Anything else only fills in
// what is missing: the URL's instant is copied down if it is older, or both
// sides are initialized if the tab has never been seen.
//
// Invalid IDs, test-harness tabs, system pages, and tabs that vanished before
// they could be looked up are ignored.
func (e *Engine) RecordActivity(ctx context.Context, tabID int, userAction bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validTabID(tabID) || e.isTestTab(tabID) {
		return nil
	}
	tab, ok, err := e.lookup(ctx, tabID)
	if err != nil || !ok {
		return err
	}
	return e.record(tab, userAction)
}

// lookup fetches a tab. ok is false when the tab no longer exists.
// Caller holds e.mu.
func (e *Engine) lookup(ctx context.Context, tabID int) (ports.Tab, bool, error) {
	tab, err := e.tabs.Get(ctx, tabID)
	if errors.Is(err, ports.ErrTabNotFound) {
		e.log.Debug().Int("tab", tabID).Msg("tab vanished before record")
		return ports.Tab{}, false, nil
	}
	if err != nil {
		return ports.Tab{}, false, fmt.Errorf("get tab %d: %w", tabID, err)
	}
	return tab, true, nil
}

// record applies one activity observation. Caller holds e.mu.
func (e *Engine) record(t ports.Tab, userAction bool) error {
	url := t.EffectiveURL()
	if anchorsNavigation(url) {
		// System pages are remembered too: leaving the new-tab page for a
		// site is a navigation. about:blank is not.
		e.lastURL[t.ID] = url
	}
	if url != "" && IsSystemPage(url) {
		return nil
	}

	l, err := e.store.loadLedger()
	if err != nil {
		return err
	}
	now := e.nowMillis()
	e.observe(t.ID, now)

	changed := false
	tabTs, hasTab := l.Tabs[t.ID]
	switch {
	case userAction:
		l.Stamp(t.ID, url, now)
		changed = true
	case url == "":
		// Still loading; nothing to anchor to yet.
	default:
		if urlTs, ok := l.URLs[url]; ok {
			if !hasTab || tabTs > urlTs {
				l.Tabs[t.ID] = urlTs
				changed = true
			}
		} else if !hasTab {
			l.Stamp(t.ID, url, now)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := e.store.saveLedger(l); err != nil {
		return err
	}
	e.log.Debug().
		Int("tab", t.ID).
		Bool("user_action", userAction).
		Msg("activity recorded")
	return nil
}

// OnActivated handles a tab becoming the active tab of its window.
func (e *Engine) OnActivated(ctx context.Context, tabID int) error {
	return e.RecordActivity(ctx, tabID, true)
}

// OnCreated handles a new tab. Creation alone is not a user action. snapshot
// may be nil, in which case the tab is looked up.
func (e *Engine) OnCreated(ctx context.Context, tabID int, snapshot *ports.Tab) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validTabID(tabID) || e.isTestTab(tabID) {
		return nil
	}
	tab, ok, err := e.resolve(ctx, tabID, snapshot)
	if err != nil || !ok {
		return err
	}
	return e.record(tab, false)
}

// OnUpdated handles a URL change or load completion. A change to a URL other
// than the last one seen for the tab is a navigation and counts as a user
// action; a reload of the same URL does not. Updates carrying neither a URL
// nor a completed status are ignored.
func (e *Engine) OnUpdated(ctx context.Context, tabID int, change ports.TabChange, snapshot *ports.Tab) error {
	if change.URL == "" && change.Status != ports.StatusComplete {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !validTabID(tabID) || e.isTestTab(tabID) {
		return nil
	}
	tab, ok, err := e.resolve(ctx, tabID, snapshot)
	if err != nil || !ok {
		return err
	}
	if change.URL != "" {
		tab.URL = change.URL
	}

	url := tab.EffectiveURL()
	prev, known := e.lastURL[tabID]
	navigated := known && url != "" && url != prev
	return e.record(tab, navigated)
}

// resolve returns snapshot when given, otherwise looks the tab up.
// Caller holds e.mu.
func (e *Engine) resolve(ctx context.Context, tabID int, snapshot *ports.Tab) (ports.Tab, bool, error) {
	if snapshot != nil {
		t := *snapshot
		t.ID = tabID
		return t, true, nil
	}
	return e.lookup(ctx, tabID)
}

// OnRemoved handles a closed tab: its ledger entry and in-memory state are
// dropped, and it leaves the test-tab set. The URL entry is kept; another
// tab may still show the page, or it may be reopened.
func (e *Engine) OnRemoved(tabID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.lastURL, tabID)
	delete(e.firstSeen, tabID)

	l, err := e.store.loadLedger()
	if err != nil {
		return err
	}
	forgot := l.Forget(tabID)
	wasTest := e.isTestTab(tabID)
	if wasTest {
		delete(e.testTabs, tabID)
	}

	switch {
	case wasTest:
		err = e.store.saveLedgerAndTestTabs(l, e.testTabs)
	case forgot:
		err = e.store.saveLedger(l)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	e.log.Debug().Int("tab", tabID).Bool("test_tab", wasTest).Msg("tab removed")
	return nil
}

// HandleEvent dispatches a host lifecycle event. Install and startup run the
// restore pass and schedule the delayed URL cleanup on ctx, so ctx should
// live as long as the process.
func (e *Engine) HandleEvent(ctx context.Context, ev ports.TabEvent) error {
	switch ev.Kind {
	case ports.EventInstalled, ports.EventStartup:
		if _, err := e.Initialize(ctx); err != nil {
			return fmt.Errorf("%s: %w", ev.Kind, err)
		}
		e.ScheduleURLCleanup(ctx)
		return nil
	case ports.EventActivated:
		return e.OnActivated(ctx, ev.TabID)
	case ports.EventCreated:
		return e.OnCreated(ctx, ev.TabID, ev.Tab)
	case ports.EventUpdated:
		var change ports.TabChange
		if ev.Change != nil {
			change = *ev.Change
		}
		return e.OnUpdated(ctx, ev.TabID, change, ev.Tab)
	case ports.EventRemoved:
		return e.OnRemoved(ev.TabID)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
