// Package activity tracks when each browser tab was last used and closes the
// ones that have been idle past a threshold.
//
// Activity is kept in a Ledger keyed two ways: by tab ID (cheap, but the host
// renumbers tabs on every browser restart) and by URL (stable across restarts,
// but shared by every tab showing the page). The reconciliation passes in
// reconcile.go converge the two sides, always preferring the older instant so
// that a restart, a reload, or a lost update never makes an idle tab look
// fresh.
//
// All Engine methods are serialized on one mutex: every load-mutate-save of
// the ledger runs to completion before the next one starts, even when events,
// alarms, and UI requests arrive concurrently.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/ports"
)

// Defaults for Config fields left zero.
const (
	DefaultTestTabCount  = 5
	DefaultRecencyWindow = 5 * time.Minute
	DefaultCleanupGrace  = 30 * time.Second
)

// Config holds tunables for an Engine.
type Config struct {
	// TestTabCount is how many synthetic overdue tabs StartTestMode opens.
	TestTabCount int

	// RecencyWindow separates a genuinely new tab from one that was merely
	// slow to report its URL (see Repair).
	RecencyWindow time.Duration

	// CleanupGrace delays the URL garbage collection after Initialize so
	// restored tabs can finish loading their URLs first.
	CleanupGrace time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	Logger zerolog.Logger
}

// Engine owns the activity ledger and every operation on it.
type Engine struct {
	mu       sync.Mutex
	tabs     ports.TabDirectory
	store    *store
	notifier ports.Notifier
	cfg      Config
	log      zerolog.Logger

	// testTabs are synthetic tabs whose stale timestamps must not be
	// refreshed by lifecycle events. Persisted under KeyTestTabs.
	testTabs map[int]struct{}

	// lastURL is the last URL observed per tab, used to tell a navigation
	// (user action) from a reload. In-memory only.
	lastURL map[int]string

	// firstSeen is when this process first observed each tab ID (Unix ms).
	firstSeen map[int]int64

	lastSync time.Time
}

// NewEngine creates an engine and loads the persisted test-tab set.
// notifier may be nil.
func NewEngine(tabs ports.TabDirectory, kv ports.KeyValueStore, notifier ports.Notifier, cfg Config) (*Engine, error) {
	if tabs == nil || kv == nil {
		return nil, fmt.Errorf("activity: tab directory and store required")
	}
	if cfg.TestTabCount <= 0 {
		cfg.TestTabCount = DefaultTestTabCount
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = DefaultRecencyWindow
	}
	if cfg.CleanupGrace <= 0 {
		cfg.CleanupGrace = DefaultCleanupGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		tabs:      tabs,
		store:     &store{kv: kv},
		notifier:  notifier,
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "activity").Logger(),
		lastURL:   make(map[int]string),
		firstSeen: make(map[int]int64),
	}

	set, err := e.store.loadTestTabs()
	if err != nil {
		// Not fatal: an empty set only means old test tabs may get
		// refreshed by events before they are swept.
		e.log.Error().Err(err).Msg("load test tabs")
		set = make(map[int]struct{})
	}
	e.testTabs = set
	return e, nil
}

// nowMillis returns the engine clock in Unix milliseconds.
func (e *Engine) nowMillis() int64 {
	return e.cfg.Now().UnixMilli()
}

// observe records the first sighting of a tab ID. Caller holds e.mu.
func (e *Engine) observe(id int, now int64) {
	if _, ok := e.firstSeen[id]; !ok {
		e.firstSeen[id] = now
	}
}

// isTestTab reports whether id belongs to the test harness. Caller holds e.mu.
func (e *Engine) isTestTab(id int) bool {
	_, ok := e.testTabs[id]
	return ok
}

// TestTabs returns the IDs of tabs created by the test harness.
func (e *Engine) TestTabs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.testTabs))
	for id := range e.testTabs {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a copy of the persisted ledger.
func (e *Engine) Snapshot() (*Ledger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.loadLedger()
}

// notify forwards to the notifier, if any.
func (e *Engine) notify(title, message string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(title, message)
}

// queryTabs enumerates open tabs. Caller holds e.mu.
func (e *Engine) queryTabs(ctx context.Context) ([]ports.Tab, error) {
	tabs, err := e.tabs.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}
	return tabs, nil
}
