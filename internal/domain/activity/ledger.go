package activity

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/corey/idletab/internal/ports"
)

// Storage keys. Both activity maps are always written in the same Set call.
const (
	KeyTabActivity = "tabActivity"
	KeyURLActivity = "urlActivity"
	KeySettings    = "extensionSettings"
	KeyTestTabs    = "testTabs"
)

// Ledger is the dual-keyed activity record: last-activity instants (Unix ms)
// keyed by tab ID and by URL. Tab IDs are volatile across browser restarts;
// URLs are the continuity anchor. Callers go through the helpers so the two
// sides are updated together.
type Ledger struct {
	Tabs map[int]int64
	URLs map[string]int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		Tabs: make(map[int]int64),
		URLs: make(map[string]int64),
	}
}

// Resolve returns the activity instant for a tab: its own entry, or the entry
// of its URL. When only the URL side knows the tab, the URL value is copied
// down to the tab entry; changed reports that backfill. ok is false when
// neither side knows the tab.
func (l *Ledger) Resolve(tabID int, url string) (ts int64, ok, changed bool) {
	if ts, ok := l.Tabs[tabID]; ok {
		return ts, true, false
	}
	if url == "" {
		return 0, false, false
	}
	if ts, ok := l.URLs[url]; ok {
		l.Tabs[tabID] = ts
		return ts, true, true
	}
	return 0, false, false
}

// Stamp sets both sides to ts. An empty url stamps only the tab.
func (l *Ledger) Stamp(tabID int, url string, ts int64) {
	l.Tabs[tabID] = ts
	if url != "" {
		l.URLs[url] = ts
	}
}

// Forget drops a tab entry. URL entries are left for the delayed cleanup,
// since another tab may still hold the same URL.
func (l *Ledger) Forget(tabID int) bool {
	if _, ok := l.Tabs[tabID]; !ok {
		return false
	}
	delete(l.Tabs, tabID)
	return true
}

// store persists engine state through the host key-value store. JSON object
// keys are strings; encoding/json converts the int tab IDs both ways.
type store struct {
	kv ports.KeyValueStore
}

// loadLedger reads both activity maps. Absent keys yield empty maps.
func (s *store) loadLedger() (*Ledger, error) {
	vals, err := s.kv.Get(KeyTabActivity, KeyURLActivity)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	l := NewLedger()
	if raw, ok := vals[KeyTabActivity]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.Tabs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyTabActivity, err)
		}
	}
	if raw, ok := vals[KeyURLActivity]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.URLs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", KeyURLActivity, err)
		}
	}
	// A stored JSON null decodes to a nil map.
	if l.Tabs == nil {
		l.Tabs = make(map[int]int64)
	}
	if l.URLs == nil {
		l.URLs = make(map[string]int64)
	}
	return l, nil
}

// saveLedger writes both activity maps in one transaction.
func (s *store) saveLedger(l *Ledger) error {
	tabsJSON, err := json.Marshal(l.Tabs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyTabActivity, err)
	}
	urlsJSON, err := json.Marshal(l.URLs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyURLActivity, err)
	}
	if err := s.kv.Set(map[string][]byte{
		KeyTabActivity: tabsJSON,
		KeyURLActivity: urlsJSON,
	}); err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

// loadTestTabs reads the persisted test-harness tab IDs.
func (s *store) loadTestTabs() (map[int]struct{}, error) {
	vals, err := s.kv.Get(KeyTestTabs)
	if err != nil {
		return nil, fmt.Errorf("load test tabs: %w", err)
	}
	set := make(map[int]struct{})
	raw, ok := vals[KeyTestTabs]
	if !ok || len(raw) == 0 {
		return set, nil
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyTestTabs, err)
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// testTabsValue encodes the test-tab set as a sorted JSON array.
func testTabsValue(set map[int]struct{}) ([]byte, error) {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return json.Marshal(ids)
}

// saveTestTabs writes the test-tab set.
func (s *store) saveTestTabs(set map[int]struct{}) error {
	data, err := testTabsValue(set)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyTestTabs, err)
	}
	if err := s.kv.Set(map[string][]byte{KeyTestTabs: data}); err != nil {
		return fmt.Errorf("save test tabs: %w", err)
	}
	return nil
}

// saveLedgerAndTestTabs writes the activity maps and the test-tab set in one
// transaction.
func (s *store) saveLedgerAndTestTabs(l *Ledger, set map[int]struct{}) error {
	tabsJSON, err := json.Marshal(l.Tabs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyTabActivity, err)
	}
	urlsJSON, err := json.Marshal(l.URLs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyURLActivity, err)
	}
	testJSON, err := testTabsValue(set)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeyTestTabs, err)
	}
	if err := s.kv.Set(map[string][]byte{
		KeyTabActivity: tabsJSON,
		KeyURLActivity: urlsJSON,
		KeyTestTabs:    testJSON,
	}); err != nil {
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}
