// Package memhost is an in-memory host: a tab directory, key-value store, and
// notifier with no browser behind them. Tests use it as the shared fake, and
// the daemon uses it when started with --host=memory for dry runs.
package memhost

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corey/idletab/internal/ports"
)

// Browser is an in-memory ports.TabDirectory. Tab IDs start at 1 and are
// never reused within one session; Restart renumbers every tab the way a real
// browser does when it restores a session.
type Browser struct {
	mu     sync.Mutex
	tabs   map[int]ports.Tab
	nextID int

	activated []int

	// Fault injection. Set before use; guarded by mu.
	queryErr   error
	createErr  map[int]error // by create attempt number, from 0
	removeErr  map[int]error // by tab ID
	createSeen int
}

var _ ports.TabDirectory = (*Browser)(nil)

// NewBrowser returns an empty browser.
func NewBrowser() *Browser {
	return &Browser{
		tabs:      make(map[int]ports.Tab),
		nextID:    1,
		createErr: make(map[int]error),
		removeErr: make(map[int]error),
	}
}

// Open adds a tab showing url and returns it.
func (b *Browser) Open(url string) ports.Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openLocked(ports.Tab{URL: url})
}

// OpenTab adds a tab with the given fields; ID is assigned.
func (b *Browser) OpenTab(t ports.Tab) ports.Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openLocked(t)
}

func (b *Browser) openLocked(t ports.Tab) ports.Tab {
	t.ID = b.nextID
	b.nextID++
	b.tabs[t.ID] = t
	return t
}

// Navigate commits url in tab id.
func (b *Browser) Navigate(id int, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tabs[id]; ok {
		t.URL = url
		t.PendingURL = ""
		b.tabs[id] = t
	}
}

// Close removes a tab without going through Remove (the user closed it).
func (b *Browser) Close(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tabs, id)
}

// Restart reopens every tab under a fresh ID, preserving order and fields.
// It returns the old-to-new ID mapping.
func (b *Browser) Restart() map[int]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.sortedIDsLocked()
	old := b.tabs
	b.tabs = make(map[int]ports.Tab, len(old))
	mapping := make(map[int]int, len(old))
	for _, id := range ids {
		t := b.openLocked(old[id])
		mapping[id] = t.ID
	}
	return mapping
}

// FailQuery makes Query return err until cleared with nil.
func (b *Browser) FailQuery(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queryErr = err
}

// FailCreate makes the n-th Create call (from 0) return err.
func (b *Browser) FailCreate(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createErr[n] = err
}

// FailRemove makes Remove(id) return err.
func (b *Browser) FailRemove(id int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeErr[id] = err
}

// Activated returns the IDs passed to Activate, in call order.
func (b *Browser) Activated() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.activated...)
}

// Len returns the number of open tabs.
func (b *Browser) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tabs)
}

// Has reports whether tab id is open.
func (b *Browser) Has(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tabs[id]
	return ok
}

func (b *Browser) sortedIDsLocked() []int {
	ids := make([]int, 0, len(b.tabs))
	for id := range b.tabs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Query returns all tabs ordered by ID.
func (b *Browser) Query(ctx context.Context) ([]ports.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queryErr != nil {
		return nil, b.queryErr
	}
	out := make([]ports.Tab, 0, len(b.tabs))
	for _, id := range b.sortedIDsLocked() {
		out = append(out, b.tabs[id])
	}
	return out, nil
}

// Get returns one tab or ports.ErrTabNotFound.
func (b *Browser) Get(ctx context.Context, id int) (ports.Tab, error) {
	if err := ctx.Err(); err != nil {
		return ports.Tab{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[id]
	if !ok {
		return ports.Tab{}, fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	return t, nil
}

// Create opens a tab. The URL is committed immediately.
func (b *Browser) Create(ctx context.Context, opts ports.CreateOptions) (ports.Tab, error) {
	if err := ctx.Err(); err != nil {
		return ports.Tab{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.createSeen
	b.createSeen++
	if err := b.createErr[n]; err != nil {
		return ports.Tab{}, err
	}
	return b.openLocked(ports.Tab{URL: opts.URL}), nil
}

// Remove closes a tab.
func (b *Browser) Remove(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.removeErr[id]; err != nil {
		return err
	}
	if _, ok := b.tabs[id]; !ok {
		return fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	delete(b.tabs, id)
	return nil
}

// Activate records the focus request.
func (b *Browser) Activate(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[id]; !ok {
		return fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	b.activated = append(b.activated, id)
	return nil
}

// KV is an in-memory ports.KeyValueStore.
type KV struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
	setErr error
}

var _ ports.KeyValueStore = (*KV)(nil)

// NewKV returns an empty store.
func NewKV() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get returns copies of the requested values.
func (s *KV) Get(keys ...string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Set writes all values atomically. A nil value deletes the key.
func (s *KV) Set(values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	for k, v := range values {
		if v == nil {
			delete(s.data, k)
			continue
		}
		s.data[k] = append([]byte(nil), v...)
	}
	s.writes++
	return nil
}

// Writes returns how many Set calls succeeded.
func (s *KV) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FailSet makes Set return err until cleared with nil.
func (s *KV) FailSet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

// Message is one notification.
type Message struct {
	Title   string
	Message string
}

// Notifier records notifications.
type Notifier struct {
	mu   sync.Mutex
	msgs []Message
}

var _ ports.Notifier = (*Notifier)(nil)

// Notify records the message.
func (n *Notifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, Message{Title: title, Message: message})
}

// Messages returns every notification so far.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.msgs...)
}
