package cdp

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/corey/idletab/internal/ports"
)

// translator turns Target domain events into TabEvents. It remembers the last
// URL per target because TargetInfoChanged also fires for title changes,
// which are not navigations.
type translator struct {
	reg *registry

	mu      sync.Mutex
	lastURL map[proto.TargetTargetID]string
}

func newTranslator(reg *registry) *translator {
	return &translator{reg: reg, lastURL: make(map[proto.TargetTargetID]string)}
}

func (t *translator) created(e *proto.TargetTargetCreated) (ports.TabEvent, bool) {
	if !isTab(e.TargetInfo) {
		return ports.TabEvent{}, false
	}
	info := e.TargetInfo
	t.mu.Lock()
	t.lastURL[info.TargetID] = info.URL
	t.mu.Unlock()

	id := t.reg.idFor(info.TargetID)
	tab := toTab(id, info)
	return ports.TabEvent{Kind: ports.EventCreated, TabID: id, Tab: &tab}, true
}

// changed reports a URL change as an update. Title-only changes map to a
// completed load, which the recorder treats as a non-user observation.
func (t *translator) changed(e *proto.TargetTargetInfoChanged) (ports.TabEvent, bool) {
	if !isTab(e.TargetInfo) {
		return ports.TabEvent{}, false
	}
	info := e.TargetInfo
	t.mu.Lock()
	prev, seen := t.lastURL[info.TargetID]
	t.lastURL[info.TargetID] = info.URL
	t.mu.Unlock()

	id := t.reg.idFor(info.TargetID)
	tab := toTab(id, info)
	change := &ports.TabChange{Status: ports.StatusComplete}
	if !seen || prev != info.URL {
		change = &ports.TabChange{URL: info.URL}
	}
	return ports.TabEvent{Kind: ports.EventUpdated, TabID: id, Change: change, Tab: &tab}, true
}

func (t *translator) destroyed(e *proto.TargetTargetDestroyed) (ports.TabEvent, bool) {
	t.mu.Lock()
	delete(t.lastURL, e.TargetID)
	t.mu.Unlock()

	id, ok := t.reg.forget(e.TargetID)
	if !ok {
		return ports.TabEvent{}, false
	}
	return ports.TabEvent{Kind: ports.EventRemoved, TabID: id}, true
}
