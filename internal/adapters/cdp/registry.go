package cdp

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/corey/idletab/internal/ports"
)

// registry maps CDP target IDs (opaque strings) to the small integer tab IDs
// the rest of the daemon uses. IDs start at 1 and are never reused within a
// connection, so a reconnect behaves like a browser restart.
type registry struct {
	mu     sync.Mutex
	ids    map[proto.TargetTargetID]int
	rev    map[int]proto.TargetTargetID
	nextID int
}

func newRegistry() *registry {
	return &registry{
		ids:    make(map[proto.TargetTargetID]int),
		rev:    make(map[int]proto.TargetTargetID),
		nextID: 1,
	}
}

// idFor returns the tab ID for target, assigning one on first sight.
func (r *registry) idFor(target proto.TargetTargetID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[target]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.ids[target] = id
	r.rev[id] = target
	return id
}

// lookup returns the target for a tab ID.
func (r *registry) lookup(id int) (proto.TargetTargetID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rev[id]
	return t, ok
}

// forget drops a target and returns the ID it had.
func (r *registry) forget(target proto.TargetTargetID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[target]
	if !ok {
		return 0, false
	}
	delete(r.ids, target)
	delete(r.rev, id)
	return id, true
}

// retain drops every target not in live. Used after a full enumeration so
// targets destroyed while no one was listening do not linger.
func (r *registry) retain(live map[proto.TargetTargetID]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for target, id := range r.ids {
		if _, ok := live[target]; !ok {
			delete(r.ids, target)
			delete(r.rev, id)
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// pageTarget is the target type of a browser tab.
const pageTarget proto.TargetTargetInfoType = "page"

// isTab reports whether a target is a browser tab. Service workers, iframes,
// and extension background pages are targets too.
func isTab(info *proto.TargetTargetInfo) bool {
	return info != nil && info.Type == pageTarget
}

// toTab converts target info to a snapshot under id.
func toTab(id int, info *proto.TargetTargetInfo) ports.Tab {
	return ports.Tab{
		ID:    id,
		URL:   info.URL,
		Title: info.Title,
	}
}
