// Package cdp binds the daemon to a Chromium browser over the Chrome DevTools
// Protocol. It implements ports.TabDirectory and ports.EventSource using
// browser-level Target domain calls, so no page needs to be attached.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	rodcdp "github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/ports"
)

// Config selects the browser to drive.
type Config struct {
	// ControlURL is the DevTools websocket URL of a running browser. When
	// empty, a browser is launched.
	ControlURL string

	// Bin overrides the browser binary used when launching.
	Bin string

	// Headless launches without a window. Ignored with ControlURL.
	Headless bool
}

// Host is a CDP-backed tab directory and lifecycle event source.
type Host struct {
	browser *rod.Browser
	reg     *registry
	log     zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ ports.TabDirectory = (*Host)(nil)
	_ ports.EventSource  = (*Host)(nil)
)

// Connect attaches to (or launches) a browser.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*Host, error) {
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	h := &Host{
		browser: browser,
		reg:     newRegistry(),
		log:     log.With().Str("component", "cdp").Logger(),
	}
	h.log.Info().Str("control_url", controlURL).Msg("browser connected")
	return h, nil
}

// Close stops event delivery and disconnects.
func (h *Host) Close() error {
	h.Stop()
	return h.browser.Close()
}

func (h *Host) client(ctx context.Context) *rod.Browser {
	return h.browser.Context(ctx)
}

// Query enumerates every open tab.
func (h *Host) Query(ctx context.Context) ([]ports.Tab, error) {
	res, err := proto.TargetGetTargets{}.Call(h.client(ctx))
	if err != nil {
		return nil, fmt.Errorf("get targets: %w", err)
	}
	tabs := make([]ports.Tab, 0, len(res.TargetInfos))
	live := make(map[proto.TargetTargetID]struct{}, len(res.TargetInfos))
	for _, info := range res.TargetInfos {
		if !isTab(info) {
			continue
		}
		live[info.TargetID] = struct{}{}
		tabs = append(tabs, toTab(h.reg.idFor(info.TargetID), info))
	}
	h.reg.retain(live)
	return tabs, nil
}

// Get fetches one tab.
func (h *Host) Get(ctx context.Context, id int) (ports.Tab, error) {
	target, ok := h.reg.lookup(id)
	if !ok {
		return ports.Tab{}, fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	res, err := proto.TargetGetTargetInfo{TargetID: target}.Call(h.client(ctx))
	if err != nil {
		return ports.Tab{}, h.targetErr(id, target, err)
	}
	return toTab(id, res.TargetInfo), nil
}

// Create opens a tab. The URL is reported as pending until the host confirms
// the navigation.
func (h *Host) Create(ctx context.Context, opts ports.CreateOptions) (ports.Tab, error) {
	res, err := proto.TargetCreateTarget{
		URL:        opts.URL,
		Background: !opts.Active,
	}.Call(h.client(ctx))
	if err != nil {
		return ports.Tab{}, fmt.Errorf("create target: %w", err)
	}
	return ports.Tab{ID: h.reg.idFor(res.TargetID), PendingURL: opts.URL}, nil
}

// Remove closes a tab.
func (h *Host) Remove(ctx context.Context, id int) error {
	target, ok := h.reg.lookup(id)
	if !ok {
		return fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	if _, err := (proto.TargetCloseTarget{TargetID: target}).Call(h.client(ctx)); err != nil {
		return h.targetErr(id, target, err)
	}
	h.reg.forget(target)
	return nil
}

// Activate brings a tab to the front of its window.
func (h *Host) Activate(ctx context.Context, id int) error {
	target, ok := h.reg.lookup(id)
	if !ok {
		return fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	if err := (proto.TargetActivateTarget{TargetID: target}).Call(h.client(ctx)); err != nil {
		return h.targetErr(id, target, err)
	}
	return nil
}

// targetErr maps the browser's "no such target" reply to ErrTabNotFound and
// drops the stale mapping.
func (h *Host) targetErr(id int, target proto.TargetTargetID, err error) error {
	if isNoTarget(err) {
		h.reg.forget(target)
		return fmt.Errorf("tab %d: %w", id, ports.ErrTabNotFound)
	}
	return fmt.Errorf("tab %d: %w", id, err)
}

func isNoTarget(err error) bool {
	var cdpErr *rodcdp.Error
	return errors.As(err, &cdpErr) && strings.Contains(cdpErr.Message, "No target with given id")
}

// Start enables target discovery and delivers lifecycle events to callback
// until Stop.
func (h *Host) Start(callback func(ports.TabEvent)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return errors.New("cdp: already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := h.client(ctx)
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		cancel()
		return fmt.Errorf("discover targets: %w", err)
	}

	t := newTranslator(h.reg)
	wait := b.EachEvent(
		func(e *proto.TargetTargetCreated) {
			if ev, ok := t.created(e); ok {
				callback(ev)
			}
		},
		func(e *proto.TargetTargetInfoChanged) {
			if ev, ok := t.changed(e); ok {
				callback(ev)
			}
		},
		func(e *proto.TargetTargetDestroyed) {
			if ev, ok := t.destroyed(e); ok {
				callback(ev)
			}
		},
	)

	h.cancel = cancel
	h.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		wait()
	}(h.done)
	h.log.Info().Msg("listening for tab events")
	return nil
}

// Stop ends event delivery. Safe to call multiple times.
func (h *Host) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
