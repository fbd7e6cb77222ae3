// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the idletab daemon: create, start, stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/corey/idletab/internal/adapters/alarm"
	"github.com/corey/idletab/internal/adapters/bbolt"
	fsw "github.com/corey/idletab/internal/adapters/fsnotify"
	"github.com/corey/idletab/internal/adapters/notify"
	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/adapters/web"
	"github.com/corey/idletab/internal/config"
	"github.com/corey/idletab/internal/domain/activity"
	"github.com/corey/idletab/internal/ports"
)

// Alarm names.
const (
	AlarmCheckInactive = "checkInactiveTabs"
	AlarmSyncTimers    = "syncTimers"
)

// Sweep triggers, used as metric labels.
const (
	triggerAlarm  = "alarm"
	triggerManual = "manual"
)

// eventBuffer is how many host events may queue before the source blocks.
const eventBuffer = 256

// App is the top-level container wiring all components together.
type App struct {
	Paths     *Paths
	Config    config.Config
	Store     *bbolt.Store
	Engine    *activity.Engine
	Server    *socket.Server
	WebServer *web.Server // nil when the HTTP API is disabled
	Alarms    *alarm.Scheduler
	Watcher   *fsw.Watcher
	Metrics   *Metrics
	Notifier  ports.Notifier

	notes  *notify.LogNotifier
	tabs   ports.TabDirectory
	source ports.EventSource // nil when the host pushes events over the socket
	log    zerolog.Logger

	// ctx lives until Stop. Startup work that must outlive a request
	// (the delayed URL cleanup) is scheduled on it.
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	events chan ports.TabEvent

	mu       sync.Mutex
	cfgMu    sync.RWMutex
	started  bool
	stopOnce sync.Once
}

// Options holds initialization parameters for the App.
type Options struct {
	Paths  *Paths
	Config config.Config

	// Tabs is the browser. Required.
	Tabs ports.TabDirectory

	// Events delivers host lifecycle events. Optional: an extension bridge
	// may push them over the socket instead.
	Events ports.EventSource

	// Notifier receives every notification in addition to the daemon's
	// own log notifier.
	Notifier ports.Notifier

	// SocketPath defaults to socket.SocketPath(Paths.Root).
	SocketPath string

	// Profile selects the storage bucket. Defaults to bbolt.DefaultProfile.
	Profile string

	// Now overrides the engine clock (tests).
	Now func() time.Time

	Logger zerolog.Logger
}

// New creates an App with all dependencies wired. Does not start services.
func New(opts Options) (*App, error) {
	if opts.Paths == nil {
		return nil, errors.New("paths required")
	}
	if opts.Tabs == nil {
		return nil, errors.New("tab directory required")
	}
	if opts.Profile == "" {
		opts.Profile = bbolt.DefaultProfile
	}
	if opts.SocketPath == "" {
		opts.SocketPath = socket.SocketPath(opts.Paths.Root)
	}
	log := opts.Logger
	notes := notify.New(log, 50)
	var notifier ports.Notifier = notes
	if opts.Notifier != nil {
		notifier = notify.Fanout{notes, opts.Notifier}
	}

	store, err := bbolt.NewStore(opts.Paths.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := activity.NewEngine(opts.Tabs, store.Profile(opts.Profile), notifier, activity.Config{
		TestTabCount:  opts.Config.TestTabCount,
		RecencyWindow: opts.Config.RecencyWindow,
		CleanupGrace:  opts.Config.CleanupGrace,
		Now:           opts.Now,
		Logger:        log,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	watcher, err := fsw.NewWatcher()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Paths:    opts.Paths,
		Config:   opts.Config,
		Store:    store,
		Engine:   engine,
		Alarms:   alarm.NewScheduler(4),
		Watcher:  watcher,
		Metrics:  NewMetrics(),
		Notifier: notifier,
		notes:    notes,
		tabs:     opts.Tabs,
		source:   opts.Events,
		log:      log.With().Str("component", "app").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan ports.TabEvent, eventBuffer),
	}

	a.Server = socket.NewServer(a, opts.SocketPath, log)
	if opts.Config.HTTPAddr != "" {
		a.WebServer = web.NewServer(web.Config{
			Addr:        opts.Config.HTTPAddr,
			CORSOrigins: opts.Config.CORSOrigins,
		}, a, a.Metrics.Gatherer(), log)
	}
	return a, nil
}

// Start begins the daemon: socket server, HTTP server, config watcher, event
// pump, and alarms. The browser is treated as freshly started, so the restore
// pass runs first.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("already started")
	}

	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	g, ctx := errgroup.WithContext(a.ctx)
	a.group = g

	// HTTP dashboard — non-fatal if the address is unavailable
	if a.WebServer != nil {
		if err := a.WebServer.Listen(); err != nil {
			a.log.Warn().Err(err).Msg("http api unavailable")
			a.WebServer = nil
		} else {
			if err := os.WriteFile(a.Paths.AddrFile, []byte(a.WebServer.Addr()), 0644); err != nil {
				a.log.Warn().Err(err).Msg("write http address file")
			}
			g.Go(a.WebServer.Serve)
		}
	}

	// Config watcher — non-fatal if setup fails
	if err := a.Watcher.WatchFile(a.Paths.Config, a.onConfigChanged); err != nil {
		a.log.Warn().Err(err).Msg("config watcher unavailable")
	}

	a.events <- ports.TabEvent{Kind: ports.EventStartup}
	g.Go(func() error { return a.pumpEvents(ctx) })

	if a.source != nil {
		if err := a.source.Start(a.enqueue); err != nil {
			a.log.Warn().Err(err).Msg("host event source unavailable")
		}
	}

	a.Alarms.Create(AlarmCheckInactive, a.Config.SweepDelay, a.Config.SweepPeriod)
	a.Alarms.Create(AlarmSyncTimers, a.Config.SyncPeriod, a.Config.SyncPeriod)
	g.Go(func() error { return a.alarmLoop(ctx) })

	a.started = true
	started := a.log.Info().
		Str("socket", a.Server.Addr()).
		Dur("sweep_period", a.Config.SweepPeriod)
	if a.WebServer != nil {
		started = started.Str("dashboard", a.WebServer.URL())
	}
	started.Msg("daemon started")
	return nil
}

// Run starts the daemon and blocks until ctx is done or a remote shutdown
// request arrives, then stops it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-a.Server.ShutdownCh():
		a.log.Info().Msg("remote shutdown requested")
	}
	return a.Stop()
}

// Stop gracefully shuts down all services. Idempotent.
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.source != nil {
			a.source.Stop()
		}
		a.Alarms.Close()
		a.Watcher.Stop()
		if a.WebServer != nil {
			if serr := a.WebServer.Shutdown(5 * time.Second); serr != nil {
				a.log.Warn().Err(serr).Msg("http shutdown")
			}
		}
		a.Server.Stop()
		a.cancel()

		a.mu.Lock()
		g := a.group
		a.mu.Unlock()
		if g != nil {
			if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
				err = werr
			}
		}
		// The engine may still be draining a timer scheduled on a.ctx; it
		// exits on cancel without touching the store.
		if cerr := a.Store.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.Paths.CleanEphemeral()
		a.log.Info().Msg("daemon stopped")
	})
	return err
}

// enqueue is the EventSource callback. It blocks while the queue is full so
// events are never dropped, and gives up once the daemon stops.
func (a *App) enqueue(ev ports.TabEvent) {
	select {
	case a.events <- ev:
	case <-a.ctx.Done():
	}
}

// pumpEvents applies queued host events in arrival order.
func (a *App) pumpEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.events:
			if err := a.HandleEvent(ctx, ev); err != nil {
				a.log.Warn().Err(err).Str("kind", string(ev.Kind)).Int("tab", ev.TabID).Msg("handle event")
			}
		}
	}
}

// alarmLoop runs the sweep and the periodic sync as their alarms fire.
func (a *App) alarmLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name := <-a.Alarms.Fired():
			a.onAlarm(ctx, name)
		}
	}
}

func (a *App) onAlarm(ctx context.Context, name string) {
	switch name {
	case AlarmCheckInactive:
		if _, err := a.sweep(ctx, triggerAlarm); err != nil {
			a.log.Error().Err(err).Msg("scheduled sweep")
		}
	case AlarmSyncTimers:
		a.cfgMu.RLock()
		minInterval := a.Config.MinSyncInterval
		a.cfgMu.RUnlock()
		ran, changed, err := a.Engine.SyncIfDue(ctx, minInterval)
		if err != nil {
			a.log.Error().Err(err).Msg("scheduled sync")
			return
		}
		if ran {
			a.Metrics.RecordSync(triggerAlarm, changed)
		}
	default:
		a.log.Warn().Str("alarm", name).Msg("unknown alarm")
	}
}

func (a *App) sweep(ctx context.Context, trigger string) (activity.SweepResult, error) {
	defer a.Metrics.ObserveDuration("sweep", time.Now())
	res, err := a.Engine.Sweep(ctx)
	a.Metrics.RecordSweep(trigger, res.Closed, len(res.Failed), err)
	return res, err
}

// onConfigChanged re-reads the config file and applies what can change at
// runtime: the log level and the sync rate limit.
func (a *App) onConfigChanged(path string) {
	cfg, err := config.Load(a.Paths.Root)
	if err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("config reload rejected")
		return
	}
	zerolog.SetGlobalLevel(cfg.Level())

	a.cfgMu.Lock()
	a.Config.LogLevel = cfg.LogLevel
	a.Config.MinSyncInterval = cfg.MinSyncInterval
	a.cfgMu.Unlock()
	a.log.Info().Str("log_level", cfg.Level().String()).Msg("config reloaded")
}

// --- socket.AppQueries ---

// Stats returns the dashboard view.
func (a *App) Stats(ctx context.Context) (activity.Stats, error) {
	defer a.Metrics.ObserveDuration("stats", time.Now())
	return a.Engine.Stats(ctx)
}

// ForceCleanup runs a sweep now.
func (a *App) ForceCleanup(ctx context.Context) (activity.SweepResult, error) {
	return a.sweep(ctx, triggerManual)
}

// Settings returns the stored settings.
func (a *App) Settings() (activity.Settings, error) {
	return a.Engine.Settings()
}

// SaveSettings validates and stores settings.
func (a *App) SaveSettings(set activity.Settings) error {
	return a.Engine.SaveSettings(set)
}

// StartTestMode opens the synthetic overdue tabs.
func (a *App) StartTestMode(ctx context.Context) (int, error) {
	return a.Engine.StartTestMode(ctx)
}

// SyncTimers runs the full reconciliation.
func (a *App) SyncTimers(ctx context.Context) error {
	defer a.Metrics.ObserveDuration("sync", time.Now())
	changed, err := a.Engine.SyncTimers(ctx)
	if err != nil {
		return err
	}
	a.Metrics.RecordSync(triggerManual, changed)
	return nil
}

// FocusTab brings a tab to the front and records it as used.
func (a *App) FocusTab(ctx context.Context, tabID int) error {
	if err := a.tabs.Activate(ctx, tabID); err != nil {
		return fmt.Errorf("activate tab %d: %w", tabID, err)
	}
	return a.Engine.OnActivated(ctx, tabID)
}

// HandleEvent applies one host lifecycle event.
func (a *App) HandleEvent(ctx context.Context, ev ports.TabEvent) error {
	if ev.Kind == ports.EventInstalled || ev.Kind == ports.EventStartup {
		// The delayed URL cleanup must outlive the request that asked for it.
		ctx = a.ctx
	}
	err := a.Engine.HandleEvent(ctx, ev)
	a.Metrics.RecordEvent(string(ev.Kind), err)
	return err
}

// Tracked returns ledger sizes for health reporting.
func (a *App) Tracked() (tabs, urls, testTabs int) {
	l, err := a.Engine.Snapshot()
	if err != nil {
		a.log.Warn().Err(err).Msg("read ledger")
		return 0, 0, len(a.Engine.TestTabs())
	}
	a.Metrics.SetTracked(len(l.Tabs), len(l.URLs))
	return len(l.Tabs), len(l.URLs), len(a.Engine.TestTabs())
}

// Diagnostics returns the scheduled alarms and the most recent notifications.
func (a *App) Diagnostics() ([]string, []socket.Notification) {
	recent := a.notes.Recent()
	notes := make([]socket.Notification, len(recent))
	for i, e := range recent {
		notes[i] = socket.Notification{Title: e.Title, Message: e.Message, At: e.At}
	}
	return a.Alarms.Pending(), notes
}
