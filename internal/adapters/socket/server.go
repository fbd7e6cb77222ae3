package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/domain/activity"
	"github.com/corey/idletab/internal/ports"
)

// AppQueries is what the server needs from the daemon. Every method may
// block on the browser; ctx is cancelled when the server stops.
// Thread safety is the implementor's responsibility.
type AppQueries interface {
	Stats(ctx context.Context) (activity.Stats, error)
	ForceCleanup(ctx context.Context) (activity.SweepResult, error)
	Settings() (activity.Settings, error)
	SaveSettings(set activity.Settings) error
	StartTestMode(ctx context.Context) (int, error)
	SyncTimers(ctx context.Context) error
	FocusTab(ctx context.Context, tabID int) error
	HandleEvent(ctx context.Context, ev ports.TabEvent) error
	Tracked() (tabs, urls, testTabs int)
	Diagnostics() (alarms []string, notes []Notification)
}

// Server is the daemon endpoint that listens on a Unix socket.
type Server struct {
	queries  AppQueries
	log      zerolog.Logger
	listener net.Listener
	sockPath string
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by queries.
func NewServer(queries AppQueries, sockPath string, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		queries:    queries,
		log:        log.With().Str("component", "socket").Logger(),
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first — if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket — remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info().Str("socket", s.sockPath).Msg("listening")
	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent — safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	stop := context.AfterFunc(s.ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodGetTabStats:
		return s.handleStats(req)
	case MethodForceCleanup:
		return s.handleCleanup(req)
	case MethodGetSettings:
		return s.handleGetSettings(req)
	case MethodSaveSettings:
		return s.handleSaveSettings(req)
	case MethodStartTestMode:
		return s.handleTestMode(req)
	case MethodSyncTimers:
		return s.handleSync(req)
	case MethodFocusTab:
		return s.handleFocus(req)
	case MethodTabEvent:
		return s.handleTabEvent(req)
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// fail logs err and converts it to an error response.
func (s *Server) fail(req Request, err error) Response {
	s.log.Error().Err(err).Str("method", req.Method).Str("request_id", req.ID).Msg("request failed")
	return Response{ID: req.ID, Error: err.Error()}
}

func (s *Server) handleStats(req Request) Response {
	st, err := s.queries.Stats(s.ctx)
	if err != nil {
		return s.fail(req, err)
	}
	return Response{ID: req.ID, Result: st}
}

func (s *Server) handleCleanup(req Request) Response {
	res, err := s.queries.ForceCleanup(s.ctx)
	if err != nil {
		return s.fail(req, err)
	}
	return Response{ID: req.ID, Result: CleanupResult{
		Success:    true,
		Closed:     res.Closed,
		Candidates: res.Candidates,
		Disabled:   res.Disabled,
		Failed:     res.Failed,
	}}
}

func (s *Server) handleGetSettings(req Request) Response {
	set, err := s.queries.Settings()
	if err != nil {
		// Defaults are still usable by the UI.
		s.log.Error().Err(err).Msg("get settings")
	}
	return Response{ID: req.ID, Result: set}
}

func (s *Server) handleSaveSettings(req Request) Response {
	var set SettingsParams
	if err := decodeParams(req.Params, &set); err != nil {
		return Response{ID: req.ID, Error: "invalid settings params"}
	}
	if err := s.queries.SaveSettings(set); err != nil {
		if !errors.Is(err, activity.ErrInvalidSettings) {
			s.log.Error().Err(err).Msg("save settings")
		}
		return Response{ID: req.ID, Result: SuccessResult{Success: false, Error: err.Error()}}
	}
	return Response{ID: req.ID, Result: SuccessResult{Success: true}}
}

func (s *Server) handleTestMode(req Request) Response {
	n, err := s.queries.StartTestMode(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("start test mode")
		return Response{ID: req.ID, Result: TestModeResult{Success: false, Created: n, Error: err.Error()}}
	}
	return Response{ID: req.ID, Result: TestModeResult{Success: true, Created: n}}
}

func (s *Server) handleSync(req Request) Response {
	if err := s.queries.SyncTimers(s.ctx); err != nil {
		return s.fail(req, err)
	}
	return Response{ID: req.ID, Result: SuccessResult{Success: true}}
}

func (s *Server) handleFocus(req Request) Response {
	var p FocusParams
	if err := decodeParams(req.Params, &p); err != nil || p.TabID <= 0 {
		return Response{ID: req.ID, Error: "invalid focus params"}
	}
	if err := s.queries.FocusTab(s.ctx, p.TabID); err != nil {
		return s.fail(req, err)
	}
	return Response{ID: req.ID, Result: SuccessResult{Success: true}}
}

func (s *Server) handleTabEvent(req Request) Response {
	var ev ports.TabEvent
	if err := decodeParams(req.Params, &ev); err != nil || !ev.Kind.Valid() {
		return Response{ID: req.ID, Error: "invalid tab event"}
	}
	if err := s.queries.HandleEvent(s.ctx, ev); err != nil {
		return s.fail(req, err)
	}
	return Response{ID: req.ID, Result: SuccessResult{Success: true}}
}

func (s *Server) handleHealth(req Request) Response {
	tabs, urls, test := s.queries.Tracked()
	alarms, notes := s.queries.Diagnostics()
	return Response{
		ID: req.ID,
		Result: HealthResult{
			Status:        "ok",
			Uptime:        time.Since(s.started).Round(time.Second).String(),
			TrackedTabs:   tabs,
			TrackedURLs:   urls,
			TestTabs:      test,
			Alarms:        alarms,
			Notifications: notes,
		},
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
