package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/domain/activity"
	"github.com/corey/idletab/internal/ports"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "127.0.0.1:19017"

// Config holds HTTP server settings.
type Config struct {
	Addr string

	// CORSOrigins lets an extension page call the API, e.g.
	// "chrome-extension://<id>". Empty disables CORS.
	CORSOrigins string
}

// ProblemDetail is the error body, shaped after RFC 7807.
type ProblemDetail struct {
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance"`
}

// Server serves the dashboard, the JSON API, and Prometheus metrics.
type Server struct {
	app      *fiber.App
	queries  socket.AppQueries
	log      zerolog.Logger
	cfg      Config
	listener net.Listener
	started  time.Time
	stopOnce sync.Once
}

// NewServer builds the Fiber app. gatherer may be nil, in which case
// /metrics serves the default registry.
func NewServer(cfg Config, queries socket.AppQueries, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	log = log.With().Str("component", "web").Logger()
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler(log),
		}),
		queries: queries,
		log:     log,
		cfg:     cfg,
		started: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())

	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if s.cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
			AllowMethods: "GET, POST, PUT, OPTIONS",
		}))
	}

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}
		s.log.Debug().
			Str("method", c.Method()).
			Str("path", path).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html")
		return c.Send(indexHTML)
	})
	s.app.Get("/healthz", s.handleHealth)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handleSaveSettings)
	api.Post("/cleanup", s.handleCleanup)
	api.Post("/sync", s.handleSync)
	api.Post("/testmode", s.handleTestMode)
	api.Post("/tabs/:id/focus", s.handleFocus)
	api.Post("/events", s.handleEvent)
}

// Listen binds the configured address. Call Serve afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http api listening")
	return nil
}

// Serve blocks serving requests until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("web: Serve before Listen")
	}
	return s.app.Listener(s.listener)
}

// Shutdown stops the server, waiting up to timeout for in-flight requests.
// Idempotent.
func (s *Server) Shutdown(timeout time.Duration) error {
	var err error
	s.stopOnce.Do(func() {
		err = s.app.ShutdownWithTimeout(timeout)
	})
	return err
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// URL returns the dashboard URL.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// requestContext bounds a handler's browser calls.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), 60*time.Second)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	tabs, urls, test := s.queries.Tracked()
	alarms, notes := s.queries.Diagnostics()
	return c.JSON(socket.HealthResult{
		Status:        "ok",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		TrackedTabs:   tabs,
		TrackedURLs:   urls,
		TestTabs:      test,
		Alarms:        alarms,
		Notifications: notes,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, err := s.queries.Stats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	set, err := s.queries.Settings()
	if err != nil {
		s.log.Error().Err(err).Msg("get settings")
	}
	return c.JSON(set)
}

func (s *Server) handleSaveSettings(c *fiber.Ctx) error {
	var set activity.Settings
	if err := c.BodyParser(&set); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings body")
	}
	if err := s.queries.SaveSettings(set); err != nil {
		if errors.Is(err, activity.ErrInvalidSettings) {
			return c.Status(fiber.StatusBadRequest).JSON(socket.SuccessResult{Error: err.Error()})
		}
		return err
	}
	return c.JSON(socket.SuccessResult{Success: true})
}

func (s *Server) handleCleanup(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := s.queries.ForceCleanup(ctx)
	if err != nil {
		return err
	}
	return c.JSON(socket.CleanupResult{
		Success:    true,
		Closed:     res.Closed,
		Candidates: res.Candidates,
		Disabled:   res.Disabled,
		Failed:     res.Failed,
	})
}

func (s *Server) handleSync(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.queries.SyncTimers(ctx); err != nil {
		return err
	}
	return c.JSON(socket.SuccessResult{Success: true})
}

func (s *Server) handleTestMode(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := s.queries.StartTestMode(ctx)
	if err != nil {
		return err
	}
	return c.JSON(socket.TestModeResult{Success: true, Created: n})
}

func (s *Server) handleFocus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tab id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.queries.FocusTab(ctx, id); err != nil {
		if errors.Is(err, ports.ErrTabNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	return c.JSON(socket.SuccessResult{Success: true})
}

func (s *Server) handleEvent(c *fiber.Ctx) error {
	var ev ports.TabEvent
	if err := c.BodyParser(&ev); err != nil || !ev.Kind.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tab event")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := s.queries.HandleEvent(ctx, ev); err != nil {
		return err
	}
	return c.JSON(socket.SuccessResult{Success: true})
}

func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error().
				Err(err).
				Int("status", code).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("request failed")
		}
		return c.Status(code).JSON(ProblemDetail{
			Title:    utils.StatusMessage(code),
			Status:   code,
			Detail:   err.Error(),
			Instance: c.Path(),
		})
	}
}
