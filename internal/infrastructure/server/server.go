package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/PageCast/internal/api/http"
	"github.com/GriffinCanCode/PageCast/internal/api/middleware"
	"github.com/GriffinCanCode/PageCast/internal/api/ws"
	"github.com/GriffinCanCode/PageCast/internal/broadcast"
	"github.com/GriffinCanCode/PageCast/internal/capture"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/PageCast/internal/render"
	"github.com/GriffinCanCode/PageCast/internal/viewer"
)

//go:embed static
var staticFiles embed.FS

const viewerPage = "viewer.html"

// Server wires the render surface, the broadcast core and the gateway.
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	source   *capture.Source
	registry *viewer.Registry
	loop     *broadcast.Loop
	ws       *ws.Handler
	router   *gin.Engine

	mu   sync.Mutex
	http *http.Server

	closeOnce sync.Once
}

// NewServer preflights the target, launches the browser and builds the
// router. A launch failure is returned as *render.LaunchError or
// *render.NavigationTimeoutError and is fatal.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing PageCast",
		zap.String("addr", cfg.Addr()),
		zap.String("target", cfg.Target.URL),
		zap.Int("fps", cfg.Stream.FPS),
		zap.Int("quality", cfg.Stream.Quality),
	)

	page := handlers.PageInfo{
		URL:          cfg.Target.URL,
		Width:        cfg.Target.ViewportWidth,
		Height:       cfg.Target.ViewportHeight,
		FPS:          cfg.Stream.FPS,
		Quality:      cfg.Stream.Quality,
		InputEnabled: cfg.Stream.EnableInput,
	}

	if cfg.Target.Preflight {
		pcfg := render.DefaultPreflightConfig()
		pcfg.UserAgent = cfg.Target.UserAgent
		pcfg.AcceptLanguage = cfg.Target.AcceptLanguage

		info, err := render.NewPreflighter(pcfg).Check(ctx, cfg.Target.URL)
		if err != nil {
			// Bot protection often rejects plain HTTP clients but lets a real
			// browser through, so this is only a warning.
			logger.Warn("Target preflight failed", zap.Error(err))
		} else {
			page.Title = info.Title
			logger.Info("Target preflight ok",
				zap.Int("status", info.StatusCode),
				zap.String("content_type", info.ContentType),
				zap.String("title", info.Title),
			)
		}
	}

	surface, err := render.Launch(ctx, render.OptionsFromConfig(cfg.Target), logger.Component("render"))
	if err != nil {
		return nil, err
	}
	if title := surface.Title(); title != "" {
		page.Title = title
	}

	return newServer(cfg, logger, surface, page), nil
}

// newServer builds everything above the render surface. It takes ownership
// of surface.
func newServer(cfg *config.Config, logger *logging.Logger, surface capture.Surface, page handlers.PageInfo) *Server {
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("pagecast", logger.Logger)

	source := capture.NewSource(surface, capture.Options{
		FPS:     cfg.Stream.FPS,
		Quality: cfg.Stream.Quality,
		Timeout: cfg.Stream.CaptureTimeout,
	}, logger.Component("capture")).WithMetrics(metrics)

	registry := viewer.NewRegistry(cfg.Stream.MaxViewers)
	registry.OnChange(metrics.SetViewers)

	loop := broadcast.New(source, registry, broadcast.OptionsFromConfig(cfg.Stream), logger.Component("broadcast")).
		WithMetrics(metrics)
	wsHandler := ws.NewHandler(registry, loop, ws.OptionsFromConfig(cfg.Stream), logger.Component("ws"), metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.AccessLog(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	h := handlers.NewHandlers(page, registry, loop)

	registerStatic(router, cfg.Server.StaticDir)
	router.GET("/ws", wsHandler.HandleConnection)
	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		source:   source,
		registry: registry,
		loop:     loop,
		ws:       wsHandler,
		router:   router,
	}
}

// registerStatic serves the viewer page from dir, or the embedded copy when
// dir is empty.
func registerStatic(router *gin.Engine, dir string) {
	if dir != "" {
		router.Static("/static", dir)
		router.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(dir, viewerPage))
		})
		return
	}

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	page, err := fs.ReadFile(sub, viewerPage)
	if err != nil {
		panic(err)
	}

	router.StaticFS("/static", http.FS(sub))
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Loop returns the broadcast loop.
func (s *Server) Loop() *broadcast.Loop {
	return s.loop
}

// Run listens on the configured address until Close. A clean shutdown
// returns nil.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.http != nil {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the loop, releases the browser and shuts the HTTP server down.
// Safe to call more than once and from a signal handler. Cleanup failures,
// such as a browser that already crashed, are logged and do not fail the
// shutdown, so Close always returns nil.
func (s *Server) Close() error {
	s.closeOnce.Do(s.shutdown)
	return nil
}

func (s *Server) shutdown() {
	s.logger.Info("Shutting down server...")

	s.loop.Shutdown()
	s.logger.Info("Broadcast loop stopped")

	s.ws.CloseAll()

	if err := s.source.Close(); err != nil {
		s.logger.Warn("Failed to close render surface", zap.Error(err))
	} else {
		s.logger.Info("Render surface closed")
	}

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP shutdown did not complete", zap.Error(err))
		}
	}

	s.tracer.Close()
	_ = s.logger.Sync()
}
