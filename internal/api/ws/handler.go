package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCast/internal/shared/id"
	"github.com/GriffinCanCode/PageCast/internal/viewer"
)

// Starter wakes the broadcast loop.
type Starter interface {
	Start() bool
}

// Options configures per-connection timing.
type Options struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingPeriod   time.Duration
	ReadLimit    int64
	EnableInput  bool
}

// DefaultOptions returns the gateway defaults.
func DefaultOptions() Options {
	return Options{
		WriteTimeout: 5 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   54 * time.Second,
		ReadLimit:    64 * 1024,
	}
}

// OptionsFromConfig maps the stream section of the service configuration.
func OptionsFromConfig(cfg config.StreamConfig) Options {
	opts := DefaultOptions()
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	opts.EnableInput = cfg.EnableInput
	return opts
}

// Handler upgrades /ws requests and turns each connection into a viewer.
type Handler struct {
	registry *viewer.Registry
	loop     Starter
	input    *InputPolicy
	opts     Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler.
func NewHandler(registry *viewer.Registry, loop Starter, opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PingPeriod <= 0 || opts.PongWait <= 0 {
		defaults := DefaultOptions()
		opts.PingPeriod, opts.PongWait = defaults.PingPeriod, defaults.PongWait
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultOptions().ReadLimit
	}

	return &Handler{
		registry: registry,
		loop:     loop,
		input:    NewInputPolicy(opts.EnableInput, logger, metrics),
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// The stream is read-only and public.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection serves one viewer until its connection ends.
func (h *Handler) HandleConnection(c *gin.Context) {
	if limit := h.registry.Limit(); limit > 0 && h.registry.Len() >= limit {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": viewer.ErrRegistryFull.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(string(id.NewViewerID()), conn, h.opts, h.logger, h.metrics)
	if err := h.registry.Add(client); err != nil {
		// Lost the race for the last slot.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	h.logger.Info("viewer connected",
		zap.String("viewer_id", client.ID()),
		zap.String("remote", c.ClientIP()),
		zap.Int("viewers", h.registry.Len()),
	)
	h.loop.Start()

	go client.writePump()
	client.readPump(h.input)

	h.registry.Remove(client)
	h.logger.Info("viewer disconnected",
		zap.String("viewer_id", client.ID()),
		zap.Uint64("frames_sent", client.Sent()),
		zap.Uint64("frames_superseded", client.Superseded()),
		zap.Int("viewers", h.registry.Len()),
	)
}

// CloseAll disconnects every registered viewer. Hijacked connections are
// not closed by http.Server.Shutdown.
func (h *Handler) CloseAll() {
	for _, v := range h.registry.Snapshot() {
		if client, ok := v.(*Client); ok {
			client.Close()
		}
	}
}

// Input returns the input policy in effect.
func (h *Handler) Input() *InputPolicy { return h.input }
