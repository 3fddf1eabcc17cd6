package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/capture"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCast/internal/viewer"
)

// Client is one connected viewer.
//
// It holds at most one pending frame: Deliver overwrites whatever the writer
// has not sent yet, so a slow connection always gets the newest picture and
// never builds a backlog. All socket writes happen on the writer goroutine.
type Client struct {
	id      string
	conn    *websocket.Conn
	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	pending *capture.Frame
	notify  chan struct{}

	sent       atomic.Uint64
	superseded atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		opts:    opts,
		logger:  logger.With(zap.String("viewer_id", id)),
		metrics: metrics,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// ID returns the viewer ID.
func (c *Client) ID() string { return c.id }

// Done is closed when the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Deliver queues frame for sending and returns immediately.
func (c *Client) Deliver(frame capture.Frame) error {
	select {
	case <-c.done:
		return &viewer.DeliveryError{ViewerID: c.id, Err: viewer.ErrViewerClosed}
	default:
	}

	c.mu.Lock()
	if c.pending != nil {
		c.superseded.Add(1)
		if c.metrics != nil {
			c.metrics.RecordSuperseded()
		}
	}
	c.pending = &frame
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Sent returns the number of frames written to the socket.
func (c *Client) Sent() uint64 { return c.sent.Load() }

// Superseded returns the number of frames replaced before they were written.
func (c *Client) Superseded() uint64 { return c.superseded.Load() }

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
	})
}

func (c *Client) take() *capture.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.pending
	c.pending = nil
	return f
}

// writePump is the only goroutine that writes data frames and pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case <-c.notify:
			frame := c.take()
			if frame == nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame.Data); err != nil {
				c.logger.Debug("frame write failed", zap.Uint64("seq", frame.Seq), zap.Error(err))
				return
			}
			c.sent.Add(1)
			if c.metrics != nil {
				c.metrics.RecordWSMessage("out", "frame")
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains incoming messages until the connection fails. Pongs extend
// the read deadline so silent dead peers are detected.
func (c *Client) readPump(input *InputPolicy) {
	defer c.Close()

	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Debug("viewer read error", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		input.Handle(c.id, msgType, data)
	}
}
