package ws

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PageCast/internal/capture"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCast/internal/viewer"
)

type fakeLoop struct {
	starts atomic.Int32
}

func (f *fakeLoop) Start() bool {
	return f.starts.Add(1) == 1
}

type harness struct {
	handler  *Handler
	registry *viewer.Registry
	loop     *fakeLoop
	metrics  *monitoring.Metrics
	url      string
}

func newHarness(t *testing.T, limit int, opts Options) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		registry: viewer.NewRegistry(limit),
		loop:     &fakeLoop{},
		metrics:  monitoring.NewMetrics(),
	}
	h.handler = NewHandler(h.registry, h.loop, opts, nil, h.metrics)

	router := gin.New()
	router.GET("/ws", h.handler.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		h.handler.CloseAll()
		srv.Close()
	})

	h.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) waitViewers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.registry.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestConnectRegistersViewerAndStartsLoop(t *testing.T) {
	h := newHarness(t, 0, DefaultOptions())

	conn := h.dial(t)
	h.waitViewers(t, 1)
	h.dial(t)
	h.waitViewers(t, 2)

	require.Eventually(t, func() bool { return h.loop.starts.Load() == 2 }, time.Second, 5*time.Millisecond)

	snap := h.registry.Snapshot()
	assert.True(t, strings.HasPrefix(snap[0].ID(), "viewer_"))

	require.NoError(t, conn.Close())
	h.waitViewers(t, 1)
}

func TestFrameArrivesAsBinaryMessage(t *testing.T) {
	h := newHarness(t, 0, DefaultOptions())
	conn := h.dial(t)
	h.waitViewers(t, 1)

	frame := capture.Frame{Seq: 7, Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01}, CapturedAt: time.Now()}
	require.NoError(t, h.registry.Snapshot()[0].Deliver(frame))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, frame.Data, data)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.WSMessages.WithLabelValues("out", "frame")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestViewerLimitRejectsWithServiceUnavailable(t *testing.T) {
	h := newHarness(t, 1, DefaultOptions())
	h.dial(t)
	h.waitViewers(t, 1)

	_, resp, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 1, h.registry.Len())
}

func TestCloseAllDisconnectsViewers(t *testing.T) {
	h := newHarness(t, 0, DefaultOptions())
	conn := h.dial(t)
	h.waitViewers(t, 1)
	v := h.registry.Snapshot()[0]

	h.handler.CloseAll()

	select {
	case <-v.Done():
	case <-time.After(time.Second):
		t.Fatal("viewer not closed")
	}
	err := v.Deliver(capture.Frame{Seq: 1})
	assert.ErrorIs(t, err, viewer.ErrViewerClosed)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	h.waitViewers(t, 0)
}

func TestIncomingInputDoesNotDisturbStream(t *testing.T) {
	h := newHarness(t, 0, DefaultOptions())
	conn := h.dial(t)
	h.waitViewers(t, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"click","x":10,"y":20}`)))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.WSMessages.WithLabelValues("in", "dropped")) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.registry.Snapshot()[0].Deliver(capture.Frame{Seq: 1, Data: []byte{0xFF, 0xD8}}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data)
}

func TestSlowViewerKeepsOnlyLatestFrame(t *testing.T) {
	c := newClient("viewer_test", nil, DefaultOptions(), zapNop(), nil)

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, c.Deliver(capture.Frame{Seq: seq}))
	}

	latest := c.take()
	require.NotNil(t, latest)
	assert.Equal(t, uint64(3), latest.Seq)
	assert.Nil(t, c.take())
	assert.Equal(t, uint64(2), c.Superseded())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := testStreamConfig()
	cfg.WriteTimeout = 2 * time.Second
	cfg.EnableInput = true

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 2*time.Second, opts.WriteTimeout)
	assert.True(t, opts.EnableInput)
	assert.Less(t, opts.PingPeriod, opts.PongWait)
}

// dialStalled connects a viewer that never reads, with a tiny receive buffer
// so the server's writes back up quickly.
func (h *harness) dialStalled(t *testing.T) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.SetReadBuffer(4096)
			}
			return conn, nil
		},
	}
	conn, _, err := dialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStalledViewerIsRemovedWhileOthersKeepStreaming(t *testing.T) {
	opts := DefaultOptions()
	opts.WriteTimeout = 100 * time.Millisecond
	h := newHarness(t, 0, opts)

	healthy := h.dial(t)
	h.waitViewers(t, 1)
	healthyID := h.registry.Snapshot()[0].ID()

	var received atomic.Int64
	go func() {
		for {
			if _, _, err := healthy.ReadMessage(); err != nil {
				return
			}
			received.Add(1)
		}
	}()

	h.dialStalled(t)
	h.waitViewers(t, 2)

	frame := capture.Frame{Data: make([]byte, 1<<20)}
	frame.Data[0], frame.Data[1] = 0xFF, 0xD8

	deadline := time.Now().Add(10 * time.Second)
	for h.registry.Len() == 2 {
		require.True(t, time.Now().Before(deadline), "stalled viewer was never removed")
		frame.Seq++
		start := time.Now()
		for _, v := range h.registry.Snapshot() {
			_ = v.Deliver(frame)
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	snap := h.registry.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, healthyID, snap[0].ID())

	before := received.Load()
	for i := 0; i < 3; i++ {
		frame.Seq++
		require.NoError(t, snap[0].Deliver(frame))
		time.Sleep(20 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return received.Load() > before }, 2*time.Second, 5*time.Millisecond)
}

func TestKeepaliveDropsSilentPeer(t *testing.T) {
	opts := DefaultOptions()
	opts.PingPeriod = 20 * time.Millisecond
	opts.PongWait = 200 * time.Millisecond
	h := newHarness(t, 0, opts)

	responsive := h.dial(t)
	var pings atomic.Int64
	responsive.SetPingHandler(func(data string) error {
		pings.Add(1)
		return responsive.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := responsive.ReadMessage(); err != nil {
				return
			}
		}
	}()
	h.waitViewers(t, 1)

	// Never reads, so pings go unanswered.
	h.dial(t)
	h.waitViewers(t, 2)

	h.waitViewers(t, 1)
	require.Eventually(t, func() bool { return pings.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(2 * opts.PongWait)
	assert.Equal(t, 1, h.registry.Len())
}
