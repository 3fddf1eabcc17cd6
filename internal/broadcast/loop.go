package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/capture"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/PageCast/internal/viewer"
)

// FrameSource produces one frame per call.
type FrameSource interface {
	Capture(ctx context.Context) (capture.Frame, error)
}

// Viewers is the read side of the viewer registry.
type Viewers interface {
	Snapshot() []viewer.Viewer
	IsEmpty() bool
}

const (
	modeIdle      = "idle"
	modeStreaming = "streaming"
)

// Loop is the single capture-and-broadcast goroutine. While nobody watches it
// idles without capturing; while viewers are registered it captures and fans
// each frame out to a snapshot of them. It never exits on its own.
type Loop struct {
	source  FrameSource
	viewers Viewers
	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics
	breaker *resilience.Breaker

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	mode          atomic.Value
	ticks         atomic.Uint64
	frames        atomic.Uint64
	captureErrors atomic.Uint64
	skipped       atomic.Uint64
	deliveries    atomic.Uint64
	failures      atomic.Uint64
	lastFrame     atomic.Int64
}

// New creates a stopped loop.
func New(source FrameSource, viewers Viewers, opts Options, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loop{
		source:  source,
		viewers: viewers,
		opts:    opts,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
	l.mode.Store(modeIdle)

	if opts.BreakerThreshold > 0 {
		l.breaker = resilience.New("capture", resilience.Settings{
			Timeout:     opts.BreakerCooldown,
			ReadyToTrip: resilience.ConsecutiveFailures(uint32(opts.BreakerThreshold)),
			OnStateChange: func(name string, from, to resilience.State) {
				l.logger.Warn("capture breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
				if l.metrics != nil {
					l.metrics.SetBreakerState(int(to))
				}
			},
		})
	}
	return l
}

// WithMetrics attaches metrics. Call before Start.
func (l *Loop) WithMetrics(metrics *monitoring.Metrics) *Loop {
	l.metrics = metrics
	return l
}

// Start launches the loop goroutine if it is not running yet and reports
// whether this call started it. Repeated or concurrent calls never start a
// second goroutine; a call while running cuts short the current idle wait so
// a newly joined viewer is served at once. After Shutdown, Start does nothing.
func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateClosed:
		return false
	case StateRunning:
		select {
		case l.wake <- struct{}{}:
		default:
		}
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = StateRunning
	l.setStateMetric(StateRunning)

	go l.run(ctx, l.done)

	l.logger.Info("broadcast loop started",
		zap.Int("fps", l.opts.FPS),
		zap.Duration("frame_period", l.opts.FramePeriod()),
		zap.Duration("idle_interval", l.opts.IdleInterval),
	)
	return true
}

// Shutdown stops the loop and waits for its goroutine to exit. It is safe to
// call any number of times from any goroutine; every call returns only once
// the goroutine is gone.
func (l *Loop) Shutdown() {
	l.mu.Lock()
	prev := l.state
	l.state = StateClosed
	done := l.done
	if prev == StateRunning {
		l.cancel()
	}
	l.mu.Unlock()

	if done != nil {
		<-done
	}
	if prev != StateClosed {
		l.setStateMetric(StateClosed)
		l.logger.Info("broadcast loop stopped", zap.Stringer("previous", prev))
	}
}

// State returns the current run state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns a snapshot of loop counters.
func (l *Loop) Stats() Stats {
	s := Stats{
		State:            l.State().String(),
		Mode:             l.mode.Load().(string),
		Ticks:            l.ticks.Load(),
		Frames:           l.frames.Load(),
		CaptureErrors:    l.captureErrors.Load(),
		Skipped:          l.skipped.Load(),
		Deliveries:       l.deliveries.Load(),
		DeliveryFailures: l.failures.Load(),
		Breaker:          "disabled",
	}
	if ns := l.lastFrame.Load(); ns != 0 {
		s.LastFrameAt = time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
	}
	if l.breaker != nil {
		s.Breaker = l.breaker.State().String()
	}
	return s
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait, wakeable := l.tick(ctx)
		if !l.sleep(ctx, wait, wakeable) {
			return
		}
	}
}

// tick performs one step and returns how long to wait before the next one
// and whether a viewer joining may cut that wait short.
func (l *Loop) tick(ctx context.Context) (time.Duration, bool) {
	l.ticks.Add(1)

	if l.viewers.IsEmpty() {
		l.setMode(modeIdle)
		return l.opts.IdleInterval, true
	}
	l.setMode(modeStreaming)

	var report func(bool)
	if l.breaker != nil {
		done, err := l.breaker.Allow()
		if err != nil {
			l.skipped.Add(1)
			if ce := l.logger.Check(zap.DebugLevel, "capture skipped"); ce != nil {
				ce.Write(zap.Error(err))
			}
			return l.opts.ErrorBackoff, false
		}
		report = done
	}

	frame, err := l.source.Capture(ctx)
	if report != nil {
		// Shutdown interrupting a capture says nothing about the surface.
		report(err == nil || ctx.Err() != nil)
	}
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		n := l.captureErrors.Add(1)
		l.logger.Warn("capture failed",
			zap.Error(err),
			zap.Uint64("errors_total", n),
			zap.Duration("backoff", l.opts.ErrorBackoff),
		)
		return l.opts.ErrorBackoff, false
	}

	l.frames.Add(1)
	l.lastFrame.Store(frame.CapturedAt.UnixNano())
	l.distribute(frame)

	return l.opts.FramePeriod(), false
}

// distribute hands frame to every viewer registered at this moment. A viewer
// that fails is skipped for this frame only.
func (l *Loop) distribute(frame capture.Frame) {
	for _, v := range l.viewers.Snapshot() {
		err := v.Deliver(frame)
		if err == nil {
			l.deliveries.Add(1)
			if l.metrics != nil {
				l.metrics.RecordDelivery()
			}
			continue
		}

		var derr *viewer.DeliveryError
		if !errors.As(err, &derr) {
			derr = &viewer.DeliveryError{ViewerID: v.ID(), Err: err}
		}
		l.failures.Add(1)
		if l.metrics != nil {
			l.metrics.RecordDeliveryFailure(derr.Reason())
		}
		if ce := l.logger.Check(zap.DebugLevel, "frame not delivered"); ce != nil {
			ce.Write(zap.String("viewer_id", derr.ViewerID), zap.Uint64("seq", frame.Seq), zap.Error(derr.Err))
		}
	}
}

// sleep waits d or until shutdown. It returns false on shutdown.
func (l *Loop) sleep(ctx context.Context, d time.Duration, wakeable bool) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	var wake <-chan struct{}
	if wakeable {
		wake = l.wake
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-wake:
		return true
	case <-timer.C:
		return true
	}
}

func (l *Loop) setMode(mode string) {
	if prev := l.mode.Swap(mode); prev != mode {
		l.logger.Info("broadcast mode changed", zap.String("from", prev.(string)), zap.String("to", mode))
	}
}

func (l *Loop) setStateMetric(s State) {
	if l.metrics != nil {
		l.metrics.SetLoopState(int(s))
	}
}
