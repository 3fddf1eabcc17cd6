package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
)

// Surface is the part of a render surface the source needs.
type Surface interface {
	Screenshot(ctx context.Context, quality int) ([]byte, error)
	Close() error
}

// Options configures a Source.
type Options struct {
	// FPS bounds how often the surface is asked for a frame. Zero or less is unbounded.
	FPS int
	// Quality is the JPEG quality passed to the surface, 0-100.
	Quality int
	// Timeout bounds one screenshot. Zero disables the timeout.
	Timeout time.Duration
}

// Source turns a render surface into frames. It owns the surface and is the
// only thing allowed to close it.
type Source struct {
	surface Surface
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *monitoring.Metrics

	seq atomic.Uint64

	closeCtx  context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// NewSource takes ownership of surface.
func NewSource(surface Surface, opts Options, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if opts.FPS > 0 {
		limit = rate.Limit(opts.FPS)
	}

	closeCtx, cancel := context.WithCancel(context.Background())
	return &Source{
		surface:  surface,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		closeCtx: closeCtx,
		cancel:   cancel,
	}
}

// WithMetrics records capture timings and failures.
func (s *Source) WithMetrics(metrics *monitoring.Metrics) *Source {
	s.metrics = metrics
	return s
}

// Capture takes exactly one snapshot. It waits for the rate limiter first, so
// callers may invoke it in a tight loop without overdriving the browser.
// Failures are always *Error; nothing is retried here.
func (s *Source) Capture(ctx context.Context) (Frame, error) {
	if s.closeCtx.Err() != nil {
		return Frame{}, &Error{Op: "screenshot", Err: ErrSourceClosed}
	}

	// Close aborts a pending wait or screenshot.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.closeCtx, cancel)
	defer stop()

	if err := s.limiter.Wait(ctx); err != nil {
		return Frame{}, &Error{Op: "wait", Err: s.cause(ctx, err)}
	}

	shotCtx := ctx
	if s.opts.Timeout > 0 {
		var cancelShot context.CancelFunc
		shotCtx, cancelShot = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancelShot()
	}

	timer := monitoring.NewTimer(s.metrics)
	data, err := s.surface.Screenshot(shotCtx, s.opts.Quality)
	if err != nil {
		timer.Stop(-1)
		if ctx.Err() == nil && errors.Is(shotCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrCaptureTimeout, s.opts.Timeout)
		}
		return Frame{}, &Error{Op: "screenshot", Err: s.cause(ctx, err)}
	}

	if mt := mimetype.Detect(data); !mt.Is("image/jpeg") {
		timer.Stop(-1)
		return Frame{}, &Error{Op: "validate", Err: fmt.Errorf("%w: got %s", ErrNotJPEG, mt.String())}
	}

	elapsed := timer.Stop(len(data))
	frame := Frame{
		Seq:        s.seq.Add(1),
		Data:       data,
		CapturedAt: time.Now(),
	}
	if ce := s.logger.Check(zap.DebugLevel, "frame captured"); ce != nil {
		ce.Write(zap.Uint64("seq", frame.Seq), zap.Int("bytes", len(data)), zap.Duration("took", elapsed))
	}
	return frame, nil
}

// cause prefers ErrSourceClosed when the failure came from Close.
func (s *Source) cause(ctx context.Context, err error) error {
	if s.closeCtx.Err() != nil {
		return ErrSourceClosed
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Captured returns how many frames have been produced.
func (s *Source) Captured() uint64 {
	return s.seq.Load()
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	return s.closeCtx.Err() != nil
}

// Close releases the surface. Only the first call does work; later calls
// return the first result. Safe to call from a signal handler goroutine.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.surface.Close()
		if s.closeErr != nil {
			s.logger.Warn("closing render surface failed", zap.Error(s.closeErr))
		}
	})
	return s.closeErr
}
