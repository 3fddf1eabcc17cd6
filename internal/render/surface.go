package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Surface is a live headless browser tab parked on the target page.
// It is owned by exactly one frame source; Screenshot is not meant to be
// called concurrently.
type Surface struct {
	url    string
	title  string
	logger *zap.Logger

	ctx         context.Context // chromedp tab context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Launch starts a browser, applies viewport, user agent and headers, and
// navigates to opts.URL, returning once the network is almost idle.
// The browser outlives ctx; ctx only bounds the launch itself.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Surface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	s := &Surface{
		url:         opts.URL,
		logger:      logger,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	if err := s.open(ctx, opts); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Info("render surface ready",
		zap.String("url", opts.URL),
		zap.String("title", s.title),
		zap.Int("width", opts.Viewport.Width),
		zap.Int("height", opts.Viewport.Height),
	)
	return s, nil
}

func (s *Surface) open(ctx context.Context, opts Options) error {
	// Start the browser and create the tab.
	if err := chromedp.Run(s.ctx); err != nil {
		return &LaunchError{URL: opts.URL, Err: err}
	}

	// Collect networkAlmostIdle events once our navigation begins; the wait
	// below keeps only the ones for the main frame's new loader.
	var navigating atomic.Bool
	idle := make(chan *page.EventLifecycleEvent, 64)
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkAlmostIdle" && navigating.Load() {
			select {
			case idle <- e:
			default:
			}
		}
	})

	headers := make(network.Headers, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	setup := chromedp.Tasks{
		emulation.SetDeviceMetricsOverride(int64(opts.Viewport.Width), int64(opts.Viewport.Height), opts.Viewport.Scale, false),
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		page.SetLifecycleEventsEnabled(true),
	}
	if err := chromedp.Run(s.ctx, setup); err != nil {
		return &LaunchError{URL: opts.URL, Err: err}
	}

	navCtx, cancel := context.WithTimeout(s.ctx, opts.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			navigating.Store(true)
			frameID, loaderID, errorText, err := page.Navigate(opts.URL).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			return waitMainFrameIdle(ctx, idle, frameID, loaderID)
		}),
		chromedp.Title(&s.title),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return &LaunchError{URL: opts.URL, Err: ctx.Err()}
	case errors.Is(err, context.DeadlineExceeded):
		return &NavigationTimeoutError{URL: opts.URL, Timeout: opts.NavigationTimeout}
	default:
		return &LaunchError{URL: opts.URL, Err: fmt.Errorf("navigate: %w", err)}
	}
}

// waitMainFrameIdle blocks until events reports networkAlmostIdle for the
// given frame and loader. Events from iframes or earlier loaders are skipped.
func waitMainFrameIdle(ctx context.Context, events <-chan *page.EventLifecycleEvent, frameID cdp.FrameID, loaderID cdp.LoaderID) error {
	for {
		select {
		case e := <-events:
			if e.FrameID == frameID && e.LoaderID == loaderID {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// URL returns the navigated address.
func (s *Surface) URL() string { return s.url }

// Title returns the page title observed after navigation.
func (s *Surface) Title() string { return s.title }

// Screenshot captures the current viewport as a JPEG. It does not touch
// navigation state. Cancelling ctx aborts the capture.
func (s *Surface) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSurfaceClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(quality)).
			Do(ctx)
		return err
	}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if s.closed.Load() {
			return nil, ErrSurfaceClosed
		}
		return nil, err
	}
	return buf, nil
}

// Close shuts the browser down. Safe to call more than once and from a
// signal handler; only the first call does work.
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancelTab()
		s.cancelAlloc()
		s.logger.Info("render surface closed", zap.String("url", s.url))
	})
	return s.closeErr
}
