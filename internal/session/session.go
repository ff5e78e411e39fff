// Package session owns the per-URL crawl pipeline as an explicit state
// machine, and the batch runner that drives it over an ingested task list.
// Front ends observe the machine through progress events; they never reach
// into the pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
	"github.com/geraldpeng6/crawler-for-attack/internal/extractor"
	"github.com/geraldpeng6/crawler-for-attack/internal/matcher"
	"github.com/geraldpeng6/crawler-for-attack/internal/output"
)

// State is a crawl session phase. Transitions are strictly forward;
// StateFailed is reachable from every non-terminal state.
type State string

const (
	StateInit       State = "init"
	StateLoading    State = "loading"
	StateScrolling  State = "scrolling"
	StateExtracting State = "extracting"
	StateMatching   State = "matching"
	StateCapturing  State = "capturing"
	StateRecording  State = "recording"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// FailureReason classifies a failed session.
type FailureReason string

const (
	FailureLoad       FailureReason = "load_error"
	FailureExtraction FailureReason = "extraction_error"
	FailureCapture    FailureReason = "capture_error"
	FailureTimeout    FailureReason = "timeout"
)

// Event is one observable state transition. Err and Reason are set only for
// StateFailed.
type Event struct {
	URL    string
	State  State
	Reason FailureReason
	Err    error
}

// EventFunc receives progress events. It is called synchronously from the
// session goroutine and must not block.
type EventFunc func(Event)

// FailedError is the terminal error of a failed session, carrying the
// classified reason alongside the cause.
type FailedError struct {
	Reason FailureReason
	Err    error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("session failed (%s): %v", e.Reason, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Config holds the immutable per-session settings.
type Config struct {
	Keywords            []string
	SimilarityThreshold int
	ScrollCount         int
	MatchConcurrency    int
	NavigationTimeout   time.Duration
	ScrollTimeout       time.Duration
	ClickTimeout        time.Duration
	CaptureTimeout      time.Duration
}

// Session runs the crawl pipeline for single URLs against one browser
// engine. It is not safe for concurrent use; the runner serializes tasks.
type Session struct {
	engine    schemas.PageEngine
	extractor *extractor.Extractor
	matcher   *matcher.Matcher
	writer    *output.Writer
	cfg       Config
	logger    *zap.Logger
	onEvent   EventFunc
	now       func() time.Time
	backoff   time.Duration
}

// New assembles a session pipeline. onEvent may be nil.
func New(engine schemas.PageEngine, writer *output.Writer, cfg Config, logger *zap.Logger, onEvent EventFunc) *Session {
	if cfg.MatchConcurrency <= 0 {
		cfg.MatchConcurrency = 1
	}
	return &Session{
		engine:    engine,
		extractor: extractor.New(engine, logger),
		matcher:   matcher.New(cfg.Keywords, cfg.SimilarityThreshold),
		writer:    writer,
		cfg:       cfg,
		logger:    logger.Named("session"),
		onEvent:   onEvent,
		now:       time.Now,
		backoff:   loadBackoff,
	}
}

// Run crawls one URL through the full pipeline and returns the persisted
// record. Index feeds the deterministic output file names.
func (s *Session) Run(ctx context.Context, index int, task schemas.URLTask) (schemas.CrawlRecord, error) {
	s.emit(task.URL, StateInit)
	log := s.logger.With(zap.String("url", task.URL), zap.Int("index", index))

	// Loading. One retry with a short backoff absorbs transient navigation
	// hiccups; persistent failures classify the session.
	s.emit(task.URL, StateLoading)
	if err := s.navigateWithRetry(ctx, task.URL, log); err != nil {
		return schemas.CrawlRecord{}, s.fail(task.URL, log, FailureLoad, err)
	}

	// Scrolling: bounded bottom-scrolls with early exit once the page height
	// stops growing, then back to the top so locators line up with the
	// original viewport.
	s.emit(task.URL, StateScrolling)
	for i := 0; i < s.cfg.ScrollCount; i++ {
		var grew bool
		err := s.withTimeout(ctx, s.cfg.ScrollTimeout, func(ctx context.Context) error {
			var scrollErr error
			grew, scrollErr = s.engine.ScrollStep(ctx)
			return scrollErr
		})
		if err != nil {
			if timedOut(ctx, err) {
				return schemas.CrawlRecord{}, s.fail(task.URL, log, FailureTimeout, err)
			}
			// A failed scroll leaves the page in a usable state; keep going
			// with what already rendered.
			log.Warn("Scroll step failed, continuing with current page", zap.Error(err))
			break
		}
		if !grew {
			log.Debug("Page height stable, stopping scroll early", zap.Int("steps", i+1))
			break
		}
	}
	if err := s.withTimeout(ctx, s.cfg.ScrollTimeout, s.engine.ScrollTop); err != nil {
		log.Warn("Scroll to top failed", zap.Error(err))
	}

	// Extracting.
	s.emit(task.URL, StateExtracting)
	var descriptors []schemas.ElementDescriptor
	if err := s.withTimeout(ctx, s.cfg.NavigationTimeout, func(ctx context.Context) error {
		var exErr error
		descriptors, exErr = s.extractor.Extract(ctx)
		return exErr
	}); err != nil {
		reason := FailureExtraction
		if timedOut(ctx, err) {
			reason = FailureTimeout
		}
		return schemas.CrawlRecord{}, s.fail(task.URL, log, reason, err)
	}

	// Matching: scored concurrently, results placed by index so extraction
	// order survives.
	s.emit(task.URL, StateMatching)
	matches, err := s.matchAll(ctx, descriptors)
	if err != nil {
		return schemas.CrawlRecord{}, s.fail(task.URL, log, FailureTimeout, err)
	}
	log.Info("Interactive elements matched",
		zap.Int("candidates", len(descriptors)), zap.Int("matches", len(matches)))

	// Capturing: click every surviving match, then one full-page screenshot.
	// Click failures annotate the element; capture failure loses the image,
	// never the record.
	s.emit(task.URL, StateCapturing)
	for i := range matches {
		matches[i].Click.Attempted = true
		err := s.withTimeout(ctx, s.cfg.ClickTimeout, func(ctx context.Context) error {
			return s.engine.Click(ctx, matches[i].Element.Path)
		})
		if err != nil {
			if ctx.Err() != nil {
				return schemas.CrawlRecord{}, s.fail(task.URL, log, FailureTimeout, err)
			}
			matches[i].Click.Error = err.Error()
			log.Warn("Click failed",
				zap.String("path", matches[i].Element.Path), zap.Error(err))
			continue
		}
		matches[i].Click.Succeeded = true
	}

	var screenshot []byte
	if err := s.withTimeout(ctx, s.cfg.CaptureTimeout, func(ctx context.Context) error {
		var capErr error
		screenshot, capErr = s.engine.Screenshot(ctx)
		return capErr
	}); err != nil {
		screenshot = nil
		log.Warn("Screenshot capture failed, record will be written without it", zap.Error(err))
	}

	// Recording.
	s.emit(task.URL, StateRecording)
	record := schemas.CrawlRecord{
		URL:           task.URL,
		Timestamp:     s.now().Format("20060102_150405"),
		ElementsCount: len(matches),
		Elements:      make([]schemas.RecordedElement, 0, len(matches)),
		ScreenshotOK:  len(screenshot) > 0,
	}
	markers := make([]schemas.Rect, 0, len(matches))
	for _, m := range matches {
		record.Elements = append(record.Elements, m.Recorded())
		markers = append(markers, m.Element.Location)
	}
	if _, _, err := s.writer.Write(index, record, screenshot, markers); err != nil {
		return schemas.CrawlRecord{}, s.fail(task.URL, log, FailureCapture, err)
	}

	s.emit(task.URL, StateDone)
	return record, nil
}

const (
	loadAttempts = 2
	loadBackoff  = 2 * time.Second
)

// navigateWithRetry issues the page-load command, retrying once after a
// backoff. Each attempt runs under its own navigation deadline.
func (s *Session) navigateWithRetry(ctx context.Context, url string, log *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		lastErr = s.withTimeout(ctx, s.cfg.NavigationTimeout, func(ctx context.Context) error {
			return s.engine.Navigate(ctx, url)
		})
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == loadAttempts {
			break
		}
		log.Warn("Navigation failed, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// matchAll scores descriptors with bounded concurrency and returns the kept
// results in extraction order.
func (s *Session) matchAll(ctx context.Context, descriptors []schemas.ElementDescriptor) ([]schemas.MatchResult, error) {
	slots := make([]*schemas.MatchResult, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MatchConcurrency)
	for i, el := range descriptors {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if result, ok := s.matcher.Match(el); ok {
				slots[i] = &result
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]schemas.MatchResult, 0, len(descriptors))
	for _, slot := range slots {
		if slot != nil {
			matches = append(matches, *slot)
		}
	}
	return matches, nil
}

// withTimeout runs fn under its own deadline layered on the caller's
// context.
func (s *Session) withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

// timedOut reports whether err is a deadline failure rather than a substantive
// engine failure. The parent context is consulted so a batch-level
// cancellation also classifies as timeout.
func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

func (s *Session) emit(url string, state State) {
	if s.onEvent != nil {
		s.onEvent(Event{URL: url, State: state})
	}
}

func (s *Session) fail(url string, log *zap.Logger, reason FailureReason, err error) error {
	// A navigation timeout is still a load failure; the timeout
	// classification is reserved for the later phases.
	if reason != FailureLoad && errors.Is(err, context.DeadlineExceeded) {
		reason = FailureTimeout
	}
	log.Error("Crawl session failed", zap.String("reason", string(reason)), zap.Error(err))
	if s.onEvent != nil {
		s.onEvent(Event{URL: url, State: StateFailed, Reason: reason, Err: err})
	}
	return &FailedError{Reason: reason, Err: err}
}
