package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
	"github.com/geraldpeng6/crawler-for-attack/internal/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flakyEngine fails navigation for URLs in the bad set.
type flakyEngine struct {
	fakeEngine
	bad map[string]bool
}

func (f *flakyEngine) Navigate(ctx context.Context, url string) error {
	if f.bad[url] {
		return errors.New("connection refused")
	}
	return f.fakeEngine.Navigate(ctx, url)
}

func newTestRunner(t *testing.T, engine schemas.PageEngine, delay time.Duration) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	writer, err := output.NewWriter(dir, zap.NewNop())
	require.NoError(t, err)
	s := New(engine, writer, testConfig(), zap.NewNop(), nil)
	s.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }
	s.backoff = 0
	return NewRunner(s, delay, zap.NewNop()), dir
}

func tasks(urls ...string) []schemas.URLTask {
	out := make([]schemas.URLTask, 0, len(urls))
	for _, u := range urls {
		out = append(out, schemas.URLTask{URL: u})
	}
	return out
}

func TestRunnerContinuesPastFailures(t *testing.T) {
	engine := &flakyEngine{
		fakeEngine: fakeEngine{
			candidates: []schemas.ElementDescriptor{likeButton("1")},
			screenshot: testPNG(t),
		},
		bad: map[string]bool{"https://bad.example.com": true},
	}
	r, dir := newTestRunner(t, engine, 0)

	summary := r.Run(context.Background(), tasks(
		"https://a.example.com",
		"https://bad.example.com",
		"https://b.example.com",
	))

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Skipped)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "https://bad.example.com", summary.Failures[0].URL)
	assert.Equal(t, FailureLoad, summary.Failures[0].Reason)

	// One record per succeeded URL, none for the failed one.
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunnerProcessesInOrder(t *testing.T) {
	engine := &fakeEngine{screenshot: testPNG(t)}
	r, _ := newTestRunner(t, engine, 0)

	r.Run(context.Background(), tasks(
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	))

	assert.Equal(t, []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	}, engine.navigated)
}

func TestRunnerStopsAtTaskBoundary(t *testing.T) {
	engine := &fakeEngine{screenshot: testPNG(t)}
	r, _ := newTestRunner(t, engine, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := r.Run(ctx, tasks("https://example.com/1", "https://example.com/2"))
	assert.Zero(t, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Empty(t, engine.navigated)
}

func TestRunnerEnforcesDelay(t *testing.T) {
	engine := &fakeEngine{screenshot: testPNG(t)}
	delay := 50 * time.Millisecond
	r, _ := newTestRunner(t, engine, delay)

	start := time.Now()
	summary := r.Run(context.Background(), tasks("https://example.com/1", "https://example.com/2"))
	elapsed := time.Since(start)

	assert.Equal(t, 2, summary.Succeeded)
	// One inter-task gap for two tasks.
	assert.GreaterOrEqual(t, elapsed, delay)
}

// slowEngine stretches each task past the configured delay and records when
// every navigation starts.
type slowEngine struct {
	fakeEngine
	navDelay time.Duration
	navTimes []time.Time
}

func (s *slowEngine) Navigate(ctx context.Context, url string) error {
	s.navTimes = append(s.navTimes, time.Now())
	time.Sleep(s.navDelay)
	return s.fakeEngine.Navigate(ctx, url)
}

func TestRunnerDelayIsHardMinimumAfterSlowTask(t *testing.T) {
	// The gap is measured from the end of one task to the start of the next,
	// so a task that outlasts the delay must not eat into it.
	navDelay := 150 * time.Millisecond
	delay := 100 * time.Millisecond
	engine := &slowEngine{
		fakeEngine: fakeEngine{screenshot: testPNG(t)},
		navDelay:   navDelay,
	}
	r, _ := newTestRunner(t, engine, delay)

	summary := r.Run(context.Background(), tasks("https://example.com/1", "https://example.com/2"))
	require.Equal(t, 2, summary.Succeeded)

	require.Len(t, engine.navTimes, 2)
	// Start-to-start spacing covers the first task's full duration plus the
	// whole gap; a gap that refilled during the task would show ~navDelay.
	assert.GreaterOrEqual(t, engine.navTimes[1].Sub(engine.navTimes[0]), navDelay+delay)
}
