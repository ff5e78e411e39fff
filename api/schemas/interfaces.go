package schemas

import "context"

// PageEngine is the capability interface over the rendering engine. The
// extractor, matcher, and session state machine depend only on this
// interface; any engine that can navigate, query, scroll, click, and
// screenshot is substitutable, which also enables deterministic fakes in
// tests.
type PageEngine interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// ScrollStep performs one scroll-to-bottom step and reports whether the
	// page height grew, so callers can stop early on stable pages.
	ScrollStep(ctx context.Context) (grew bool, err error)
	// ScrollTop returns the viewport to the top of the page.
	ScrollTop(ctx context.Context) error
	// QueryCandidates returns descriptors for every node matching the fixed
	// interactive-element predicates, in document order.
	QueryCandidates(ctx context.Context) ([]ElementDescriptor, error)
	// Click dispatches a click on the element addressed by path.
	Click(ctx context.Context, path string) error
	// Screenshot captures the full page as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// ExportCookies returns the cookies of the current browser session.
	ExportCookies(ctx context.Context) ([]Cookie, error)
	// Close releases the underlying browser resources.
	Close(ctx context.Context) error
}
