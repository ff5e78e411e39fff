// Package extractor turns raw engine candidates into a deduplicated, ordered
// set of element descriptors ready for matching. The engine computes locators
// in-page; the extractor fills the gaps for nodes the in-page walk could not
// address and drops what it cannot locate at all.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// ErrNoLocator is returned by locator synthesis when the candidate carries no
// addressable signal at all. Such candidates are dropped, not fatal.
var ErrNoLocator = errors.New("no usable locator for candidate")

// Extractor queries the page engine for interactive-element candidates and
// normalizes them. Identical static pages produce identical ordered sets.
type Extractor struct {
	engine schemas.PageEngine
	logger *zap.Logger
}

// New builds an extractor bound to one engine.
func New(engine schemas.PageEngine, logger *zap.Logger) *Extractor {
	return &Extractor{engine: engine, logger: logger.Named("extractor")}
}

// Extract returns the page's candidate descriptors in document order, with
// duplicates removed by locator path (first occurrence wins). Candidates
// without an engine-computed path get a synthesized locator; candidates that
// cannot be located are dropped with a log entry.
func (x *Extractor) Extract(ctx context.Context) ([]schemas.ElementDescriptor, error) {
	candidates, err := x.engine.QueryCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("candidate extraction failed: %w", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]schemas.ElementDescriptor, 0, len(candidates))
	dropped := 0
	for _, el := range candidates {
		if el.Path == "" {
			path, synthErr := SynthesizePath(el)
			if synthErr != nil {
				dropped++
				x.logger.Debug("Dropping unaddressable candidate",
					zap.String("tag", el.Tag),
					zap.String("text", el.Text),
					zap.Error(synthErr))
				continue
			}
			el.Path = path
		}
		if _, dup := seen[el.Path]; dup {
			continue
		}
		seen[el.Path] = struct{}{}
		out = append(out, el)
	}

	x.logger.Debug("Candidates extracted",
		zap.Int("raw", len(candidates)),
		zap.Int("unique", len(out)),
		zap.Int("dropped", dropped))
	return out, nil
}

// SynthesizePath builds an XPath locator for a candidate whose in-page walk
// produced no path. It parses the candidate's outer HTML and anchors on the
// strongest available attribute, falling back to the element's visible text.
func SynthesizePath(el schemas.ElementDescriptor) (string, error) {
	if el.OuterHTML == "" {
		return "", ErrNoLocator
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(el.OuterHTML))
	if err != nil {
		return "", fmt.Errorf("candidate html unparsable: %w", err)
	}
	sel := doc.Find("body").Children().First()
	if sel.Length() == 0 {
		return "", ErrNoLocator
	}

	tag := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" {
		return fmt.Sprintf(`//*[@id="%s"]`, id), nil
	}
	for _, attr := range []string{"aria-label", "title", "data-action", "class"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return fmt.Sprintf(`//%s[@%s="%s"]`, tag, attr, v), nil
		}
	}
	if text := strings.TrimSpace(sel.Text()); text != "" {
		return fmt.Sprintf(`//%s[normalize-space(.)="%s"]`, tag, text), nil
	}
	return "", ErrNoLocator
}
