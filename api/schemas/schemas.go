package schemas

import "time"

// URLTask is a single unit of crawl work read from the batch source. It is
// immutable once ingested; columns other than the URL column are carried as
// metadata.
type URLTask struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Rect is an element's box in CSS pixels, used to place capture markers.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementDescriptor is the structural description of one candidate
// interactive node, produced fresh per page load. Path is a stable locator
// within the current page state and serves as the dedup key.
type ElementDescriptor struct {
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Class      string            `json:"class"`
	ID         string            `json:"id"`
	AriaLabel  string            `json:"aria_label"`
	Title      string            `json:"title"`
	Role       string            `json:"role"`
	Path       string            `json:"path"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OuterHTML  string            `json:"outer_html,omitempty"`
	HasSVGIcon bool              `json:"has_svg_icon,omitempty"`
	Location   Rect              `json:"location"`
}

// MatchType distinguishes how a candidate qualified.
type MatchType string

const (
	// KeywordMatch means the fuzzy text score cleared the threshold.
	KeywordMatch MatchType = "keyword_match"
	// StructuralHeuristic means a structural signal (selector pattern, icon
	// button shape) promoted the candidate despite a low text score.
	StructuralHeuristic MatchType = "structural_heuristic"
)

// ClickOutcome records what happened when a matched element was clicked.
// Click failures are per-element annotations, never session failures.
type ClickOutcome struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// MatchResult pairs a descriptor with its match evidence. Score is on the
// 0-100 similarity scale and is >= the configured threshold for every result
// that is kept.
type MatchResult struct {
	Element        ElementDescriptor `json:"element"`
	MatchType      MatchType         `json:"match_type"`
	MatchedKeyword string            `json:"match_keyword"`
	Score          float64           `json:"score"`
	Click          ClickOutcome      `json:"click"`
}

// RecordedElement is the flattened per-element form persisted in a
// CrawlRecord.
type RecordedElement struct {
	Text           string    `json:"element_text"`
	Tag            string    `json:"element_tag"`
	Class          string    `json:"element_class"`
	ID             string    `json:"element_id,omitempty"`
	AriaLabel      string    `json:"element_aria_label,omitempty"`
	Title          string    `json:"element_title,omitempty"`
	XPath          string    `json:"element_xpath"`
	MatchType      MatchType `json:"match_type"`
	MatchKeyword   string    `json:"match_keyword"`
	Score          float64   `json:"score"`
	ClickAttempted bool      `json:"click_attempted"`
	ClickSucceeded bool      `json:"click_succeeded"`
	ClickError     string    `json:"click_error,omitempty"`
}

// CrawlRecord is the unit persisted per URL, written exactly once per
// successfully or partially completed crawl.
type CrawlRecord struct {
	URL           string            `json:"url"`
	Timestamp     string            `json:"timestamp"`
	ElementsCount int               `json:"elements_count"`
	Elements      []RecordedElement `json:"elements"`
	ScreenshotOK  bool              `json:"screenshot_ok"`
}

// Recorded converts a match result into its persisted form.
func (r MatchResult) Recorded() RecordedElement {
	return RecordedElement{
		Text:           r.Element.Text,
		Tag:            r.Element.Tag,
		Class:          r.Element.Class,
		ID:             r.Element.ID,
		AriaLabel:      r.Element.AriaLabel,
		Title:          r.Element.Title,
		XPath:          r.Element.Path,
		MatchType:      r.MatchType,
		MatchKeyword:   r.MatchedKeyword,
		Score:          r.Score,
		ClickAttempted: r.Click.Attempted,
		ClickSucceeded: r.Click.Succeeded,
		ClickError:     r.Click.Error,
	}
}

// Cookie is the subset of browser cookie state persisted with a profile.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"http_only"`
}

// BrowserProfile is a named, persisted browser identity. Its storage
// location is unique per name and outlives any single crawl run.
type BrowserProfile struct {
	Name           string    `json:"name"`
	StorageDir     string    `json:"-"`
	UserDataDir    string    `json:"user_data_dir"`
	CookiesPresent bool      `json:"cookies_present"`
	CreatedAt      time.Time `json:"created_at"`
}
