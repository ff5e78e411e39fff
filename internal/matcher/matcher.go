// Package matcher scores candidate elements against the configured keyword
// set using fuzzy string similarity, with structural heuristics as a second
// signal for icon-only controls.
package matcher

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// clickableTags and clickableRoles gate matching: an element that cannot
// plausibly receive a click never matches, whatever its text says.
var clickableTags = map[string]struct{}{
	"button": {}, "a": {}, "input": {},
}

var clickableRoles = map[string]struct{}{
	"button": {}, "link": {}, "checkbox": {}, "radio": {},
}

// structuralTokens are substrings whose presence in a class, id, or
// interaction attribute marks an element as an interaction control even when
// its visible text scores poorly (icon-only buttons). Longer tokens come
// before their substrings so the most specific signal is reported.
var structuralTokens = []string{
	"upvote", "downvote", "vote", "like", "thumb",
	"favorite", "bookmark", "rating", "rate", "share", "react",
}

// Matcher evaluates descriptors against a keyword set and threshold.
type Matcher struct {
	keywords  []string
	threshold int
}

// New builds a matcher. Keywords are lowercased once up front; threshold is
// on the 0-100 PartialRatio scale.
func New(keywords []string, threshold int) *Matcher {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Matcher{keywords: lowered, threshold: threshold}
}

// Match scores one descriptor. The second return is false when the candidate
// should be skipped; that is the normal outcome for most candidates, not an
// error.
func (m *Matcher) Match(el schemas.ElementDescriptor) (schemas.MatchResult, bool) {
	signal := signalText(el)
	if signal == "" {
		// Decorative elements with no textual signal never match.
		return schemas.MatchResult{}, false
	}
	if !isClickable(el) {
		return schemas.MatchResult{}, false
	}

	bestScore := 0
	bestKeyword := ""
	for _, kw := range m.keywords {
		if score := fuzzy.PartialRatio(kw, signal); score > bestScore {
			bestScore = score
			bestKeyword = kw
		}
	}

	if bestScore >= m.threshold && bestKeyword != "" {
		return schemas.MatchResult{
			Element:        el,
			MatchType:      schemas.KeywordMatch,
			MatchedKeyword: bestKeyword,
			Score:          float64(bestScore),
		}, true
	}

	if signal, ok := structuralSignal(el); ok {
		// A structural hit is treated as definitive, so the kept result
		// still satisfies the score >= threshold invariant.
		return schemas.MatchResult{
			Element:        el,
			MatchType:      schemas.StructuralHeuristic,
			MatchedKeyword: signal,
			Score:          100,
		}, true
	}

	return schemas.MatchResult{}, false
}

// signalText combines the element's textual signals the way the matcher
// compares them: text, class, id, aria-label, and title, lowercased.
func signalText(el schemas.ElementDescriptor) string {
	parts := []string{el.Text, el.Class, el.ID, el.AriaLabel, el.Title}
	joined := strings.TrimSpace(strings.Join(parts, " "))
	if strings.TrimSpace(el.Text+el.Class+el.ID+el.AriaLabel+el.Title) == "" {
		return ""
	}
	return strings.ToLower(joined)
}

func isClickable(el schemas.ElementDescriptor) bool {
	if _, ok := clickableTags[strings.ToLower(el.Tag)]; ok {
		return true
	}
	if _, ok := clickableRoles[strings.ToLower(el.Role)]; ok {
		return true
	}
	class := strings.ToLower(el.Class)
	return strings.Contains(class, "button") || strings.Contains(class, "btn")
}

// structuralSignal checks the non-text evidence: interaction tokens embedded
// in class/id/data-action attributes, or an icon-button shape (clickable
// element wrapping an svg).
func structuralSignal(el schemas.ElementDescriptor) (string, bool) {
	attrs := []struct{ name, value string }{
		{"class", el.Class},
		{"id", el.ID},
		{"aria-label", el.AriaLabel},
		{"title", el.Title},
		{"data-action", el.Attributes["data-action"]},
	}
	for _, attr := range attrs {
		name, value := attr.name, strings.ToLower(attr.value)
		if value == "" {
			continue
		}
		for _, token := range structuralTokens {
			if strings.Contains(value, token) {
				return name + "~=" + token, true
			}
		}
	}
	if el.HasSVGIcon {
		return "svg_icon", true
	}
	return "", false
}
