package matcher

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

func TestMatchKeyword(t *testing.T) {
	m := New([]string{"like"}, 70)

	el := schemas.ElementDescriptor{
		Tag:  "button",
		Text: "Like This",
		Path: "/html/body/button[1]",
	}

	result, ok := m.Match(el)
	require.True(t, ok)
	assert.Equal(t, schemas.KeywordMatch, result.MatchType)
	assert.Equal(t, "like", result.MatchedKeyword)
	assert.GreaterOrEqual(t, result.Score, float64(70))
}

func TestMatchEmptyTextNeverMatches(t *testing.T) {
	// The empty-signal rule holds for every threshold, including zero.
	for _, threshold := range []int{0, 50, 100} {
		m := New([]string{"like", "vote"}, threshold)
		el := schemas.ElementDescriptor{Tag: "button", Text: "   "}
		_, ok := m.Match(el)
		assert.False(t, ok, "threshold %d", threshold)
	}
}

func TestMatchRequiresClickable(t *testing.T) {
	m := New([]string{"like"}, 70)

	testCases := []struct {
		name    string
		el      schemas.ElementDescriptor
		matches bool
	}{
		{
			name:    "plain div does not match",
			el:      schemas.ElementDescriptor{Tag: "div", Text: "like"},
			matches: false,
		},
		{
			name:    "div with button role matches",
			el:      schemas.ElementDescriptor{Tag: "div", Role: "button", Text: "like"},
			matches: true,
		},
		{
			name:    "div with btn class matches",
			el:      schemas.ElementDescriptor{Tag: "div", Class: "btn-primary", Text: "like"},
			matches: true,
		},
		{
			name:    "anchor matches",
			el:      schemas.ElementDescriptor{Tag: "a", Text: "like"},
			matches: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := m.Match(tc.el)
			assert.Equal(t, tc.matches, ok)
		})
	}
}

func TestMatchStructuralPromotion(t *testing.T) {
	// Threshold 100 so no realistic text score clears it; only structural
	// signals can promote.
	m := New([]string{"zzzzzz"}, 100)

	testCases := []struct {
		name   string
		el     schemas.ElementDescriptor
		signal string
	}{
		{
			name:   "upvote class token",
			el:     schemas.ElementDescriptor{Tag: "button", Class: "upvote-arrow"},
			signal: "class~=upvote",
		},
		{
			name: "data-action attribute",
			el: schemas.ElementDescriptor{
				Tag:        "button",
				Class:      "c0",
				Attributes: map[string]string{"data-action": "like"},
			},
			signal: "data-action~=like",
		},
		{
			name:   "svg icon button",
			el:     schemas.ElementDescriptor{Tag: "button", Text: "x", HasSVGIcon: true},
			signal: "svg_icon",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := m.Match(tc.el)
			require.True(t, ok)
			assert.Equal(t, schemas.StructuralHeuristic, result.MatchType)
			assert.Equal(t, tc.signal, result.MatchedKeyword)
			assert.Equal(t, float64(100), result.Score)
		})
	}
}

func TestMatchBilingualKeywords(t *testing.T) {
	m := New([]string{"点赞", "like"}, 70)

	result, ok := m.Match(schemas.ElementDescriptor{Tag: "button", Text: "点赞"})
	require.True(t, ok)
	assert.Equal(t, "点赞", result.MatchedKeyword)
}

func TestMatchKeepsBestKeyword(t *testing.T) {
	m := New([]string{"vote", "upvote"}, 70)

	result, ok := m.Match(schemas.ElementDescriptor{Tag: "button", Text: "Upvote"})
	require.True(t, ok)
	// "upvote" is the exact fit and must win over the shorter keyword.
	assert.Equal(t, "upvote", result.MatchedKeyword)
	assert.Equal(t, float64(100), result.Score)
}

// TestMatchScoreInvariant feeds the matcher generated descriptors and checks
// that every kept result honors score >= threshold and a recorded origin.
func TestMatchScoreInvariant(t *testing.T) {
	seed := []byte(strings.Repeat("interactive-element-crawler-seed", 64))
	fuzzConsumer := fuzz.NewConsumer(seed)
	m := New([]string{"like", "vote", "share"}, 70)

	tags := []string{"button", "a", "div", "span", "input"}
	for i := 0; i < 200; i++ {
		tagIdx, err := fuzzConsumer.GetInt()
		if err != nil {
			break
		}
		text, err := fuzzConsumer.GetString()
		if err != nil {
			break
		}
		class, err := fuzzConsumer.GetString()
		if err != nil {
			break
		}

		el := schemas.ElementDescriptor{
			Tag:   tags[tagIdx%len(tags)],
			Text:  text,
			Class: class,
		}
		result, ok := m.Match(el)
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, result.Score, float64(70))
		assert.NotEmpty(t, result.MatchedKeyword)
	}
}
