package output

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	var buf bytes.Buffer
	require.NoError(t, dc.EncodePNG(&buf))
	return buf.Bytes()
}

func testRecord() schemas.CrawlRecord {
	return schemas.CrawlRecord{
		URL:           "https://example.com/posts/1",
		Timestamp:     "20260825_120000",
		ElementsCount: 1,
		Elements: []schemas.RecordedElement{
			{
				Text:         "Like",
				Tag:          "button",
				Class:        "like-button",
				XPath:        "/html/body/button[1]",
				MatchType:    schemas.KeywordMatch,
				MatchKeyword: "like",
				Score:        100,
			},
		},
		ScreenshotOK: true,
	}
}

func TestWriteRecordAndScreenshot(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)

	jsonPath, imagePath, err := w.Write(3, testRecord(), testPNG(t, 40, 40), nil)
	require.NoError(t, err)

	assert.Equal(t, "3_example_com_20260825_120000.json", filepath.Base(jsonPath))
	assert.Equal(t, "3_example_com_20260825_120000.png", filepath.Base(imagePath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var got schemas.CrawlRecord
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(testRecord(), got); diff != "" {
		t.Fatalf("record round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteWithoutScreenshotStillWritesJSON(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)

	record := testRecord()
	record.ScreenshotOK = true // writer must override when no capture arrives

	jsonPath, imagePath, err := w.Write(0, record, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, imagePath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var got schemas.CrawlRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.False(t, got.ScreenshotOK)
}

func TestWriteRecordFieldNames(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, zap.NewNop())
	require.NoError(t, err)

	jsonPath, _, err := w.Write(0, testRecord(), nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	for _, key := range []string{
		`"url"`, `"timestamp"`, `"elements_count"`, `"elements"`,
		`"element_text"`, `"element_tag"`, `"element_class"`,
		`"element_xpath"`, `"match_type"`, `"match_keyword"`,
	} {
		assert.Contains(t, string(data), key)
	}
}

func TestSanitizeHost(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"https://news.example.com/a/b", "news_example_com"},
		{"http://localhost:8080/", "localhost_8080"},
		{"not a url", "unknown"},
		{"", "unknown"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, sanitizeHost(tc.raw), tc.raw)
	}
}

func TestAnnotatePreservesDimensions(t *testing.T) {
	src := testPNG(t, 60, 40)
	markers := []schemas.Rect{
		{X: 10, Y: 10, Width: 20, Height: 12},
		{X: 0, Y: 0, Width: 0, Height: 0}, // degenerate box: skipped
	}

	out, err := Annotate(src, markers)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
	// The marker stroke must actually land on the image.
	assert.NotEqual(t, src, out)
}

func TestAnnotateRejectsGarbage(t *testing.T) {
	_, err := Annotate([]byte("not a png"), nil)
	require.Error(t, err)
}
