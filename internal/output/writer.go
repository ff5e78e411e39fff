// Package output persists crawl records and annotated screenshots with
// deterministic file names.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer persists one record (and optionally one screenshot) per crawled URL
// into a flat output directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter ensures dir exists and returns a writer bound to it.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir, logger: logger.Named("output")}, nil
}

// Write persists the record as JSON and, when screenshot bytes are present,
// the annotated screenshot as PNG. Markers are drawn at each matched
// element's location. A screenshot failure is absorbed: the JSON record is
// still written, with ScreenshotOK forced to false, and imagePath comes back
// empty.
func (w *Writer) Write(index int, record schemas.CrawlRecord, screenshot []byte, markers []schemas.Rect) (jsonPath, imagePath string, err error) {
	base := fmt.Sprintf("%d_%s_%s", index, sanitizeHost(record.URL), record.Timestamp)

	if len(screenshot) > 0 {
		annotated, annErr := Annotate(screenshot, markers)
		if annErr != nil {
			w.logger.Warn("Screenshot annotation failed, keeping raw capture",
				zap.String("url", record.URL), zap.Error(annErr))
			annotated = screenshot
		}
		imagePath = filepath.Join(w.dir, base+".png")
		if writeErr := os.WriteFile(imagePath, annotated, 0o644); writeErr != nil {
			w.logger.Warn("Failed to write screenshot",
				zap.String("url", record.URL), zap.Error(writeErr))
			imagePath = ""
			record.ScreenshotOK = false
		}
	} else {
		record.ScreenshotOK = false
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", imagePath, fmt.Errorf("failed to encode crawl record: %w", err)
	}
	jsonPath = filepath.Join(w.dir, base+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", imagePath, fmt.Errorf("failed to write crawl record: %w", err)
	}

	w.logger.Info("Crawl record written",
		zap.String("url", record.URL),
		zap.Int("elements", record.ElementsCount),
		zap.String("json", jsonPath),
		zap.Bool("screenshot", imagePath != ""))
	return jsonPath, imagePath, nil
}

// sanitizeHost turns a URL's host into a filename-safe token. Dots and colons
// become underscores; an unparsable URL falls back to "unknown".
func sanitizeHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ReplaceAll(u.Host, ".", "_")
	return strings.ReplaceAll(host, ":", "_")
}
