// Package ingest reads URL tasks from CSV batch files. The URL column is
// auto-detected so operators can feed exports from spreadsheets and scrapers
// without reshaping them first.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

// ErrNoTasks means the file parsed but contained no usable URLs.
var ErrNoTasks = errors.New("no url tasks found in input file")

// urlHeaderNames are header labels that identify the URL column directly.
var urlHeaderNames = []string{"url", "link", "website", "site", "web"}

// sniffRows bounds how many data rows the content sniff inspects when no
// header names the URL column.
const sniffRows = 10

// LoadTasks reads the CSV at path and returns one URLTask per row with a
// usable URL, in file order. Rows whose detected URL cell is not a URL are
// skipped, not fatal. Remaining columns are carried as task metadata, keyed
// by header name when a header row exists.
func LoadTasks(path string, logger *zap.Logger) ([]schemas.URLTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoTasks
	}

	urlCol, hasHeader := detectURLColumn(rows)
	header := rows[0]
	data := rows
	if hasHeader {
		data = rows[1:]
	}

	tasks := make([]schemas.URLTask, 0, len(data))
	skipped := 0
	for _, row := range data {
		if urlCol >= len(row) {
			skipped++
			continue
		}
		u, ok := normalizeURL(row[urlCol])
		if !ok {
			skipped++
			continue
		}
		task := schemas.URLTask{URL: u}
		for i, cell := range row {
			if i == urlCol || strings.TrimSpace(cell) == "" {
				continue
			}
			if task.Metadata == nil {
				task.Metadata = make(map[string]string)
			}
			task.Metadata[columnKey(header, i, hasHeader)] = cell
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	logger.Info("URL tasks loaded",
		zap.String("file", path),
		zap.Int("tasks", len(tasks)),
		zap.Int("skipped", skipped),
		zap.Int("url_column", urlCol))
	return tasks, nil
}

// detectURLColumn picks the URL column and reports whether the first row is a
// header. Detection order: a header cell named like a URL column, then the
// column with the most URL-shaped cells in the first rows, then column zero.
func detectURLColumn(rows [][]string) (col int, hasHeader bool) {
	first := rows[0]
	for i, cell := range first {
		name := strings.ToLower(strings.TrimSpace(cell))
		for _, known := range urlHeaderNames {
			if name == known {
				return i, true
			}
		}
	}

	// No named column: the first row is a header iff none of its cells is a
	// URL itself.
	hasHeader = true
	for _, cell := range first {
		if _, ok := normalizeURL(cell); ok {
			hasHeader = false
			break
		}
	}

	sniff := rows
	if hasHeader {
		sniff = rows[1:]
	}
	if len(sniff) > sniffRows {
		sniff = sniff[:sniffRows]
	}

	counts := map[int]int{}
	for _, row := range sniff {
		for i, cell := range row {
			if _, ok := normalizeURL(cell); ok {
				counts[i]++
			}
		}
	}
	best, bestCount := 0, 0
	for i, n := range counts {
		if n > bestCount || (n == bestCount && i < best) {
			best, bestCount = i, n
		}
	}
	return best, hasHeader
}

// normalizeURL reports whether the cell holds a crawlable URL, adding an
// https scheme to bare www hosts.
func normalizeURL(cell string) (string, bool) {
	s := strings.TrimSpace(cell)
	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s, true
	case strings.HasPrefix(s, "www."):
		return "https://" + s, true
	default:
		return "", false
	}
}

func columnKey(header []string, i int, hasHeader bool) string {
	if hasHeader && i < len(header) && strings.TrimSpace(header[i]) != "" {
		return strings.ToLower(strings.TrimSpace(header[i]))
	}
	return fmt.Sprintf("col%d", i)
}
