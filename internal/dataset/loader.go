package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/types"
)

// Load reads pipeline requests from the first sheet of an xlsx workbook.
// The source URL column is detected from the header row.
func Load(path string) ([]types.PipelineRequest, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}
	return parseRows(rows), nil
}

func parseRows(rows [][]string) []types.PipelineRequest {
	urlIdx, titleIdx := detectColumns(rows[0])
	// fallback: first column holds the URL
	if urlIdx == -1 {
		urlIdx = 0
	}

	var out []types.PipelineRequest
	for i, r := range rows {
		if i == 0 {
			continue
		}
		var req types.PipelineRequest
		if urlIdx < len(r) {
			req.SourceURL = strings.TrimSpace(r[urlIdx])
		}
		if titleIdx >= 0 && titleIdx < len(r) {
			req.DisplayTitle = strings.TrimSpace(r[titleIdx])
		}
		// skip rows that don't carry a URL
		if !looksLikeURL(req.SourceURL) {
			continue
		}
		out = append(out, req)
	}
	return out
}

func detectColumns(header []string) (urlIdx, titleIdx int) {
	urlIdx, titleIdx = -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "video"):
			if urlIdx == -1 {
				urlIdx = i
			}
		case strings.Contains(l, "title") || strings.Contains(l, "name"):
			if titleIdx == -1 {
				titleIdx = i
			}
		}
	}
	return urlIdx, titleIdx
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
