package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/types"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultHeader = []any{
	"URL", "Title", "Success", "Language", "Transcript",
	"Summary", "Key Points", "Facts", "Educational Content", "Analysis Error", "Error",
}

// WriteReport writes one row per batch item plus a summary sheet.
func WriteReport(path string, items []types.BatchItem, insight aggregator.Insight) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, it := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := resultRow(it)
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	for i, kv := range summaryRows(insight) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := kv
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func resultRow(it types.BatchItem) []any {
	resp := it.Response
	title := resp.Title
	if title == "" {
		title = it.Request.DisplayTitle
	}
	row := []any{it.Request.SourceURL, title, strconv.FormatBool(resp.Success), "", "", "", "", "", "", resp.AnalysisError, it.Error}
	if t := resp.Transcription; t != nil {
		row[3] = t.LanguageCode
		row[4] = t.FullText
	}
	if a := resp.Analysis; a != nil {
		row[5] = a.Summary
		row[6] = strings.Join(a.KeyPoints, "\n")
		row[7] = formatFacts(a.Facts)
		row[8] = a.EducationalContent
	}
	return row
}

func formatFacts(facts []types.Fact) string {
	lines := make([]string, 0, len(facts))
	for _, fact := range facts {
		if src := fact.SourceURL(); src != "" {
			lines = append(lines, fmt.Sprintf("%s (%s)", fact.Statement, src))
			continue
		}
		lines = append(lines, fact.Statement)
	}
	return strings.Join(lines, "\n")
}

func summaryRows(in aggregator.Insight) [][]any {
	rows := [][]any{
		{"Metric", "Value"},
		{"Total", in.Total},
		{"Succeeded", in.Succeeded},
		{"Failed", in.Failed},
		{"Analyzed", in.Analyzed},
		{"Analysis errors", in.AnalysisErrors},
	}
	for _, kind := range []string{"validation", "upstream", "transcription", "other"} {
		if n := in.FailureKinds[kind]; n > 0 {
			rows = append(rows, []any{"Failed (" + kind + ")", n})
		}
	}
	for _, lang := range in.TopLanguages() {
		rows = append(rows, []any{"Language " + lang, in.Languages[lang]})
	}
	return rows
}
