package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/types"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "in.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadDetectsColumns(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Title", "Video URL"},
		{"First", "https://youtu.be/a"},
		{"Skipped", "not a url"},
		{"", " https://youtu.be/b "},
	})

	reqs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []types.PipelineRequest{
		{SourceURL: "https://youtu.be/a", DisplayTitle: "First"},
		{SourceURL: "https://youtu.be/b"},
	}, reqs)
}

func TestLoadFallsBackToFirstColumn(t *testing.T) {
	reqs := parseRows([][]string{{"source"}, {"https://youtu.be/a"}})
	require.Len(t, reqs, 1)
	assert.Equal(t, "https://youtu.be/a", reqs[0].SourceURL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	_, err = Load(writeWorkbook(t, [][]any{{"url"}}))
	assert.EqualError(t, err, "no data rows")
}

func TestWriteReport(t *testing.T) {
	items := []types.BatchItem{
		{
			Request: types.PipelineRequest{SourceURL: "https://youtu.be/a"},
			Response: types.PipelineResponse{
				Success:       true,
				Title:         "A",
				Transcription: &types.TranscriptionResult{FullText: "hello", LanguageCode: "eng"},
				Analysis: &types.AnalysisResult{
					Summary:   "s",
					KeyPoints: []string{"k1", "k2"},
					Facts:     []types.Fact{{Statement: "f", Source: "example.com"}},
				},
			},
		},
		{
			Request: types.PipelineRequest{SourceURL: "https://youtu.be/b", DisplayTitle: "B"},
			Error:   "acquisition upstream: http 500: down",
		},
	}
	in := aggregator.Aggregate(items, []error{nil, &types.UpstreamError{Status: 500, Message: "down"}})

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteReport(path, items, in))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "URL", rows[0][0])
	assert.Equal(t, "A", rows[1][1])
	assert.Equal(t, "true", rows[1][2])
	assert.Equal(t, "eng", rows[1][3])
	assert.Equal(t, "k1\nk2", rows[1][6])
	assert.Equal(t, "f (https://example.com)", rows[1][7])
	assert.Equal(t, "B", rows[2][1])
	assert.Equal(t, "acquisition upstream: http 500: down", rows[2][10])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Contains(t, summary, []string{"Total", "2"})
	assert.Contains(t, summary, []string{"Failed (upstream)", "1"})
	assert.Contains(t, summary, []string{"Language eng", "1"})
}
