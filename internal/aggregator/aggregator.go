package aggregator

import (
	"errors"
	"sort"

	"video-insights-go/internal/types"
)

// Insight summarizes a batch run.
type Insight struct {
	Total          int            `json:"total"`
	Succeeded      int            `json:"succeeded"`
	Failed         int            `json:"failed"`
	Analyzed       int            `json:"analyzed"`
	AnalysisErrors int            `json:"analysis_errors"`
	FailureKinds   map[string]int `json:"failure_kinds"`
	Languages      map[string]int `json:"languages"`
}

// Classify names the failure class of a pipeline error.
func Classify(err error) string {
	var (
		vErr  *types.ValidationError
		upErr *types.UpstreamError
		tErr  *types.TranscriptionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &upErr):
		return "upstream"
	case errors.As(err, &tErr):
		return "transcription"
	default:
		return "other"
	}
}

func Aggregate(items []types.BatchItem, errs []error) Insight {
	in := Insight{
		Total:        len(items),
		FailureKinds: map[string]int{},
		Languages:    map[string]int{},
	}
	for i, it := range items {
		if !it.Response.Success {
			in.Failed++
			var err error
			if i < len(errs) {
				err = errs[i]
			}
			if kind := Classify(err); kind != "" {
				in.FailureKinds[kind]++
			}
			continue
		}
		in.Succeeded++
		if it.Response.Transcription != nil && it.Response.Transcription.LanguageCode != "" {
			in.Languages[it.Response.Transcription.LanguageCode]++
		}
		if it.Response.Analysis != nil {
			in.Analyzed++
		} else {
			in.AnalysisErrors++
		}
	}
	return in
}

// TopLanguages returns language codes ordered by count, then code.
func (in Insight) TopLanguages() []string {
	out := make([]string, 0, len(in.Languages))
	for k := range in.Languages {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if in.Languages[out[i]] != in.Languages[out[j]] {
			return in.Languages[out[i]] > in.Languages[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
