package extractor

import (
	"encoding/json"
	"errors"
	"strings"

	"video-insights-go/internal/types"
)

// ErrNoJSON is returned when a completion holds no usable JSON object.
var ErrNoJSON = errors.New("could not extract JSON from completion")

var analysisKeys = []string{"summary", "keyPoints", "facts", "educationalContent"}

// FallbackAnalysis is the shape returned next to every AnalysisError.
func FallbackAnalysis() types.AnalysisResult {
	return types.AnalysisResult{
		Summary:            "Failed to generate summary",
		KeyPoints:          []string{},
		Facts:              []types.Fact{},
		EducationalContent: "",
	}
}

// Extract recovers an AnalysisResult from free completion text.
//
// Phase one locates candidates: the greedy span from the first '{' to the last
// '}', then every balanced object in order of appearance. Phase two strictly
// decodes each candidate and keeps the first one that is an analysis object.
// When nothing qualifies the fallback shape is returned with a MalformedOutput
// error.
func Extract(completion string) (types.AnalysisResult, error) {
	var lastErr error
	for _, candidate := range candidates(completion) {
		res, err := decodeAnalysis(candidate)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNoJSON
	}
	return FallbackAnalysis(), &types.AnalysisError{
		Kind:    types.MalformedOutput,
		Message: "failed to parse completion",
		Err:     lastErr,
	}
}

func candidates(s string) []string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil
	}
	greedy := s[start : end+1]
	out := []string{greedy}
	for _, obj := range balancedObjects(s) {
		if obj != greedy {
			out = append(out, obj)
		}
	}
	return out
}

// balancedObjects returns every top-level brace-balanced span, skipping braces
// inside JSON strings.
func balancedObjects(s string) []string {
	var out []string
	for from := 0; from < len(s); {
		rel := strings.IndexByte(s[from:], '{')
		if rel == -1 {
			break
		}
		start := from + rel
		end := matchBrace(s, start)
		if end == -1 {
			from = start + 1
			continue
		}
		out = append(out, s[start:end+1])
		from = end + 1
	}
	return out
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeAnalysis(candidate string) (types.AnalysisResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return types.AnalysisResult{}, err
	}
	known := false
	for _, k := range analysisKeys {
		if _, ok := probe[k]; ok {
			known = true
			break
		}
	}
	if !known {
		return types.AnalysisResult{}, ErrNoJSON
	}
	var res types.AnalysisResult
	if err := json.Unmarshal([]byte(candidate), &res); err != nil {
		return types.AnalysisResult{}, err
	}
	return normalize(res), nil
}

func normalize(res types.AnalysisResult) types.AnalysisResult {
	if res.KeyPoints == nil {
		res.KeyPoints = []string{}
	}
	if len(res.KeyPoints) > types.MaxKeyPoints {
		res.KeyPoints = res.KeyPoints[:types.MaxKeyPoints]
	}
	if res.Facts == nil {
		res.Facts = []types.Fact{}
	}
	return res
}
