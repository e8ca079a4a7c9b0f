package types

import "strings"

// PipelineRequest is what a caller hands to the pipeline at request entry.
type PipelineRequest struct {
	SourceURL    string `json:"url"`
	DisplayTitle string `json:"title,omitempty"`
}

// AcquisitionResult is the acquisition service's answer, passed through as received.
type AcquisitionResult struct {
	MediaURL  string         `json:"mediaUrl"`
	Title     string         `json:"title,omitempty"`
	RawStatus map[string]any `json:"rawStatus"`
}

type TranscriptSegment struct {
	Text        string  `json:"text"`
	StartOffset float64 `json:"start"`
	EndOffset   float64 `json:"end"`
	Kind        string  `json:"type"`
	SpeakerID   string  `json:"speaker_id,omitempty"`
}

// TranscriptionResult holds a finished speech-to-text job. Segments keep the
// provider's order, which is temporal order.
type TranscriptionResult struct {
	FullText           string              `json:"text"`
	LanguageCode       string              `json:"language_code"`
	LanguageConfidence float64             `json:"language_probability"`
	Segments           []TranscriptSegment `json:"words"`
	JobID              string              `json:"job_id,omitempty"`
}

type Fact struct {
	Statement string `json:"statement"`
	Source    string `json:"source,omitempty"`
}

// SourceURL returns Source as an absolute URL, prefixing https:// when the
// model left the scheme out. Only presentation code should call this; the
// pipeline keeps Source exactly as received.
func (f Fact) SourceURL() string {
	src := strings.TrimSpace(f.Source)
	if src == "" {
		return ""
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return src
	}
	return "https://" + strings.TrimPrefix(src, "//")
}

// MaxKeyPoints caps AnalysisResult.KeyPoints.
const MaxKeyPoints = 5

type AnalysisResult struct {
	Summary            string   `json:"summary"`
	KeyPoints          []string `json:"keyPoints"`
	Facts              []Fact   `json:"facts"`
	EducationalContent string   `json:"educationalContent"`
}

// PipelineResponse is the single response contract of /transcribe.
//
// Success only reflects acquisition and transcription. Analysis and
// AnalysisError never appear together.
type PipelineResponse struct {
	Success       bool                 `json:"success"`
	Title         string               `json:"title,omitempty"`
	Transcription *TranscriptionResult `json:"transcription,omitempty"`
	Analysis      *AnalysisResult      `json:"analysis"`
	AnalysisError string               `json:"analysisError,omitempty"`
	RequestID     string               `json:"requestId,omitempty"`
}
