package types

import "fmt"

// ValidationError reports bad or missing input. It is always raised before
// any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError reports a failure of the acquisition service.
type UpstreamError struct {
	Status  int // zero when the request never got a response
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("acquisition upstream: http %d: %s", e.Status, e.Message)
	}
	return "acquisition upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TranscriptionError is terminal for the pipeline; there is no fallback transcript.
type TranscriptionError struct {
	JobID   string
	Message string
	Err     error
}

func (e *TranscriptionError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("transcription %s: %s", e.JobID, e.Message)
	}
	return "transcription: " + e.Message
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

type AnalysisErrorKind string

const (
	ProviderFailure AnalysisErrorKind = "provider_failure"
	MalformedOutput AnalysisErrorKind = "malformed_output"
)

// AnalysisError is the soft failure of the analysis stage. The orchestrator
// records it in PipelineResponse.AnalysisError instead of failing the request.
type AnalysisError struct {
	Kind    AnalysisErrorKind
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AnalysisError) Unwrap() error { return e.Err }
