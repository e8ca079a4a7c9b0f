package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactSourceURL(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"", ""},
		{"   ", ""},
		{"example.com/a", "https://example.com/a"},
		{"//example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://Example.com", "HTTPS://Example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, Fact{Statement: "s", Source: tt.source}.SourceURL())
		})
	}
}

func TestPipelineResponseJSON(t *testing.T) {
	data, err := json.Marshal(PipelineResponse{
		Success:       true,
		Transcription: &TranscriptionResult{FullText: "hi"},
		AnalysisError: "malformed",
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "analysis")
	assert.Nil(t, raw["analysis"])
	assert.Equal(t, "hi", raw["transcription"].(map[string]any)["text"])
	assert.Equal(t, "malformed", raw["analysisError"])
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Ok(1).Kind.String())
	assert.Equal(t, "hard_fail", HardFail[int](nil).Kind.String())
	assert.Equal(t, "soft_fail", SoftFail[int](nil).Kind.String())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid url: required", (&ValidationError{Field: "url", Reason: "required"}).Error())
	assert.Equal(t, "acquisition upstream: http 502: bad", (&UpstreamError{Status: 502, Message: "bad"}).Error())
	assert.Equal(t, "transcription j1: codec", (&TranscriptionError{JobID: "j1", Message: "codec"}).Error())
}
