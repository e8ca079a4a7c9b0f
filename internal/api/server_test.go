package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-insights-go/internal/acquisition"
	"video-insights-go/internal/extractor"
	"video-insights-go/internal/pipeline"
	"video-insights-go/internal/transcription"
	"video-insights-go/internal/types"
)

// fakeProviders stands in for the acquisition service, the speech-to-text
// queue and the completion provider.
type fakeProviders struct {
	acquisitionStatus int
	completion        func(w http.ResponseWriter)

	acquisitionCalls atomic.Int32
	transcribeCalls  atomic.Int32
	completionCalls  atomic.Int32
}

func (f *fakeProviders) start(t *testing.T) (acq, stt, llm *httptest.Server) {
	t.Helper()
	acq = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.acquisitionCalls.Add(1)
		if f.acquisitionStatus != 0 {
			w.WriteHeader(f.acquisitionStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"mediaUrl": "https://cdn/x.mp3", "title": "T"})
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /fal-ai/elevenlabs/speech-to-text", func(w http.ResponseWriter, r *http.Request) {
		f.transcribeCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-1"})
	})
	mux.HandleFunc("GET /fal-ai/elevenlabs/requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "COMPLETED"})
	})
	mux.HandleFunc("GET /fal-ai/elevenlabs/requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"text": "hello world", "language_code": "eng", "language_probability": 0.99})
	})
	stt = httptest.NewServer(mux)

	llm = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.completionCalls.Add(1)
		f.completion(w)
	}))
	t.Cleanup(func() {
		acq.Close()
		stt.Close()
		llm.Close()
	})
	return acq, stt, llm
}

func newTestServer(t *testing.T, f *fakeProviders) http.Handler {
	t.Helper()
	acqSrv, sttSrv, llmSrv := f.start(t)
	o := pipeline.New(
		acquisition.NewForwarder(acqSrv.URL),
		transcription.NewClient(transcription.Config{APIKey: "k", QueueURL: sttSrv.URL, PollInterval: time.Millisecond}),
		extractor.NewAnalyzer(extractor.Config{APIKey: "k", BaseURL: llmSrv.URL, Model: "m"}),
	)
	return NewServer(o, nil).Routes()
}

func completionText(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{map[string]any{"text": text}}})
	}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDownloadThenTranscribe(t *testing.T) {
	f := &fakeProviders{completion: completionText(`{"summary":"s","keyPoints":["k1"],"facts":[],"educationalContent":""}`)}
	h := newTestServer(t, f)

	rec := post(t, h, "/download", `{"url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	acq := decode[types.AcquisitionResult](t, rec)
	assert.Equal(t, "https://cdn/x.mp3", acq.MediaURL)
	assert.Equal(t, "T", acq.Title)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = post(t, h, "/transcribe", `{"mediaUrl":"`+acq.MediaURL+`","title":"`+acq.Title+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	assert.Equal(t, "hello world", raw["transcription"].(map[string]any)["text"])
	assert.Equal(t, "s", raw["analysis"].(map[string]any)["summary"])
	assert.NotContains(t, raw, "analysisError")
}

func TestCompletionNetworkErrorIsSoft(t *testing.T) {
	f := &fakeProviders{completion: func(w http.ResponseWriter) {
		// Drop the connection mid-request.
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}}
	h := newTestServer(t, f)

	rec := post(t, h, "/transcribe", `{"mediaUrl":"https://cdn/x.mp3","title":"T"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	assert.NotNil(t, raw["transcription"])
	assert.Nil(t, raw["analysis"])
	assert.Contains(t, raw["analysisError"], "completion request failed")
}

func TestMalformedCompletionStillSucceeds(t *testing.T) {
	f := &fakeProviders{completion: completionText("Sorry, I cannot produce JSON today.")}
	h := newTestServer(t, f)

	rec := post(t, h, "/transcribe", `{"public_url":"https://cdn/x.mp3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.PipelineResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Analysis)
	assert.NotEmpty(t, resp.AnalysisError)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestEmptyURLMakesNoRemoteCalls(t *testing.T) {
	f := &fakeProviders{completion: completionText("")}
	h := newTestServer(t, f)

	for _, body := range []string{`{"url":""}`, `{}`, ``} {
		rec := post(t, h, "/download", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		eb := decode[errorBody](t, rec)
		assert.NotEmpty(t, eb.Error)
	}
	assert.Zero(t, f.acquisitionCalls.Load())
	assert.Zero(t, f.transcribeCalls.Load())
	assert.Zero(t, f.completionCalls.Load())
}

func TestAcquisitionServerErrorIsBadGateway(t *testing.T) {
	f := &fakeProviders{acquisitionStatus: http.StatusInternalServerError, completion: completionText("")}
	h := newTestServer(t, f)

	rec := post(t, h, "/download", `{"url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	eb := decode[errorBody](t, rec)
	assert.Equal(t, "storage unavailable", eb.Details)
	assert.EqualValues(t, 1, f.acquisitionCalls.Load())
	assert.Zero(t, f.transcribeCalls.Load())
}

func TestTranscribeMissingMediaURL(t *testing.T) {
	f := &fakeProviders{completion: completionText("")}
	h := newTestServer(t, f)

	rec := post(t, h, "/transcribe", `{"title":"T"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.transcribeCalls.Load())
}

func TestInvalidJSONBody(t *testing.T) {
	h := NewServer(&stubPipeline{}, nil).Routes()
	rec := post(t, h, "/download", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubPipeline returns canned errors to exercise status mapping.
type stubPipeline struct {
	err       error
	lastMedia string
	lastTitle string
}

func (s *stubPipeline) RunDownload(ctx context.Context, req types.PipelineRequest) (types.AcquisitionResult, error) {
	return types.AcquisitionResult{}, s.err
}

func (s *stubPipeline) RunTranscribeAndAnalyze(ctx context.Context, mediaURL, title string) (types.PipelineResponse, error) {
	s.lastMedia, s.lastTitle = mediaURL, title
	if s.err != nil {
		return types.PipelineResponse{}, s.err
	}
	return types.PipelineResponse{Success: true, Title: title}, nil
}

func TestTranscriptionErrorMapsTo500(t *testing.T) {
	h := NewServer(&stubPipeline{err: &types.TranscriptionError{JobID: "j", Message: "codec"}}, nil).Routes()
	rec := post(t, h, "/transcribe", `{"mediaUrl":"https://cdn/x.mp3"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	eb := decode[errorBody](t, rec)
	assert.Equal(t, "Transcription failed", eb.Error)
	assert.Equal(t, "codec", eb.Details)
}

func TestTranscribeFormBody(t *testing.T) {
	stub := &stubPipeline{}
	h := NewServer(stub, nil).Routes()

	form := url.Values{"public_url": {"https://cdn/y.mp3"}, "title": {"Form title"}}
	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn/y.mp3", stub.lastMedia)
	assert.Equal(t, "Form title", stub.lastTitle)
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewServer(&stubPipeline{}, nil).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	h := NewServer(&stubPipeline{}, nil).Routes()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
