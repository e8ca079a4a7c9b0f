// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

const maxBodyBytes = 1 << 20

// Pipeline is the orchestrator surface the handlers need.
type Pipeline interface {
	RunDownload(ctx context.Context, req types.PipelineRequest) (types.AcquisitionResult, error)
	RunTranscribeAndAnalyze(ctx context.Context, mediaURL, title string) (types.PipelineResponse, error)
}

type Server struct {
	pipeline Pipeline
	log      *logger.Logger
}

func NewServer(p Pipeline, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{pipeline: p, log: log}
}

// Routes builds the router with the middleware stack applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/download", s.handleDownload)
	r.Post("/transcribe", s.handleTranscribe)
	return r
}

type downloadRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type transcribeRequest struct {
	MediaURL  string `json:"mediaUrl"`
	PublicURL string `json:"public_url"`
	Title     string `json:"title"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.log.Entry).WithField("handler", "download")

	var body downloadRequest
	if err := decodeRequest(r, &body, func(form func(string) string) {
		body.URL = form("url")
		body.Title = form("title")
	}); err != nil {
		log.WithError(err).Warn("invalid download request body")
		writeJSON(w, log, http.StatusBadRequest, errorBody{Error: "invalid request body", Details: err.Error()})
		return
	}

	// Stage calls outlive a disconnected client.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.pipeline.RunDownload(ctx, types.PipelineRequest{SourceURL: body.URL, DisplayTitle: body.Title})
	if err != nil {
		s.writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, res)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.log.Entry).WithField("handler", "transcribe")

	var body transcribeRequest
	if err := decodeRequest(r, &body, func(form func(string) string) {
		body.MediaURL = form("mediaUrl")
		body.PublicURL = form("public_url")
		body.Title = form("title")
	}); err != nil {
		log.WithError(err).Warn("invalid transcribe request body")
		writeJSON(w, log, http.StatusBadRequest, errorBody{Error: "invalid request body", Details: err.Error()})
		return
	}
	mediaURL := strings.TrimSpace(body.MediaURL)
	if mediaURL == "" {
		mediaURL = strings.TrimSpace(body.PublicURL)
	}
	log = log.WithField("title", body.Title)
	log.Info("received transcription request")

	start := time.Now()
	resp, err := s.pipeline.RunTranscribeAndAnalyze(context.WithoutCancel(r.Context()), mediaURL, body.Title)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.writeError(w, log, err)
		return
	}
	log.WithField("analysis", resp.Analysis != nil).Info("pipeline finished")
	writeJSON(w, log, http.StatusOK, resp)
}

// writeError maps the error taxonomy onto status codes.
func (s *Server) writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	var (
		vErr  *types.ValidationError
		upErr *types.UpstreamError
		tErr  *types.TranscriptionError
	)
	switch {
	case errors.As(err, &vErr):
		log.WithError(err).Warn("validation failed")
		writeJSON(w, log, http.StatusBadRequest, errorBody{Error: vErr.Reason, Details: err.Error()})
	case errors.As(err, &upErr):
		log.WithError(err).Error("acquisition upstream failed")
		writeJSON(w, log, http.StatusBadGateway, errorBody{Error: "Failed to download from acquisition service", Details: upErr.Message})
	case errors.As(err, &tErr):
		log.WithError(err).Error("transcription failed")
		writeJSON(w, log, http.StatusInternalServerError, errorBody{Error: "Transcription failed", Details: tErr.Message})
	default:
		log.WithError(err).Error("pipeline error")
		writeJSON(w, log, http.StatusInternalServerError, errorBody{Error: "internal error", Details: err.Error()})
	}
}

// decodeRequest reads JSON bodies and falls back to form fields for
// urlencoded or multipart posts.
func decodeRequest(r *http.Request, target any, fromForm func(form func(string) string)) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
				return err
			}
		} else if err := r.ParseForm(); err != nil {
			return err
		}
		fromForm(r.PostFormValue)
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}

func writeJSON(w http.ResponseWriter, log *logrus.Entry, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

// requestLogger ensures every request carries an X-Request-ID and a
// request-scoped log entry.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		r.Header.Set(logger.RequestIDHeader, reqID)
		w.Header().Set(logger.RequestIDHeader, reqID)

		entry := s.log.WithRequest(r)
		ctx := logger.IntoContext(r.Context(), entry)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		entry.WithFields(logrus.Fields{
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request completed")
	})
}
