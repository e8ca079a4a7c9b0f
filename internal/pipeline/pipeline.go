// Package pipeline sequences acquisition, transcription and analysis for one
// request and folds their outcomes into a single response.
//
// Transcription failures are terminal. Analysis failures are recorded in the
// response and never flip Success. No stage is retried.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/metrics"
	"video-insights-go/internal/transcription"
	"video-insights-go/internal/types"
)

const progressBuffer = 32

type Acquirer interface {
	Forward(ctx context.Context, sourceURL string) (types.AcquisitionResult, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (types.TranscriptionResult, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (types.AnalysisResult, error)
}

// Orchestrator holds only its collaborators; requests share no mutable state.
type Orchestrator struct {
	acquirer    Acquirer
	transcriber Transcriber
	analyzer    Analyzer
	language    string
	log         *logrus.Entry
}

type Option func(*Orchestrator)

// WithLanguage sets the language hint passed to the transcriber.
func WithLanguage(code string) Option {
	return func(o *Orchestrator) {
		o.language = strings.TrimSpace(code)
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

func New(acq Acquirer, tr Transcriber, an Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		acquirer:    acq,
		transcriber: tr,
		analyzer:    an,
		log:         logger.Discard().Entry,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunDownload performs the acquisition stage only.
func (o *Orchestrator) RunDownload(ctx context.Context, req types.PipelineRequest) (types.AcquisitionResult, error) {
	log := o.requestLog(ctx).WithField("source_url", req.SourceURL)
	enter(log, types.StageAcquiring)
	start := time.Now()

	res, err := o.acquirer.Forward(ctx, req.SourceURL)
	if err != nil {
		metrics.ObserveStage(string(types.StageAcquiring), types.OutcomeHardFail.String(), time.Since(start))
		logger.WithError(log, err).WithField("stage", types.StageFailed).Warn("acquisition failed")
		return types.AcquisitionResult{}, err
	}
	metrics.ObserveStage(string(types.StageAcquiring), types.OutcomeOK.String(), time.Since(start))
	enter(log.WithField("media_url", res.MediaURL), types.StageAcquired)
	return res, nil
}

// RunTranscribeAndAnalyze transcribes mediaURL and, only when that succeeds,
// analyzes the transcript. The returned error is non-nil exactly when the
// response is unsuccessful.
func (o *Orchestrator) RunTranscribeAndAnalyze(ctx context.Context, mediaURL, title string) (types.PipelineResponse, error) {
	log := o.requestLog(ctx).WithField("media_url", mediaURL)
	if strings.TrimSpace(mediaURL) == "" {
		err := &types.ValidationError{Field: "mediaUrl", Reason: "public URL is required"}
		logger.WithError(log, err).WithField("stage", types.StageFailed).Warn("rejected transcription request")
		return types.PipelineResponse{Title: title}, err
	}

	tr := o.transcribe(ctx, log, mediaURL)
	var an types.Outcome[types.AnalysisResult]
	if tr.Kind == types.OutcomeOK {
		an = o.analyze(ctx, log, tr.Value.FullText)
	}

	resp, err := assemble(title, tr, an)
	if err != nil {
		logger.WithError(log, err).WithField("stage", types.StageFailed).Warn("pipeline failed")
		return resp, err
	}
	enter(log.WithField("analysis", resp.Analysis != nil), types.StageDone)
	return resp, nil
}

// Run drives the whole chain for one source URL.
func (o *Orchestrator) Run(ctx context.Context, req types.PipelineRequest) (types.PipelineResponse, error) {
	acq, err := o.RunDownload(ctx, req)
	if err != nil {
		return types.PipelineResponse{Title: req.DisplayTitle}, err
	}
	title := req.DisplayTitle
	if title == "" {
		title = acq.Title
	}
	return o.RunTranscribeAndAnalyze(ctx, acq.MediaURL, title)
}

func (o *Orchestrator) transcribe(ctx context.Context, log *logrus.Entry, mediaURL string) types.Outcome[types.TranscriptionResult] {
	enter(log, types.StageTranscribing)
	start := time.Now()

	progress := make(chan transcription.Update, progressBuffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for u := range progress {
			entry := log.WithField("job_id", u.JobID).WithField("status", u.Status)
			if u.Status == transcription.StatusInProgress {
				entry.Info("transcription in progress")
			}
			for _, line := range u.Logs {
				entry.Info(line)
			}
		}
	}()

	res, err := o.transcriber.Transcribe(ctx, transcription.Request{
		AudioURL:     mediaURL,
		LanguageCode: o.language,
		Progress:     progress,
	})
	close(progress)
	<-drained

	if err != nil {
		metrics.ObserveStage(string(types.StageTranscribing), types.OutcomeHardFail.String(), time.Since(start))
		var vErr *types.ValidationError
		var tErr *types.TranscriptionError
		if !errors.As(err, &vErr) && !errors.As(err, &tErr) {
			err = &types.TranscriptionError{Message: err.Error(), Err: err}
		}
		return types.HardFail[types.TranscriptionResult](err)
	}
	metrics.ObserveStage(string(types.StageTranscribing), types.OutcomeOK.String(), time.Since(start))
	enter(log.WithField("job_id", res.JobID), types.StageTranscribed)
	return types.Ok(res)
}

func (o *Orchestrator) analyze(ctx context.Context, log *logrus.Entry, transcript string) types.Outcome[types.AnalysisResult] {
	enter(log, types.StageAnalyzing)
	start := time.Now()

	res, err := o.analyzer.Analyze(ctx, transcript)
	if err != nil {
		var aErr *types.AnalysisError
		if !errors.As(err, &aErr) {
			aErr = &types.AnalysisError{Kind: types.ProviderFailure, Message: "analysis failed", Err: err}
		}
		metrics.ObserveStage(string(types.StageAnalyzing), types.OutcomeSoftFail.String(), time.Since(start))
		metrics.IncAnalysisError(string(aErr.Kind))
		logger.WithError(log, err).WithField("kind", aErr.Kind).Warn("analysis failed, returning transcript only")
		return types.SoftFail[types.AnalysisResult](aErr)
	}
	metrics.ObserveStage(string(types.StageAnalyzing), types.OutcomeOK.String(), time.Since(start))
	return types.Ok(res)
}

// assemble is a pure function of the stage outcomes.
func assemble(title string, tr types.Outcome[types.TranscriptionResult], an types.Outcome[types.AnalysisResult]) (types.PipelineResponse, error) {
	if tr.Kind != types.OutcomeOK {
		return types.PipelineResponse{Success: false, Title: title}, tr.Err
	}
	transcript := tr.Value
	resp := types.PipelineResponse{
		Success:       true,
		Title:         title,
		Transcription: &transcript,
		RequestID:     transcript.JobID,
	}
	switch an.Kind {
	case types.OutcomeOK:
		analysis := an.Value
		resp.Analysis = &analysis
	default:
		resp.AnalysisError = errorMessage(an.Err)
	}
	return resp, nil
}

func errorMessage(err error) string {
	if err == nil {
		return "analysis failed"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "analysis failed"
}

func (o *Orchestrator) requestLog(ctx context.Context) *logrus.Entry {
	return logger.FromContext(ctx, o.log).WithField("component", "pipeline")
}

func enter(log *logrus.Entry, stage types.Stage) {
	log.WithField("stage", stage).Info("pipeline stage")
}
