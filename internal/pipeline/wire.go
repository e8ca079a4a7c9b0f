package pipeline

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/acquisition"
	"video-insights-go/internal/config"
	"video-insights-go/internal/extractor"
	"video-insights-go/internal/transcription"
)

// FromConfig wires the production collaborators. Every stage shares one
// HTTP client; its timeout is cfg.HTTPTimeout (zero means none).
func FromConfig(cfg config.Config, log *logrus.Entry) *Orchestrator {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	acq := acquisition.NewForwarder(cfg.AcquisitionURL,
		acquisition.WithHTTPClient(client),
		acquisition.WithLogger(log),
	)
	tr := transcription.NewClient(transcription.Config{
		APIKey:       cfg.FalKey,
		QueueURL:     cfg.FalQueueURL,
		Model:        cfg.FalSTTModel,
		LanguageCode: cfg.TranscribeLanguage,
		PollInterval: cfg.PollInterval,
		Mock:         cfg.MockTranscribe,
	}, transcription.WithHTTPClient(client), transcription.WithLogger(log))
	an := extractor.NewAnalyzer(extractor.Config{
		APIKey:      cfg.CompletionAPIKey,
		BaseURL:     cfg.CompletionURL,
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.CompletionMaxTokens,
		Temperature: &cfg.CompletionTemperature,
		TopP:        &cfg.CompletionTopP,
		Mock:        cfg.MockLLM,
	}, extractor.WithHTTPClient(client), extractor.WithLogger(log))

	return New(acq, tr, an, WithLanguage(cfg.TranscribeLanguage), WithLogger(log))
}
