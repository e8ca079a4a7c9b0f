package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"video-insights-go/internal/api"
	"video-insights-go/internal/config"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/pipeline"
)

func main() {
	cfg := config.Load() // loads .env

	log := logger.NewWith(cfg.Environment, cfg.LogLevel)
	log.WithField("environment", cfg.Environment).Info("starting service")

	if err := cfg.Validate(); err != nil {
		// Requests to an unconfigured provider fail individually; the
		// service still starts so /healthz stays reachable.
		log.WithError(err).Warn("incomplete configuration")
	}
	log.WithFields(map[string]interface{}{
		"acquisition_url": cfg.AcquisitionURL,
		"stt_model":       cfg.FalSTTModel,
		"mock_transcribe": cfg.MockTranscribe,
		"mock_llm":        cfg.MockLLM,
	}).Info("providers configured")

	orch := pipeline.FromConfig(cfg, log.Entry)
	handler := api.NewServer(orch, log).Routes()

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// /transcribe blocks for the whole transcription job.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown incomplete")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
