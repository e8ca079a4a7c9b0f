package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	AcquisitionURL string

	FalKey             string
	FalQueueURL        string
	FalSTTModel        string
	TranscribeLanguage string
	PollInterval       time.Duration

	CompletionURL         string
	CompletionAPIKey      string
	CompletionModel       string
	CompletionMaxTokens   int
	CompletionTemperature float64
	CompletionTopP        float64

	// HTTPTimeout applies to single request/response calls. Zero keeps the
	// transport default (no client-side timeout).
	HTTPTimeout time.Duration

	MockTranscribe bool
	MockLLM        bool
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		Environment: envOr("ENVIRONMENT", "local"),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		AcquisitionURL: envOr("ACQUISITION_URL", "http://localhost:8000"),

		FalKey:             os.Getenv("FAL_KEY"),
		FalQueueURL:        envOr("FAL_QUEUE_URL", "https://queue.fal.run"),
		FalSTTModel:        envOr("FAL_STT_MODEL", "fal-ai/elevenlabs/speech-to-text"),
		TranscribeLanguage: envOr("TRANSCRIBE_LANGUAGE", "en"),
		PollInterval:       time.Duration(envInt("TRANSCRIBE_POLL_MS", 1500)) * time.Millisecond,

		CompletionURL:         envOr("COMPLETION_URL", "https://api.together.xyz/v1/completions"),
		CompletionAPIKey:      os.Getenv("DEEPSEEK_API_KEY"),
		CompletionModel:       os.Getenv("DEEPSEEK_MODEL"),
		CompletionMaxTokens:   envInt("COMPLETION_MAX_TOKENS", 1500),
		CompletionTemperature: envFloat("COMPLETION_TEMPERATURE", 0.3),
		CompletionTopP:        envFloat("COMPLETION_TOP_P", 0.9),

		HTTPTimeout: time.Duration(envInt("HTTP_TIMEOUT_SEC", 0)) * time.Second,

		MockTranscribe: envBool("USE_MOCK_TRANSCRIBE"),
		MockLLM:        envBool("USE_MOCK_LLM"),
	}
}

// Validate reports credentials that are required for the non-mock providers.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AcquisitionURL) == "" {
		errs = append(errs, errors.New("ACQUISITION_URL not set"))
	}
	if !c.MockTranscribe && strings.TrimSpace(c.FalKey) == "" {
		errs = append(errs, errors.New("FAL_KEY not set"))
	}
	if !c.MockLLM {
		if strings.TrimSpace(c.CompletionAPIKey) == "" {
			errs = append(errs, errors.New("DEEPSEEK_API_KEY not set"))
		}
		if strings.TrimSpace(c.CompletionModel) == "" {
			errs = append(errs, errors.New("DEEPSEEK_MODEL not set"))
		}
	}
	return errors.Join(errs...)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(k string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(k)), "true")
}
