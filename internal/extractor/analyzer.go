// Package extractor turns a transcript into a structured content analysis by
// prompting a text-completion provider and recovering JSON from its answer.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

const (
	defaultBaseURL     = "https://api.together.xyz/v1/completions"
	defaultMaxTokens   = 1500
	defaultTemperature = 0.3
	defaultTopP        = 0.9
)

const mockCompletion = `Here is the analysis you asked for:
{
  "summary": "The video explains how rainbows form.",
  "keyPoints": ["Sunlight is refracted by water droplets", "Each colour bends at a different angle"],
  "facts": [{"statement": "Rainbows appear opposite the sun", "source": "www.weather.gov/rainbows"}],
  "educationalContent": "Refraction and dispersion split white light into a spectrum."
}`

// Config captures what the completion call needs.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	// Temperature and TopP fall back to defaults only when nil; zero is sent as is.
	Temperature *float64
	TopP        *float64
	// Mock answers with a canned completion without network access.
	Mock bool
}

// Analyzer issues one completion per transcript and extracts the analysis.
type Analyzer struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

type Option func(*Analyzer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Analyzer) {
		if client != nil {
			a.httpClient = client
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

func NewAnalyzer(cfg Config, opts ...Option) *Analyzer {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == nil {
		t := defaultTemperature
		cfg.Temperature = &t
	}
	if cfg.TopP == nil {
		p := defaultTopP
		cfg.TopP = &p
	}
	a := &Analyzer{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger.Discard().Entry,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "extractor")
	return a
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type completionResponse struct {
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze runs the completion for transcript. Every failure comes back as a
// *types.AnalysisError together with FallbackAnalysis().
func (a *Analyzer) Analyze(ctx context.Context, transcript string) (types.AnalysisResult, error) {
	prompt := BuildPrompt(transcript)
	a.log.WithField("prompt_len", len(prompt)).Info("requesting transcript analysis")

	text, err := a.complete(ctx, prompt)
	if err != nil {
		a.log.WithError(err).Warn("completion call failed")
		return FallbackAnalysis(), &types.AnalysisError{Kind: types.ProviderFailure, Message: "completion request failed", Err: err}
	}

	res, err := Extract(text)
	if err != nil {
		a.log.WithError(err).WithField("completion_len", len(text)).Warn("completion not parseable")
		return res, err
	}
	a.log.WithField("key_points", len(res.KeyPoints)).WithField("facts", len(res.Facts)).Info("analysis extracted")
	return res, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	if a.cfg.Mock {
		return mockCompletion, nil
	}
	if a.cfg.APIKey == "" {
		return "", errors.New("completion api key not configured")
	}
	encoded, err := json.Marshal(completionRequest{
		Model:       a.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: *a.cfg.Temperature,
		TopP:        *a.cfg.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("completion API responded with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	choice := completion.Choices[0]
	if choice.Text != "" {
		return choice.Text, nil
	}
	return choice.Message.Content, nil
}
