// Package acquisition relays download requests to the external audio
// acquisition service.
package acquisition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

// Forwarder posts {"url": ...} to the acquisition service and returns its
// payload untouched apart from picking out the media URL and title.
type Forwarder struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
}

type Option func(*Forwarder)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		if client != nil {
			f.httpClient = client
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(f *Forwarder) {
		if log != nil {
			f.log = log
		}
	}
}

func NewForwarder(baseURL string, opts ...Option) *Forwarder {
	f := &Forwarder{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		log:        logger.Discard().Entry,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithField("component", "acquisition")
	return f
}

// Forward relays sourceURL to the acquisition service. There is no retry.
func (f *Forwarder) Forward(ctx context.Context, sourceURL string) (types.AcquisitionResult, error) {
	var empty types.AcquisitionResult
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return empty, &types.ValidationError{Field: "url", Reason: "YouTube URL is required"}
	}

	endpoint, err := url.JoinPath(f.baseURL, "download")
	if err != nil {
		return empty, &types.UpstreamError{Message: "build url", Err: err}
	}
	encoded, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return empty, fmt.Errorf("acquisition: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, &types.UpstreamError{Message: "new request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	log := f.log.WithField("source_url", sourceURL)
	log.Info("forwarding download request")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return empty, &types.UpstreamError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, &types.UpstreamError{Status: resp.StatusCode, Message: "read body: " + err.Error(), Err: err}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, &types.UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}

	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return empty, &types.UpstreamError{Status: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	log.WithField("raw_status", raw).Debug("acquisition service response")

	status, _ := raw["transcription_status"].(map[string]any)
	if msg := stringField(status, "error"); msg != "" {
		return empty, &types.UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	result := types.AcquisitionResult{
		MediaURL:  firstNonEmpty(stringField(raw, "mediaUrl"), stringField(raw, "public_url")),
		Title:     firstNonEmpty(stringField(raw, "title"), stringField(status, "title")),
		RawStatus: raw,
	}
	if result.MediaURL == "" {
		return empty, &types.UpstreamError{Status: resp.StatusCode, Message: "no media URL returned from acquisition service"}
	}
	log.WithField("media_url", result.MediaURL).Info("media acquired")
	return result, nil
}

// upstreamMessage prefers the service's own error text over the raw body.
func upstreamMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := firstNonEmpty(stringField(payload, "error"), stringField(payload, "detail"), stringField(payload, "message")); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
