package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

const (
	defaultQueueURL     = "https://queue.fal.run"
	defaultModel        = "fal-ai/elevenlabs/speech-to-text"
	defaultLanguage     = "en"
	defaultPollInterval = 1500 * time.Millisecond

	mockTranscript = "MOCK TRANSCRIPT: welcome to the channel. Today we look at how rainbows form when sunlight is refracted by water droplets."
)

// Queue statuses reported by the provider.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

var errPending = errors.New("transcription still running")

type Config struct {
	APIKey       string
	QueueURL     string
	Model        string
	LanguageCode string
	PollInterval time.Duration
	// Mock returns a canned transcript without network access.
	Mock bool
}

// Update is one progress notification. Updates are observational only.
type Update struct {
	JobID  string
	Status string
	Logs   []string
}

// Request describes one transcription job. Progress is optional and owned by
// the caller; the client never closes it and never blocks on it.
type Request struct {
	AudioURL     string
	LanguageCode string
	Progress     chan<- Update
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logrus.Entry
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.QueueURL = strings.TrimRight(strings.TrimSpace(cfg.QueueURL), "/")
	cfg.Model = strings.Trim(strings.TrimSpace(cfg.Model), "/")
	if cfg.QueueURL == "" {
		cfg.QueueURL = defaultQueueURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if strings.TrimSpace(cfg.LanguageCode) == "" {
		cfg.LanguageCode = defaultLanguage
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        logger.Discard().Entry,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("module", "transcription")
	return c
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
	Logs   []struct {
		Message string `json:"message"`
	} `json:"logs"`
	Error string `json:"error"`
}

type word struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type"`
	SpeakerID string  `json:"speaker_id"`
}

type resultPayload struct {
	Text                string  `json:"text"`
	LanguageCode        string  `json:"language_code"`
	LanguageProbability float64 `json:"language_probability"`
	Words               []word  `json:"words"`
	Detail              any     `json:"detail"`
}

// Transcribe submits the job and blocks until the provider reports a terminal
// state. Polling continues until then; a failed poll ends the job with an error.
func (c *Client) Transcribe(ctx context.Context, req Request) (types.TranscriptionResult, error) {
	var empty types.TranscriptionResult
	audioURL := strings.TrimSpace(req.AudioURL)
	if audioURL == "" {
		return empty, &types.ValidationError{Field: "mediaUrl", Reason: "public URL is required"}
	}
	language := strings.TrimSpace(req.LanguageCode)
	if language == "" {
		language = c.cfg.LanguageCode
	}
	if c.cfg.Mock {
		return c.mock(req.Progress), nil
	}
	if c.cfg.APIKey == "" {
		return empty, &types.TranscriptionError{Message: "FAL_KEY not set"}
	}

	log := c.log.WithField("audio_url", audioURL)
	job, err := c.submit(ctx, audioURL, language)
	if err != nil {
		log.WithError(err).Error("transcription submit failed")
		return empty, err
	}
	log = log.WithField("job_id", job.RequestID)
	log.Info("transcription job submitted")

	if err := c.wait(ctx, job, req.Progress, log); err != nil {
		log.WithError(err).Error("transcription job failed")
		return empty, err
	}

	result, err := c.fetchResult(ctx, job)
	if err != nil {
		log.WithError(err).Error("transcription result unusable")
		return empty, err
	}
	log.WithField("segments", len(result.Segments)).Info("transcription completed")
	return result, nil
}

func (c *Client) submit(ctx context.Context, audioURL, language string) (submitResponse, error) {
	var job submitResponse
	endpoint, err := url.JoinPath(c.cfg.QueueURL, c.cfg.Model)
	if err != nil {
		return job, &types.TranscriptionError{Message: "build submit url", Err: err}
	}
	body, err := json.Marshal(map[string]string{
		"audio_url":     audioURL,
		"language_code": language,
	})
	if err != nil {
		return job, &types.TranscriptionError{Message: "encode submit body", Err: err}
	}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &job); err != nil {
		return job, &types.TranscriptionError{Message: "submit: " + err.Error(), Err: err}
	}
	if strings.TrimSpace(job.RequestID) == "" {
		return job, &types.TranscriptionError{Message: "submit: provider returned no request id"}
	}
	if job.StatusURL == "" {
		job.StatusURL = c.requestURL(job.RequestID, "status")
	}
	if job.ResponseURL == "" {
		job.ResponseURL = c.requestURL(job.RequestID, "")
	}
	return job, nil
}

// wait polls the job status on a constant cadence until it completes.
func (c *Client) wait(ctx context.Context, job submitResponse, progress chan<- Update, log *logrus.Entry) error {
	statusURL, err := withLogsParam(job.StatusURL)
	if err != nil {
		return &types.TranscriptionError{JobID: job.RequestID, Message: "build status url", Err: err}
	}
	seenLogs := 0
	poll := func() error {
		var st statusResponse
		if err := c.doJSON(ctx, http.MethodGet, statusURL, nil, &st); err != nil {
			return backoff.Permanent(&types.TranscriptionError{JobID: job.RequestID, Message: "status: " + err.Error(), Err: err})
		}
		var lines []string
		if seenLogs < len(st.Logs) {
			for _, l := range st.Logs[seenLogs:] {
				lines = append(lines, l.Message)
			}
			seenLogs = len(st.Logs)
		}
		publish(progress, Update{JobID: job.RequestID, Status: st.Status, Logs: lines})
		for _, line := range lines {
			log.WithField("status", st.Status).Debug(line)
		}

		switch strings.ToUpper(st.Status) {
		case StatusCompleted:
			return nil
		case StatusInQueue, StatusInProgress:
			return errPending
		default:
			msg := firstNonEmpty(st.Error, "provider reported status "+st.Status)
			return backoff.Permanent(&types.TranscriptionError{JobID: job.RequestID, Message: msg})
		}
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(c.cfg.PollInterval), ctx)
	if err := backoff.Retry(poll, bo); err != nil {
		var tErr *types.TranscriptionError
		if errors.As(err, &tErr) {
			return tErr
		}
		return &types.TranscriptionError{JobID: job.RequestID, Message: err.Error(), Err: err}
	}
	return nil
}

func (c *Client) fetchResult(ctx context.Context, job submitResponse) (types.TranscriptionResult, error) {
	var empty types.TranscriptionResult
	var payload resultPayload
	if err := c.doJSON(ctx, http.MethodGet, job.ResponseURL, nil, &payload); err != nil {
		return empty, &types.TranscriptionError{JobID: job.RequestID, Message: "result: " + err.Error(), Err: err}
	}
	return toResult(job.RequestID, payload)
}

// toResult maps the provider payload. The text is kept verbatim.
func toResult(jobID string, p resultPayload) (types.TranscriptionResult, error) {
	if p.Text == "" {
		msg := "provider returned an empty transcript"
		if p.Detail != nil {
			msg = fmt.Sprintf("%s: %v", msg, p.Detail)
		}
		return types.TranscriptionResult{}, &types.TranscriptionError{JobID: jobID, Message: msg}
	}
	segments := make([]types.TranscriptSegment, 0, len(p.Words))
	for _, w := range p.Words {
		segments = append(segments, types.TranscriptSegment{
			Text:        w.Text,
			StartOffset: w.Start,
			EndOffset:   w.End,
			Kind:        w.Type,
			SpeakerID:   w.SpeakerID,
		})
	}
	return types.TranscriptionResult{
		FullText:           p.Text,
		LanguageCode:       p.LanguageCode,
		LanguageConfidence: p.LanguageProbability,
		Segments:           segments,
		JobID:              jobID,
	}, nil
}

func (c *Client) mock(progress chan<- Update) types.TranscriptionResult {
	jobID := "mock-" + uuid.New().String()
	publish(progress, Update{JobID: jobID, Status: StatusCompleted, Logs: []string{"mock transcription"}})
	var segments []types.TranscriptSegment
	offset := 0.0
	for i, w := range strings.Fields(mockTranscript) {
		if i > 0 {
			segments = append(segments, types.TranscriptSegment{Text: " ", StartOffset: offset, EndOffset: offset, Kind: "spacing", SpeakerID: "speaker_0"})
		}
		segments = append(segments, types.TranscriptSegment{Text: w, StartOffset: offset, EndOffset: offset + 0.4, Kind: "word", SpeakerID: "speaker_0"})
		offset += 0.5
	}
	return types.TranscriptionResult{
		FullText:           mockTranscript,
		LanguageCode:       "eng",
		LanguageConfidence: 1,
		Segments:           segments,
		JobID:              jobID,
	}
}

func (c *Client) requestURL(requestID, suffix string) string {
	// The queue addresses requests under the owner/app prefix of the model id.
	parts := strings.SplitN(c.cfg.Model, "/", 3)
	app := c.cfg.Model
	if len(parts) >= 2 {
		app = parts[0] + "/" + parts[1]
	}
	elems := []string{app, "requests", requestID}
	if suffix != "" {
		elems = append(elems, suffix)
	}
	u, err := url.JoinPath(c.cfg.QueueURL, elems...)
	if err != nil {
		return ""
	}
	return u
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("json decode error: %v body=%s", err, string(data))
	}
	return nil
}

func withLogsParam(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("logs", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// publish never blocks: a full or absent channel drops the update.
func publish(ch chan<- Update, u Update) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
