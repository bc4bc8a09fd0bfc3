// Package remote is an HTTP client for an external audio analysis service.
// It provides silence detection and waveform extraction over the network.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maauso/clipsync/internal/silence"
	"github.com/maauso/clipsync/internal/waveform"
)

// Static errors for remote client operations.
var (
	// ErrBaseURLRequired is returned when the service URL is not provided.
	ErrBaseURLRequired = errors.New("remote: base URL is required")
	// ErrFileRefRequired is returned when a request has no file reference.
	ErrFileRefRequired = errors.New("remote: file reference is required")
	// ErrAnalysisFailed is returned when the service reports an analysis error.
	ErrAnalysisFailed = errors.New("remote: analysis failed")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("remote: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("remote: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("remote: request failed")
)

// HTTPClient talks to the analysis service.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for bearer authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(hc *HTTPClient) {
		hc.logger = l
	}
}

// NewClient creates a new analysis service client.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxRetries:  3,
		baseBackoff: 500 * time.Millisecond,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GetOrDetectSilences implements silence.Detector.
func (c *HTTPClient) GetOrDetectSilences(ctx context.Context, req silence.Request) ([]silence.Interval, error) {
	if req.FileRef == "" {
		return nil, ErrFileRefRequired
	}

	body, err := json.Marshal(silencesRequest{
		FileRef:     req.FileRef,
		ThresholdDB: req.ThresholdDB,
		MinDuration: req.MinDuration,
		PadLeft:     req.PadLeft,
		PadRight:    req.PadRight,
		ClipStart:   req.ClipStart,
		ClipEnd:     req.ClipEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: marshal request: %w", err)
	}

	var resp silencesResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+"/silences", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, resp.Error)
	}

	return resp.Silences, nil
}

// GetWaveform implements waveform.Source.
func (c *HTTPClient) GetWaveform(ctx context.Context, req waveform.Request) (waveform.Peaks, error) {
	if req.FileRef == "" {
		return waveform.Peaks{}, ErrFileRefRequired
	}
	if err := req.Validate(); err != nil {
		return waveform.Peaks{}, err
	}

	body, err := json.Marshal(waveformRequest{
		FileRef:         req.FileRef,
		SamplesPerPixel: req.SamplesPerPixel,
		Scale:           string(req.Scale),
		FloorDB:         req.FloorDB,
		Start:           req.Start,
		End:             req.End,
	})
	if err != nil {
		return waveform.Peaks{}, fmt.Errorf("remote: marshal request: %w", err)
	}

	var resp waveformResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+"/waveform", body, &resp); err != nil {
		return waveform.Peaks{}, err
	}
	if resp.Error != "" {
		return waveform.Peaks{}, fmt.Errorf("%w: %s", ErrAnalysisFailed, resp.Error)
	}

	return waveform.Peaks{Peaks: resp.Peaks, Duration: resp.Duration}, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying analysis request",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.Any("error", lastErr),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("remote: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("remote: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("remote: request failed: %w", err)
		}
		return &retryableError{err: fmt.Errorf("remote: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("remote: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("remote: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

var (
	_ silence.Detector = (*HTTPClient)(nil)
	_ waveform.Source  = (*HTTPClient)(nil)
)
