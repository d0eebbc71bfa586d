package callrail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"
)

const (
	defaultBaseURL   = "https://api.callrail.com/v3"
	defaultUserAgent = "callbridge/0.1"
)

// Config controls how the CallRail API client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	AccountID  string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	UserAgent  string
}

// Client wraps the CallRail REST endpoints used by the import path.
type Client struct {
	apiKey     string
	accountID  string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
	userAgent  string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("callrail: API key is required")
	}
	if strings.TrimSpace(cfg.AccountID) == "" {
		return nil, errors.New("callrail: account id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		accountID:  cfg.AccountID,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// ListCallsRequest filters the call listing endpoint.
type ListCallsRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Page      int
	PerPage   int
}

// Call is one call resource from the listing API.
type Call struct {
	ID              string    `json:"id"`
	Answered        bool      `json:"answered"`
	Voicemail       bool      `json:"voicemail"`
	CustomerNumber  string    `json:"customer_phone_number"`
	TrackingNumber  string    `json:"tracking_phone_number"`
	DurationSeconds flexInt   `json:"duration"`
	RecordingURL    string    `json:"recording"`
	Transcription   string    `json:"transcription"`
	StartTime       time.Time `json:"start_time"`
}

// Event synthesizes the post-call lifecycle event equivalent for this call,
// so imported history flows through the same pipeline as live webhooks.
func (c Call) Event() CallEvent {
	return CallEvent{
		Type:            EventPostCall,
		CallID:          c.ID,
		CallerNumber:    c.CustomerNumber,
		TrackingNumber:  c.TrackingNumber,
		StartedAt:       c.StartTime,
		DurationSeconds: int(c.DurationSeconds),
		RecordingURL:    c.RecordingURL,
		Transcription:   c.Transcription,
		Answered:        c.Answered,
		Voicemail:       c.Voicemail,
	}
}

// CallsPage is one page of the call listing.
type CallsPage struct {
	Calls        []Call `json:"calls"`
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	TotalRecords int    `json:"total_records"`
}

// ListCalls fetches one page of calls within the date range.
func (c *Client) ListCalls(ctx context.Context, req ListCallsRequest) (*CallsPage, error) {
	q := url.Values{}
	if !req.StartDate.IsZero() {
		q.Set("start_date", req.StartDate.Format("2006-01-02"))
	}
	if !req.EndDate.IsZero() {
		q.Set("end_date", req.EndDate.Format("2006-01-02"))
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(req.PerPage))
	}
	data, err := c.invoke(ctx, http.MethodGet, fmt.Sprintf("/a/%s/calls.json", c.accountID), q)
	if err != nil {
		return nil, err
	}
	var page CallsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("callrail: decode calls page: %w", err)
	}
	return &page, nil
}

// GetCall fetches a single call by its provider identifier.
func (c *Client) GetCall(ctx context.Context, callID string) (*Call, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, errors.New("callrail: call id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, fmt.Sprintf("/a/%s/calls/%s.json", c.accountID, url.PathEscape(callID)), nil)
	if err != nil {
		return nil, err
	}
	var call Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("callrail: decode call: %w", err)
	}
	return &call, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.buildURL(path, query)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("callrail: build request: %w", err)
		}
		req.Header.Set("Authorization", `Token token="`+c.apiKey+`"`)
		req.Header.Set("User-Agent", c.userAgent)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("callrail: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("callrail: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("callrail: request failed without response")
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmedPath := "/" + strings.TrimLeft(path, "/")
	full := c.baseURL + trimmedPath
	if len(query) > 0 {
		full = full + "?" + query.Encode()
	}
	return full
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("callrail retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 && status <= 599 {
		return true
	}
	return false
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int    `json:"-"`
	Title      string `json:"error,omitempty"`
	Detail     string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("callrail: api status %d", e.StatusCode)}
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	return strings.Join(parts, ": ")
}

func decodeAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	if len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
