package phantombuster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeader = "X-Phantombuster-Key-1"

	// defaultMaxResponseSize caps API bodies and result artifacts
	defaultMaxResponseSize = 64 << 20
)

// ResultFormat is the declared format of a result artifact
type ResultFormat string

const (
	FormatCSV  ResultFormat = "csv"
	FormatJSON ResultFormat = "json"
)

// Config holds client settings
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	// MaxResponseBytes caps every body read; larger bodies are an error
	MaxResponseBytes int64

	// HTTPClient overrides the default client; its Timeout is left untouched
	HTTPClient *http.Client
}

// Client talks to the PhantomBuster v2 API. It never retries; callers own
// the retry policy.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxBody    int64
	logger     *slog.Logger
}

// NewClient creates a new PhantomBuster client
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseSize
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		maxBody:    maxBody,
		logger:     logger,
	}
}

type launchRequest struct {
	ID       string         `json:"id"`
	Argument map[string]any `json:"argument,omitempty"`
}

type launchResponse struct {
	ContainerID string `json:"containerId"`
}

// Launch starts an agent run and returns the container id
func (c *Client) Launch(ctx context.Context, agentID string, arguments map[string]any) (string, error) {
	body, err := json.Marshal(launchRequest{ID: agentID, Argument: arguments})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode request: %v", ErrLaunch, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/agents/launch", nil, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	defer resp.Body.Close()

	payload, err := c.readBody(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrLaunch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", ErrLaunch, resp.StatusCode, snippet(payload))
	}

	var out launchResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("%w: invalid response body: %v", ErrLaunch, err)
	}
	if out.ContainerID == "" {
		return "", fmt.Errorf("%w: response carried no containerId", ErrLaunch)
	}

	c.logger.Info("Phantom launched",
		slog.String("agent_id", agentID),
		slog.String("container_id", out.ContainerID),
	)

	return out.ContainerID, nil
}

type fetchResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	ExitCode     *int            `json:"exitCode"`
	EndType      string          `json:"endType"`
	Output       string          `json:"output"`
	ResultObject json.RawMessage `json:"resultObject"`
}

// FetchStatus returns the container's status, exit code, output log and result object
func (c *Client) FetchStatus(ctx context.Context, containerID string) (*ContainerStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientFetch, err)
	}

	query := url.Values{}
	query.Set("id", containerID)
	query.Set("withOutput", "true")
	query.Set("withResultObject", "true")

	req, err := c.newRequest(ctx, http.MethodGet, "/containers/fetch", query, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanentFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	payload, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransientFetch, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransientFetch, resp.StatusCode, snippet(payload))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", ErrPermanentFetch, resp.StatusCode, snippet(payload))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransientFetch, resp.StatusCode)
	}

	var out fetchResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %v", ErrTransientFetch, err)
	}

	return &ContainerStatus{
		ID:           out.ID,
		Status:       out.Status,
		ExitCode:     out.ExitCode,
		EndType:      out.EndType,
		Output:       out.Output,
		ResultObject: rawResultObject(out.ResultObject),
	}, nil
}

// DownloadResult retrieves a result artifact as raw bytes. The Content-Type
// must not contradict the declared format.
func (c *Client) DownloadResult(ctx context.Context, resultURL string, format ResultFormat) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %v", ErrDownload, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrDownload, resp.StatusCode)
	}

	if contentType := resp.Header.Get("Content-Type"); !contentTypeMatches(contentType, format) {
		return nil, fmt.Errorf("%w: content type %q does not match declared format %s", ErrDownload, contentType, format)
	}

	payload, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrDownload, err)
	}

	c.logger.Debug("Result artifact downloaded",
		slog.String("format", string(format)),
		slog.Int("bytes", len(payload)),
	)

	return payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// contentTypeMatches is permissive: storage buckets commonly serve artifacts
// as octet-stream or without a type at all.
func contentTypeMatches(contentType string, format ResultFormat) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "html") {
		return false
	}
	switch format {
	case FormatCSV:
		return !strings.Contains(ct, "json")
	case FormatJSON:
		return !strings.Contains(ct, "csv")
	default:
		return false
	}
}

// rawResultObject unwraps resultObject, which the API sends either as a
// JSON-encoded string or inline JSON.
func rawResultObject(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}

// readBody reads at most maxBody bytes and fails rather than truncate
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > c.maxBody {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBody)
	}
	return payload, nil
}
