package whoop

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// defaultBaseURL is the production API root.
	defaultBaseURL = "https://api.prod.whoop.com/developer"

	// requestTimeout bounds every vendor call. A slow vendor surfaces as a
	// service failure, never a hang.
	requestTimeout = 15 * time.Second

	userAgent = "rivaflow-wearsync/0.1"

	// maxErrorBodyBytes caps how much of an error response body is kept
	// for the APIError message.
	maxErrorBodyBytes = 2048
)

// Client is an HTTP client for the vendor API. It handles request
// construction, bearer authentication, and conversion of every failure mode
// into a single uniform error. There is no retry here: the engine's callers
// own re-invocation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a vendor API client. Pass baseURL "" for production.
// The HTTP client always carries the fixed request timeout.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// get executes an authenticated GET and returns the response body on 2xx.
// Any transport error or non-2xx status becomes a *APIError wrapping
// ErrServiceUnavailable. The caller must close the body on success.
func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values) (io.ReadCloser, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, newAPIError(0, err.Error())
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("vendor request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, newAPIError(0, err.Error())
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()

		if readErr != nil {
			body = []byte("(failed to read response body)")
		}

		c.logger.Warn("vendor request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return nil, newAPIError(resp.StatusCode, string(body))
	}

	c.logger.Debug("vendor request succeeded",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return resp.Body, nil
}

// do executes an arbitrary authenticated request, discarding the body.
// Used by the best-effort revoke call.
func (c *Client) do(ctx context.Context, method, accessToken, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return newAPIError(0, err.Error())
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newAPIError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return newAPIError(resp.StatusCode, string(body))
	}

	return nil
}
