// Package api is a client for the workspace-management (Storage) API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/http"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/ratelimit"
	"github.com/rescale/rescale-staging/internal/version"
)

// TokenHeader carries the Storage API token on every request.
const TokenHeader = "X-StorageApi-Token"

// Client represents the workspace-management API client
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	token      string
	limiter    *ratelimit.RateLimiter
	logger     *logging.Logger
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("API base URL is empty")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("api")

	// Configure HTTP client with proxy support
	httpClient, err := http.ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	return NewClientWithHTTP(cfg.APIBaseURL, cfg.APIToken, httpClient, http.RetryOptions{MaxRetries: cfg.MaxRetries}, logger), nil
}

// NewClientWithHTTP creates a client on top of an already configured HTTP
// client, wrapping it with the retry policy.
func NewClientWithHTTP(baseURL, token string, httpClient *nethttp.Client, retry http.RetryOptions, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		httpClient: http.NewRetryClient(httpClient, retry, logger).StandardClient(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		limiter:    ratelimit.NewWorkspaceAPIRateLimiter(logger),
		logger:     logger,
	}
}

// doRequest performs an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug().Str("method", method).Str("path", path).
		Float64("rate_tokens", c.limiter.GetCurrentTokens()).Msg("API request")

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(TokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.AppName+"/"+version.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("API call failed")
		return nil, fmt.Errorf("%s %s: request failed: %w", method, path, err)
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		c.logger.Warn().Str("method", method).Str("path", path).
			Str("retry_after", resp.Header.Get("Retry-After")).
			Msg("throttled after exhausting retries")
	}

	return resp, nil
}

// do performs the request and decodes a JSON response into out. out may be
// nil when the response body is not needed.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(data),
		}
	}

	if out == nil || resp.StatusCode == nethttp.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}

// apiErrorMessage prefers the "error" field of a JSON error body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		if parsed.Code != "" {
			return parsed.Error + " (" + parsed.Code + ")"
		}
		return parsed.Error
	}
	return errorMessage(body)
}
