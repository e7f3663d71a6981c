package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/logging"
)

// RetryOptions tunes the retrying client. Zero wait durations fall back to the
// defaults from internal/constants.
type RetryOptions struct {
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// NewRetryClient wraps base in a retryablehttp client: connection errors, 429
// and 5xx (except 501) are retried with exponential backoff, every other status
// is returned to the caller on the first attempt.
func NewRetryClient(base *nethttp.Client, opts RetryOptions, logger *logging.Logger) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = constants.RetryWaitMin
	retryClient.RetryWaitMax = constants.RetryWaitMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.CheckRetry = RetryPolicy
	retryClient.Backoff = retryablehttp.DefaultBackoff
	retryClient.Logger = logging.NewRetryLogger(logger)
	// Hand the last response back instead of a generic "giving up" error so the
	// caller can report the status and body.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return retryClient
}

// RetryPolicy decides whether a request is retried.
func RetryPolicy(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && isPermanentURLError(urlErr) {
			return false, err
		}
		return true, nil
	}

	switch {
	case resp.StatusCode == nethttp.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode == nethttp.StatusNotImplemented:
		return false, nil
	case resp.StatusCode >= 500:
		return true, nil
	default:
		return false, nil
	}
}

// isPermanentURLError reports errors retrying cannot fix: malformed URLs and
// unsupported schemes.
func isPermanentURLError(err *url.Error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unsupported protocol scheme") ||
		strings.Contains(msg, "invalid header") ||
		strings.Contains(msg, "stopped after") // redirect limit
}
