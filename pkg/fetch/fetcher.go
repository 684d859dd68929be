package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"records-scraper/pkg/utils"
)

// DocumentFetcher is the retrieval boundary the scheduler and orchestrator
// depend on. Implementations perform exactly one attempt per call; retry
// policy belongs to the caller.
type DocumentFetcher interface {
	// Fetch performs a single GET. On success the response body is open and
	// the caller must close it. On error the body is already closed and the
	// returned error wraps one of the utils fetch sentinels (ErrTimeout,
	// ErrConnection, ErrClientHTTPError, ErrServerHTTPError,
	// ErrOtherHTTPError) or a context error.
	Fetch(ctx context.Context, rawURL string) (*http.Response, error)
}

// Fetcher performs single HTTP GET attempts with failure classification.
// Network I/O only; it never touches the filesystem.
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       *logrus.Logger
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, userAgent string, log *logrus.Logger) *Fetcher {
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

// Fetch implements DocumentFetcher
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	reqLog := f.log.WithField("url", rawURL)

	resp, err := f.client.Do(req)
	if err != nil {
		// Responses on the error path carry no usable body
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return nil, f.classifyNetworkError(ctx, rawURL, err, reqLog)
	}

	statusCode := resp.StatusCode
	resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "status": resp.Status})

	switch {
	case statusCode >= 200 && statusCode < 300:
		resLog.Debug("Fetched")
		return resp, nil

	case statusCode >= 500:
		resLog.Warn("Server error")
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, resp.Status)

	case statusCode >= 400 && statusCode < 500:
		resLog.Warn("Client error")
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, resp.Status)

	default:
		resLog.Warnf("Unexpected status: %d", statusCode)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, resp.Status)
	}
}

// classifyNetworkError maps transport-level failures onto the fetch error
// taxonomy. Cancellation of the caller's context is passed through untouched
// so callers can tell operator cancellation from a slow server.
func (f *Fetcher) classifyNetworkError(ctx context.Context, rawURL string, err error, reqLog *logrus.Entry) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		reqLog.Warnf("Request cancelled: %v", err)
		return context.Canceled
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reqLog.Warnf("Request timed out: %v", err)
		return fmt.Errorf("%w: '%s': %w", utils.ErrTimeout, rawURL, err)
	}

	reqLog.Warnf("Connection failed: %v", err)
	return fmt.Errorf("%w: '%s': %w", utils.ErrConnection, rawURL, err)
}
