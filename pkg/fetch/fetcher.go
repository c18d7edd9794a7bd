package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// RequestOptions configures a single GET
type RequestOptions struct {
	Timeout   time.Duration // Bounds one attempt, body included; 0 disables
	UserAgent string
	Headers   http.Header // Extra headers, applied last
}

// HTTPResult is the outcome of one GET, i.e. one redirect hop
type HTTPResult struct {
	URL       string
	Status    int // 0 when no response was obtained
	Headers   http.Header
	Body      []byte
	IPAddress string
	Elapsed   time.Duration // Wall time of the call, retries included
}

// HTTPFetcher performs a GET without following redirects
type HTTPFetcher interface {
	Get(ctx context.Context, rawURL string, opts RequestOptions) (*HTTPResult, error)
}

// Fetcher handles making HTTP requests with configured retry logic, using an underlying http.Client
type Fetcher struct {
	client *http.Client      // The configured HTTP client to use for requests
	cfg    *config.AppConfig // Application config, needed primarily for retry settings
	log    *logrus.Entry
}

var _ HTTPFetcher = (*Fetcher)(nil)

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Get performs a GET associated with the provided context.
// With max_retries > 0 it retries transient network errors and 5xx/429 statuses with exponential backoff and jitter;
// once retries are exhausted on a status, that last response is returned without error.
// A transport failure returns a partial result (URL, Elapsed) together with an ErrNoResponse.
func (f *Fetcher) Get(ctx context.Context, rawURL string, opts RequestOptions) (*HTTPResult, error) {
	start := time.Now()
	result := &HTTPResult{URL: rawURL, Headers: make(http.Header)}
	defer func() { result.Elapsed = time.Since(start) }()

	reqLog := f.log.WithField("url", rawURL)

	// Get retry settings from the application configuration
	maxRetries := f.cfg.MaxRetries
	initialRetryDelay := f.cfg.InitialRetryDelay
	maxRetryDelay := f.cfg.MaxRetryDelay

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {

		// --- Context Check ---
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return result, fmt.Errorf("%w: context cancelled (%v) after error: %w", utils.ErrNoResponse, err, lastErr)
			}
			return result, fmt.Errorf("%w: %w", utils.ErrNoResponse, err)
		}

		// --- Exponential Backoff Delay ---
		if attempt > 0 {
			finalDelay := backoffDelay(attempt, initialRetryDelay, maxRetryDelay)
			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": finalDelay}).Warn("Retrying request...")

			select {
			case <-time.After(finalDelay):
			case <-ctx.Done():
				return result, fmt.Errorf("%w: context cancelled (%v) during retry delay after error: %w", utils.ErrNoResponse, ctx.Err(), lastErr)
			}
		}

		attemptResult, retryable, err := f.do(ctx, rawURL, opts)
		if err != nil {
			lastErr = err
			if !retryable || ctx.Err() != nil {
				return result, fmt.Errorf("%w: %w", utils.ErrNoResponse, err)
			}
			reqLog.WithField("attempt", attempt).Debugf("Network error: %v", err)
			continue
		}

		*result = *attemptResult
		if retryable && attempt < maxRetries {
			reqLog.WithFields(logrus.Fields{"status_code": result.Status, "attempt": attempt}).Warn("Transient status, retrying...")
			lastErr = fmt.Errorf("status %d", result.Status)
			continue
		}
		return result, nil
	}

	// --- All Retries Failed ---
	if maxRetries == 0 {
		return result, fmt.Errorf("%w: %w", utils.ErrNoResponse, lastErr)
	}
	reqLog.Debugf("All %d fetch attempts failed. Last error: %v", maxRetries+1, lastErr)
	return result, fmt.Errorf("%w: %w: %w", utils.ErrNoResponse, utils.ErrRetryFailed, lastErr)
}

// do performs one attempt. retryable reports a transient network error or a 5xx/429 status.
func (f *Fetcher) do(ctx context.Context, rawURL string, opts RequestOptions) (res *HTTPResult, retryable bool, err error) {
	attemptCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var remoteAddr string
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn != nil {
				remoteAddr = info.Conn.RemoteAddr().String()
			}
		},
	}
	attemptCtx = httptrace.WithClientTrace(attemptCtx, trace)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html")
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, !errors.Is(err, context.Canceled), err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if limit := f.cfg.HTTPClientSettings.MaxBodyBytes; limit > 0 {
		body = io.LimitReader(resp.Body, limit)
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
	}

	res = &HTTPResult{
		URL:       rawURL,
		Status:    resp.StatusCode,
		Headers:   resp.Header,
		Body:      bodyBytes,
		IPAddress: hostOnly(remoteAddr),
	}
	retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return res, retryable, nil
}

// backoffDelay is initial * 2^(attempt-1), capped by maxDelay, with +/- 10% jitter
func backoffDelay(attempt int, initial, maxDelay time.Duration) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	delay := time.Duration(backoff)
	if delay <= 0 || (maxDelay > 0 && delay > maxDelay) { // Handle zero/negative initial delay or cap exceeding max
		delay = maxDelay
	}

	// Add jitter: +/- 10% of the calculated delay to help avoid thundering herd
	var jitter time.Duration
	if delay >= 5 {
		jitter = time.Duration(rand.Int63n(int64(delay)/5)) - (delay / 10)
	}
	finalDelay := delay + jitter
	if finalDelay < 0 {
		finalDelay = 0
	}
	return finalDelay
}

func hostOnly(addr string) string {
	if addr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
