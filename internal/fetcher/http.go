package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"cartscout/internal/config"
	"cartscout/internal/types"
)

// respectfulDelay is the fixed pause before every search request.
const respectfulDelay = 1 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 * 1024 * 1024

// Client issues browser-like HTTP requests against the target site. All
// requests share one cookie jar (the Session's) and are paced by a
// requests-per-minute limiter.
type Client struct {
	http    *http.Client
	cfg     *config.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client bound to the given session's cookie jar.
func NewClient(cfg *config.Config, session *Session, logger *slog.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // we handle decompression ourselves (including brotli)
	}

	httpClient := &http.Client{
		Transport: transport,
		Jar:       session.Jar(),
		Timeout:   cfg.Crawler.RequestTimeout,
	}

	rpm := cfg.Crawler.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		logger:  logger.With("component", "fetcher"),
	}
}

// HTTP exposes the underlying client for single-shot probes (robots.txt,
// the authentication liveness check).
func (c *Client) HTTP() *http.Client { return c.http }

// SearchURL builds the keyword search URL, substituting spaces with "+".
func (c *Client) SearchURL(keyword string) string {
	return fmt.Sprintf("%s/s?k=%s", c.cfg.Site.BaseURL, strings.ReplaceAll(keyword, " ", "+"))
}

// FetchSearch fetches the search results page for a keyword. It pauses a
// fixed respectful delay first and retries transient failures with
// exponential backoff. The final failure is returned to the caller, which
// treats it as an empty result rather than a crash.
func (c *Client) FetchSearch(ctx context.Context, keyword string) ([]byte, error) {
	searchURL := c.SearchURL(keyword)
	c.logger.Info("searching", "keyword", keyword, "url", searchURL)

	select {
	case <-time.After(respectfulDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return c.GetWithRetry(ctx, searchURL)
}

// GetWithRetry fetches a URL, retrying transient failures up to the
// configured attempt count with exponential backoff (base * 2^attempt).
func (c *Client) GetWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	attempts := c.cfg.Crawler.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := c.Get(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var fetchErr *types.FetchError
		if errors.As(err, &fetchErr) && !fetchErr.Retryable {
			return nil, err
		}
		if attempt < attempts-1 {
			backoff := c.cfg.Crawler.RetryDelay * (1 << attempt)
			c.logger.Warn("request failed, backing off",
				"url", rawURL,
				"attempt", attempt+1,
				"max_attempts", attempts,
				"backoff", backoff,
				"error", err,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", types.ErrMaxRetries, lastErr)
}

// Get issues a single GET with the browser-emulating header set and returns
// the decompressed body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}
	c.setBrowserHeaders(req)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: isRetryableError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
			Retryable:  retryable,
		}
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err, Retryable: true}
	}
	if len(body) == 0 {
		return nil, &types.FetchError{URL: rawURL, Err: types.ErrEmptyResponse, Retryable: true}
	}

	c.logger.Debug("fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}

// setBrowserHeaders applies the fixed browser-emulating header set.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.Crawler.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("DNT", "1")
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
// Covers timeouts, connection resets, unexpected EOF, and connection refused.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// Context cancellation is NOT retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}
