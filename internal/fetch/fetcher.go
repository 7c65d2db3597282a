package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/novacode/novacode-backend/internal/apperr"
	"github.com/novacode/novacode-backend/internal/logging"
)

var (
	ErrFetchFailed   = errors.New("fetch failed")
	ErrURLNotAllowed = errors.New("url not allowed")
)

const (
	DefaultTimeout  = 2 * time.Minute
	DefaultMaxBytes = 200 << 20

	maxRedirects = 10
)

type Options struct {
	AllowedHosts []string
	Timeout      time.Duration
	MaxBytes     int64
	RateLimit    float64
	RateBurst    int
	UserAgent    string
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Response is a fully read upstream response.
type Response struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Fetcher performs single outbound GETs. It never retries.
type Fetcher struct {
	client    *http.Client
	allow     *AllowList
	limiter   *rate.Limiter
	maxBytes  int64
	userAgent string
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "novacode-backend"
	}
	allow := NewAllowList(opts.AllowedHosts)

	var client http.Client
	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
	} else {
		client = http.Client{Timeout: opts.Timeout}
	}
	client.CheckRedirect = checkRedirect(allow, client.CheckRedirect)

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Fetcher{
		client:    &client,
		allow:     allow,
		limiter:   rate.NewLimiter(limit, burst),
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// Check validates raw against the allow-list without any network I/O.
func (f *Fetcher) Check(raw string) error {
	if _, err := f.allow.Check(raw); err != nil {
		return apperr.Validation("fetch.check", err.Error())
	}
	return nil
}

// Fetch returns the decompressed payload behind raw.
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	resp, err := f.Get(ctx, raw)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get performs the request and reads the whole body. Any transport error,
// non-2xx status, oversized body or gzip failure is reported as
// ErrFetchFailed wrapping the cause.
func (f *Fetcher) Get(ctx context.Context, raw string) (*Response, error) {
	logger := logging.NewLogger(ctx)

	u, err := f.allow.Check(raw)
	if err != nil {
		return nil, apperr.Validation("fetch.check", err.Error())
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fetchFailed(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fetchFailed(fmt.Errorf("create request: %w", err))
	}
	// setting Accept-Encoding ourselves disables the transport's implicit
	// decompression, so gzip is handled below
	req.Header.Set("Accept-Encoding", "gzip, identity")
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrURLNotAllowed) {
			logger.LogWarnf("fetch", "redirect from %s refused: %v", u.Host, err)
			return nil, apperr.Validation("fetch.redirect", err.Error())
		}
		logger.LogError("fetch", err)
		return nil, fetchFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.LogWarnf("fetch", "upstream %s returned status %d", u.Host, resp.StatusCode)
		return nil, fetchFailed(fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, fetchFailed(err)
	}

	if strings.EqualFold(strings.TrimSpace(resp.Header.Get("Content-Encoding")), "gzip") {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fetchFailed(fmt.Errorf("gunzip: %w", err))
		}
		defer zr.Close()
		body, err = f.readLimited(zr)
		if err != nil {
			return nil, fetchFailed(fmt.Errorf("gunzip: %w", err))
		}
	}

	logger.LogInfof("fetch", "fetched %d bytes from %s in %s", len(body), u.Host, time.Since(start))

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// checkRedirect applies the allow-list to every hop, then defers to next
// or to the standard ten-hop limit.
func checkRedirect(allow *AllowList, next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if _, err := allow.Check(req.URL.String()); err != nil {
			return err
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

func fetchFailed(cause error) error {
	return apperr.Upstream("fetch", "error downloading file", fmt.Errorf("%w: %w", ErrFetchFailed, cause))
}
