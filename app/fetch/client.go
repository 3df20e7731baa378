package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/video-comb/app/feed"
)

const (
	DefaultUserAgent = "Video Comb/1.0"
	DefaultTimeout   = 30 * time.Second
	// DefaultMaxBodyBytes bounds in-memory responses; feeds go through Download.
	DefaultMaxBodyBytes = 16 << 20

	downloadChunkSize = 64 << 10
)

// Client is the outbound HTTP capability provider adapters are built on.
type Client interface {
	// Get issues a GET request and returns the buffered response whatever
	// its status. Only transport failures produce an error.
	Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error)
	// Download streams rawURL into dst, replacing any existing file, and
	// reports progress after every chunk. total falls back to fallbackTotal
	// when the server sends no Content-Length. If onProgress returns
	// feed.ErrStop the bytes received so far are kept at dst and
	// feed.ErrStop is returned.
	Download(ctx context.Context, rawURL, dst string, fallbackTotal int64, onProgress feed.ProgressFunc) (int64, error)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Config struct {
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
	// RequestsPerSecond paces requests per host; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

func DefaultConfig() Config {
	return Config{
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: 5,
		Burst:             2,
		MaxBodyBytes:      DefaultMaxBodyBytes,
	}
}

type HTTPClient struct {
	base     *http.Client
	stream   *http.Client
	config   Config
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func New(cfg Config) (*HTTPClient, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		proxy = http.ProxyURL(proxyURL)
	}

	transport := &http.Transport{
		Proxy:                 proxy,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPClient{
		base: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		// Feed exports take minutes; only the header wait is bounded.
		stream:   &http.Client{Transport: transport},
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

func (c *HTTPClient) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	resp, err := c.do(ctx, c.base, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, &NetError{URL: redact(rawURL), Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return nil, &NetError{URL: redact(rawURL), Err: fmt.Errorf("response body exceeds %d bytes", c.config.MaxBodyBytes)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *HTTPClient) Download(ctx context.Context, rawURL, dst string, fallbackTotal int64, onProgress feed.ProgressFunc) (int64, error) {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, &FileError{Op: "remove", Path: dst, Err: err}
	}

	resp, err := c.do(ctx, c.stream, rawURL, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &StatusError{URL: redact(rawURL), StatusCode: resp.StatusCode, Body: body}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, &FileError{Op: "create", Path: dst, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	total := resp.ContentLength
	if total <= 0 {
		total = fallbackTotal
	}

	loaded, stopped, err := copyWithProgress(tmp, resp.Body, total, onProgress)
	if err != nil {
		var fileErr *FileError
		if errors.As(err, &fileErr) {
			fileErr.Path = dst
			return loaded, fileErr
		}
		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			return loaded, cbErr.err
		}
		return loaded, &NetError{URL: redact(rawURL), Err: err}
	}

	if err := tmp.Close(); err != nil {
		return loaded, &FileError{Op: "write", Path: dst, Err: err}
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return loaded, &FileError{Op: "rename", Path: dst, Err: err}
	}
	committed = true

	slog.Debug("Download finished", "url", redact(rawURL), "bytes", loaded, "stopped", stopped)

	if stopped {
		return loaded, feed.ErrStop
	}
	return loaded, nil
}

// callbackError marks an error returned by the progress callback so it is
// passed through untouched instead of being reported as a network failure.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }

func copyWithProgress(dst io.Writer, src io.Reader, total int64, onProgress feed.ProgressFunc) (int64, bool, error) {
	buf := make([]byte, downloadChunkSize)
	var loaded int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return loaded, false, &FileError{Op: "write", Err: err}
			}
			loaded += int64(n)

			if onProgress != nil {
				if err := onProgress(total, loaded); err != nil {
					if errors.Is(err, feed.ErrStop) {
						return loaded, true, nil
					}
					return loaded, false, &callbackError{err: err}
				}
			}
		}
		if readErr == io.EOF {
			return loaded, false, nil
		}
		if readErr != nil {
			return loaded, false, readErr
		}
	}
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (*http.Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &NetError{URL: redact(rawURL), Err: fmt.Errorf("invalid URL: %w", err)}
	}

	if err := c.limiter(parsed.Host).Wait(ctx); err != nil {
		return nil, &NetError{URL: redact(rawURL), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetError{URL: redact(rawURL), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		// net/http repeats the full request URL in its errors.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(urlErr.URL)
		}
		return nil, &NetError{URL: redact(rawURL), Err: err}
	}

	return resp, nil
}

func (c *HTTPClient) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.limiters[host]; ok {
		return l
	}

	limit := rate.Inf
	if c.config.RequestsPerSecond > 0 {
		limit = rate.Limit(c.config.RequestsPerSecond)
	}
	l := rate.NewLimiter(limit, c.config.Burst)
	c.limiters[host] = l
	return l
}

// redact strips credentials from URLs before they reach logs and errors.
func redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsed.Query()
	for _, key := range []string{"token", "api_token", "key"} {
		if q.Has(key) {
			q.Set(key, "xxx")
		}
	}
	parsed.RawQuery = q.Encode()
	parsed.User = nil
	return parsed.String()
}
