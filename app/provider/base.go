package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/video"
)

// SeriesLookupDelay paces the second request of a movie/series lookup.
var SeriesLookupDelay = 300 * time.Millisecond

const (
	MaxImages         = 6
	imageWindowOffset = 10
	imageWindowFrom   = 30
	camripQuality     = "CAMRip"
)

// Base holds the plumbing shared by all adapters. Adapters embed it and
// supply their own requests and normalization.
type Base struct {
	Config   Config
	Client   fetch.Client
	origin   string
	minQuery int
	cache    AccessCache
	checks   singleflight.Group
}

func NewBase(origin string, cfg Config, client fetch.Client, cache AccessCache, minQuery int) *Base {
	if cache == nil {
		cache = NewMemoryAccessCache()
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Base{
		Config:   cfg,
		Client:   client,
		origin:   origin,
		minQuery: minQuery,
		cache:    cache,
	}
}

func (b *Base) Origin() string {
	return b.origin
}

func (b *Base) Fail(op string, kind error, msg string, err error) error {
	return NewError(b.origin, op, kind, msg, err)
}

func (b *Base) InvalidInput(format string, args ...any) error {
	return invalidInput(b.origin, format, args...)
}

// ValidateQuery trims title and checks it against the provider minimum
// before anything goes over the network.
func (b *Base) ValidateQuery(title string) (string, error) {
	title = video.Clean(title)
	if title == "" {
		return "", b.Fail("search", ErrEmptyQuery, "", nil)
	}
	if n := utf8.RuneCountInString(title); n < b.minQuery {
		return "", b.Fail("search", ErrQueryTooShort, fmt.Sprintf("%d characters, need at least %d", n, b.minQuery), nil)
	}
	return title, nil
}

// VerifyAccess runs check unless useCache is set and the credential was
// verified before. Concurrent checks for one credential share one request.
func (b *Base) VerifyAccess(ctx context.Context, useCache bool, check func(ctx context.Context) error) (bool, error) {
	key := AccessKey(b.Config.Token+"@"+b.Config.Host, b.origin)

	if useCache && b.cache.Verified(ctx, key) {
		slog.Debug("Access verified from cache", "provider", b.origin)
		return true, nil
	}

	_, err, _ := b.checks.Do(key, func() (any, error) {
		return nil, check(ctx)
	})
	if err != nil {
		return false, err
	}

	if err := b.cache.MarkVerified(ctx, key); err != nil {
		slog.Warn("Failed to cache access check", "provider", b.origin, "error", err)
	}

	return true, nil
}

// Get issues a GET against the provider host and maps transport failures.
// Statuses are left to the caller.
func (b *Base) Get(ctx context.Context, op, path string, query url.Values) (*fetch.Response, error) {
	u := b.Config.Host + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return b.GetURL(ctx, op, u)
}

func (b *Base) GetURL(ctx context.Context, op, rawURL string) (*fetch.Response, error) {
	resp, err := b.Client.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, b.mapFetchError(op, err)
	}
	return resp, nil
}

// CheckStatus maps common HTTP statuses into the taxonomy.
func (b *Base) CheckStatus(op string, resp *fetch.Response) error {
	switch {
	case resp.OK():
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return b.Fail(op, ErrInvalidToken, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return b.Fail(op, ErrNotFound, "", nil)
	default:
		return b.Fail(op, ErrUnexpectedResponse, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
}

// DecodeBody decodes a response into v, mapping malformed JSON.
func (b *Base) DecodeBody(op string, resp *fetch.Response, v any) error {
	if err := Decode(resp.Body, v); err != nil {
		return b.Fail(op, ErrUnexpectedResponse, "malformed body", err)
	}
	return nil
}

// DownloadFeed streams f from the provider host into dst.
func (b *Base) DownloadFeed(ctx context.Context, f feed.Feed, dst string, onProgress feed.ProgressFunc) (string, error) {
	if f.VideoOrigin != b.origin {
		return "", b.Fail("download", ErrInvalidInput, fmt.Sprintf("feed %s belongs to %s", f.Key(), f.VideoOrigin), nil)
	}

	_, err := b.Client.Download(ctx, f.RequestURL(b.Config.Host, b.Config.Token), dst, f.Size, onProgress)
	if errors.Is(err, feed.ErrStop) {
		return dst, feed.ErrStop
	}
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			return "", b.CheckStatus("download", &fetch.Response{StatusCode: statusErr.StatusCode})
		}
		return "", b.mapFetchError("download", err)
	}

	return dst, nil
}

func (b *Base) mapFetchError(op string, err error) error {
	var netErr *fetch.NetError
	var fileErr *fetch.FileError
	switch {
	case errors.As(err, &fileErr):
		return b.Fail(op, ErrFileSystemPermission, fileErr.Path, err)
	case errors.As(err, &netErr):
		return b.Fail(op, ErrUnexpectedResponse, "cannot connect", err)
	default:
		return b.Fail(op, ErrUnexpectedResponse, "", err)
	}
}

// NormalizeAll normalizes a batch of API items. Items without an id are
// dropped silently, anything else that fails is logged and dropped.
func (b *Base) NormalizeAll(items []RawMessage, normalize func(raw []byte) (video.Video, error)) []video.Video {
	videos := make([]video.Video, 0, len(items))
	for _, raw := range items {
		v, err := normalize(raw)
		if err != nil {
			if !errors.Is(err, ErrInvalidInput) {
				slog.Warn("Failed to normalize item", "provider", b.origin, "error", err)
			}
			continue
		}
		videos = append(videos, v)
	}
	return videos
}

// PlayerURL rewrites an embed link into the configured player pattern.
// Without a pattern the embed link is returned with an https scheme.
func (b *Base) PlayerURL(embed string) string {
	return RewritePlayerURL(b.Config.PlayerPattern, embed)
}

func RewritePlayerURL(pattern, embed string) string {
	embed = strings.TrimSpace(embed)
	if embed == "" {
		return ""
	}
	if strings.HasPrefix(embed, "//") {
		embed = "https:" + embed
	}
	if pattern == "" {
		return embed
	}

	u, err := url.Parse(embed)
	if err != nil || u.Host == "" {
		return strings.ReplaceAll(pattern, "{path}", strings.TrimLeft(embed, "/"))
	}

	path := strings.TrimLeft(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return strings.ReplaceAll(pattern, "{path}", path)
}

// ImageURL fills {id} in pattern; empty when either side is missing.
func ImageURL(pattern, id string) string {
	if pattern == "" || id == "" {
		return ""
	}
	return strings.ReplaceAll(pattern, "{id}", url.PathEscape(id))
}

// ImageWindow caps a supplementary image list. Large galleries start with
// near-duplicate stills, so past imageWindowFrom entries the window is
// taken from a fixed offset.
func ImageWindow(images []string) []string {
	if len(images) <= MaxImages {
		return images
	}
	start := 0
	if len(images) > imageWindowFrom {
		start = imageWindowOffset
	}
	out := make([]string, MaxImages)
	copy(out, images[start:start+MaxImages])
	return out
}

// Quality builds the quality label from a camera-rip flag and the source
// type the provider reports.
func Quality(camrip bool, source string) string {
	source = video.Clean(source)
	if camrip {
		return camripQuality
	}
	return source
}

// DualLookup resolves ids that may name either a movie or a series. Both
// endpoints are always queried, the second after SeriesLookupDelay; a valid
// series result wins over a valid movie result. When neither is valid the
// most recent failure is returned.
func DualLookup(ctx context.Context, movie, series func(ctx context.Context) (video.Video, error)) (video.Video, error) {
	var found *video.Video
	var lastErr error

	m, err := movie(ctx)
	switch {
	case err != nil:
		lastErr = err
	case m.HasIdentity():
		found = &m
	}

	timer := time.NewTimer(SeriesLookupDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return video.Video{}, ctx.Err()
	case <-timer.C:
	}

	s, err := series(ctx)
	switch {
	case err != nil:
		lastErr = err
	case s.HasIdentity():
		found = &s
	}

	if found != nil {
		return *found, nil
	}
	if lastErr != nil {
		return video.Video{}, lastErr
	}
	return video.Video{}, ErrInternal
}
