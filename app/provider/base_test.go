package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/video"
)

func newTestBase(t *testing.T, host string) *Base {
	t.Helper()
	cfg := fetch.DefaultConfig()
	cfg.RequestsPerSecond = 0
	client, err := fetch.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return NewBase("test", Config{Host: host, Token: "secret"}, client, nil, 3)
}

func TestValidateQuery(t *testing.T) {
	b := newTestBase(t, "http://unused")

	tests := []struct {
		title string
		want  error
	}{
		{"", ErrEmptyQuery},
		{"   ", ErrEmptyQuery},
		{"ab", ErrQueryTooShort},
		{"Ёж", ErrQueryTooShort},
		{"Ёжи", nil},
		{"  abc  ", nil},
	}

	for _, tt := range tests {
		_, err := b.ValidateQuery(tt.title)
		if tt.want == nil {
			if err != nil {
				t.Errorf("ValidateQuery(%q): expected no error, got %v", tt.title, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("ValidateQuery(%q): expected %v, got %v", tt.title, tt.want, err)
		}
	}
}

func TestDualLookup(t *testing.T) {
	SeriesLookupDelay = time.Millisecond
	defer func() { SeriesLookupDelay = 300 * time.Millisecond }()

	movieVideo := video.Video{ID: "1", Origin: "test", Title: "Movie"}
	seriesVideo := video.Video{ID: "1", Origin: "test", Title: "Series"}
	movieErr := NewError("test", "movie", ErrNotFound, "", nil)
	seriesErr := NewError("test", "series", ErrUnexpectedResponse, "", nil)

	tests := []struct {
		name      string
		movie     func(context.Context) (video.Video, error)
		series    func(context.Context) (video.Video, error)
		wantTitle string
		wantErr   error
	}{
		{
			name:      "movie fails, series succeeds",
			movie:     func(context.Context) (video.Video, error) { return video.Video{}, movieErr },
			series:    func(context.Context) (video.Video, error) { return seriesVideo, nil },
			wantTitle: "Series",
		},
		{
			name:      "movie succeeds, series fails",
			movie:     func(context.Context) (video.Video, error) { return movieVideo, nil },
			series:    func(context.Context) (video.Video, error) { return video.Video{}, seriesErr },
			wantTitle: "Movie",
		},
		{
			name:      "both succeed, series wins",
			movie:     func(context.Context) (video.Video, error) { return movieVideo, nil },
			series:    func(context.Context) (video.Video, error) { return seriesVideo, nil },
			wantTitle: "Series",
		},
		{
			name:    "both fail, latest error wins",
			movie:   func(context.Context) (video.Video, error) { return video.Video{}, movieErr },
			series:  func(context.Context) (video.Video, error) { return video.Video{}, seriesErr },
			wantErr: ErrUnexpectedResponse,
		},
		{
			name:    "movie fails, series empty",
			movie:   func(context.Context) (video.Video, error) { return video.Video{}, movieErr },
			series:  func(context.Context) (video.Video, error) { return video.Video{}, nil },
			wantErr: ErrNotFound,
		},
		{
			name:    "neither response nor error",
			movie:   func(context.Context) (video.Video, error) { return video.Video{}, nil },
			series:  func(context.Context) (video.Video, error) { return video.Video{}, nil },
			wantErr: ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seriesCalled bool
			series := func(ctx context.Context) (video.Video, error) {
				seriesCalled = true
				return tt.series(ctx)
			}

			v, err := DualLookup(context.Background(), tt.movie, series)
			if !seriesCalled {
				t.Error("Expected series endpoint to always be attempted")
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if v.Title != tt.wantTitle {
				t.Errorf("Expected %s, got %s", tt.wantTitle, v.Title)
			}
			if v.ID != "1" || v.Origin != "test" {
				t.Errorf("Expected identity 1/test, got %q/%q", v.ID, v.Origin)
			}
		})
	}
}

func TestDualLookupWaitsBetweenRequests(t *testing.T) {
	var movieAt time.Time
	var gap time.Duration

	_, _ = DualLookup(context.Background(),
		func(context.Context) (video.Video, error) {
			movieAt = time.Now()
			return video.Video{}, ErrNotFound
		},
		func(context.Context) (video.Video, error) {
			gap = time.Since(movieAt)
			return video.Video{ID: "1", Origin: "test"}, nil
		})

	if gap < SeriesLookupDelay {
		t.Errorf("Expected at least %v between lookups, got %v", SeriesLookupDelay, gap)
	}
}

func TestImageWindow(t *testing.T) {
	gen := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = string(rune('a' + i%26))
		}
		return out
	}

	if got := ImageWindow(gen(4)); len(got) != 4 {
		t.Errorf("Expected small lists untouched, got %d", len(got))
	}

	got := ImageWindow(gen(20))
	if len(got) != MaxImages || got[0] != "a" {
		t.Errorf("Expected first %d images, got %v", MaxImages, got)
	}

	images := gen(40)
	images[imageWindowOffset] = "window-start"
	got = ImageWindow(images)
	if len(got) != MaxImages || got[0] != "window-start" {
		t.Errorf("Expected window from offset %d, got %v", imageWindowOffset, got)
	}
}

func TestRewritePlayerURL(t *testing.T) {
	tests := []struct {
		pattern string
		embed   string
		want    string
	}{
		{"", "//kodik.info/video/1/abc/720p", "https://kodik.info/video/1/abc/720p"},
		{"https://player.example.com/{path}", "//kodik.info/video/1/abc/720p", "https://player.example.com/video/1/abc/720p"},
		{"https://p.example.com/embed/{path}", "https://cdn.example.com/movie/42?season=1", "https://p.example.com/embed/movie/42?season=1"},
		{"https://p.example.com/{path}", "", ""},
	}

	for _, tt := range tests {
		if got := RewritePlayerURL(tt.pattern, tt.embed); got != tt.want {
			t.Errorf("RewritePlayerURL(%q, %q) = %q, want %q", tt.pattern, tt.embed, got, tt.want)
		}
	}
}

func TestQuality(t *testing.T) {
	if Quality(true, "WEB-DL 1080p") != "CAMRip" {
		t.Error("Expected camrip flag to win")
	}
	if Quality(false, " WEB-DL  1080p ") != "WEB-DL 1080p" {
		t.Error("Expected cleaned source type")
	}
	if Quality(false, "") != "" {
		t.Error("Expected empty quality")
	}
}

func TestVerifyAccess(t *testing.T) {
	b := newTestBase(t, "http://unused")
	calls := 0
	fail := true
	check := func(ctx context.Context) error {
		calls++
		if fail {
			return b.Fail("access", ErrInvalidToken, "", nil)
		}
		return nil
	}

	ok, err := b.VerifyAccess(context.Background(), true, check)
	if ok || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected invalid token, got %v %v", ok, err)
	}

	// A failure must not be cached.
	fail = false
	ok, err = b.VerifyAccess(context.Background(), true, check)
	if !ok || err != nil {
		t.Fatalf("Expected access, got %v %v", ok, err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 checks, got %d", calls)
	}

	ok, _ = b.VerifyAccess(context.Background(), true, check)
	if !ok || calls != 2 {
		t.Errorf("Expected cached success without a check, calls=%d", calls)
	}

	b.VerifyAccess(context.Background(), false, check)
	if calls != 3 {
		t.Errorf("Expected useCache=false to bypass cache, calls=%d", calls)
	}
}

func TestMemoryAccessCacheConcurrent(t *testing.T) {
	cache := NewMemoryAccessCache()
	ctx := context.Background()
	key := AccessKey("token", "kodik")

	var verified atomic.Int32
	done := make(chan struct{})
	for range 20 {
		go func() {
			cache.MarkVerified(ctx, key)
			if cache.Verified(ctx, key) {
				verified.Add(1)
			}
			done <- struct{}{}
		}()
	}
	for range 20 {
		<-done
	}

	if verified.Load() != 20 {
		t.Errorf("Expected every reader to see the key, got %d", verified.Load())
	}
	if AccessKey("token", "kodik") == AccessKey("token", "hdvb") {
		t.Error("Expected origin to be part of the key")
	}
}

func TestBaseGetMapsConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	b := newTestBase(t, host)
	_, err := b.Get(context.Background(), "search", "/search", nil)
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("Expected unexpected response, got: %v", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Msg != "cannot connect" {
		t.Errorf("Expected 'cannot connect' message, got: %v", err)
	}
}

func TestBaseDownloadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "denied", http.StatusForbidden)
			return
		}
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	b := newTestBase(t, server.URL)
	f := feed.Feed{Name: "all", Label: "All", VideoOrigin: "test", RequestPath: "/dump.json?token={token}", Size: 10}
	dst := filepath.Join(t.TempDir(), "dump.json")

	path, err := b.DownloadFeed(context.Background(), f, dst, nil)
	if err != nil {
		t.Fatal(err)
	}
	if path != dst {
		t.Errorf("Expected %s, got %s", dst, path)
	}
	if data, _ := os.ReadFile(dst); string(data) != `[{"id":1}]` {
		t.Errorf("Unexpected file content: %s", data)
	}

	b.Config.Token = "wrong"
	if _, err := b.DownloadFeed(context.Background(), f, dst, nil); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected invalid token, got: %v", err)
	}

	blocked := filepath.Join(t.TempDir(), "blocked")
	os.MkdirAll(filepath.Join(blocked, "child"), 0755)
	if _, err := b.DownloadFeed(context.Background(), f, blocked, nil); !errors.Is(err, ErrFileSystemPermission) {
		t.Errorf("Expected file system permission error, got: %v", err)
	}

	other := f
	other.VideoOrigin = "other"
	if _, err := b.DownloadFeed(context.Background(), other, dst, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected invalid input for foreign feed, got: %v", err)
	}
}

func TestBaseDownloadFeedFallsBackToSize(t *testing.T) {
	payload := strings.Repeat(`{"id":1},`, 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body drops Content-Length.
		w.(http.Flusher).Flush()
		w.Write([]byte("[" + payload + `{"id":2}]`))
	}))
	defer server.Close()

	b := newTestBase(t, server.URL)
	f := feed.Feed{Name: "all", Label: "All", VideoOrigin: "test", RequestPath: "/dump.json?token={token}", Size: 4096}
	dst := filepath.Join(t.TempDir(), "dump.json")

	var totals []int64
	if _, err := b.DownloadFeed(context.Background(), f, dst, func(total, loaded int64) error {
		totals = append(totals, total)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if len(totals) == 0 {
		t.Fatal("Expected progress callbacks")
	}
	for _, total := range totals {
		if total != f.Size {
			t.Fatalf("Expected total to fall back to feed size %d, got %d", f.Size, total)
		}
	}
}
