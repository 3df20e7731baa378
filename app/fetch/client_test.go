package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/lysyi3m/video-comb/app/feed"
)

func newTestClient(t *testing.T) *HTTPClient {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.UserAgent = "test-agent"
	client, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected user agent 'test-agent', got '%s'", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected custom header to be forwarded")
		}
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t)
	headers := map[string]string{"Accept": "application/json"}

	resp, err := client.Get(context.Background(), server.URL+"/ok", headers)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK() || string(resp.Body) != `{"ok":true}` {
		t.Errorf("Unexpected response: %d %s", resp.StatusCode, resp.Body)
	}

	resp, err = client.Get(context.Background(), server.URL+"/missing", headers)
	if err != nil {
		t.Fatalf("Expected non-2xx status without error, got: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 10
	client, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Get(context.Background(), server.URL, nil)
	var netErr *NetError
	if !errors.As(err, &netErr) {
		t.Errorf("Expected NetError for oversized body, got: %v", err)
	}
}

func TestGetConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := newTestClient(t)
	for name, call := range map[string]func(rawURL string) error{
		"get": func(rawURL string) error {
			_, err := client.Get(context.Background(), rawURL, nil)
			return err
		},
		"download": func(rawURL string) error {
			_, err := client.Download(context.Background(), rawURL, filepath.Join(t.TempDir(), "feed.json"), 0, nil)
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := call(url + "?token=secret&api_token=hidden")
			var netErr *NetError
			if !errors.As(err, &netErr) {
				t.Fatalf("Expected NetError, got: %v", err)
			}
			for _, credential := range []string{"secret", "hidden"} {
				if strings.Contains(err.Error(), credential) {
					t.Errorf("Expected %q to be redacted, got: %s", credential, err)
				}
			}
		})
	}
}

func TestDownload(t *testing.T) {
	payload := strings.Repeat("[1,2,3]", 20000)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length: flushing first forces chunked encoding.
		w.(http.Flusher).Flush()
		w.Write([]byte(payload))
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(dst, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	var totals []int64
	var last int64
	n, err := newTestClient(t).Download(context.Background(), server.URL, dst, 777, func(total, loaded int64) error {
		if loaded < last {
			t.Errorf("Progress went backwards: %d after %d", loaded, last)
		}
		last = loaded
		totals = append(totals, total)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if n != int64(len(payload)) {
		t.Errorf("Expected %d bytes, got %d", len(payload), n)
	}
	if len(totals) == 0 || totals[0] != 777 {
		t.Errorf("Expected fallback total 777, got %v", totals)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != payload {
		t.Error("Expected existing file to be replaced with payload")
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dst), ".*.part"))
	if len(leftovers) != 0 {
		t.Errorf("Expected no temp files, got %v", leftovers)
	}
}

func TestDownloadStop(t *testing.T) {
	payload := strings.Repeat("a", 512<<10)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write([]byte(payload))
	}))
	defer server.Close()

	dst := filepath.Join(t.TempDir(), "feed.json")
	n, err := newTestClient(t).Download(context.Background(), server.URL, dst, 0, func(total, loaded int64) error {
		if total != int64(len(payload)) {
			t.Errorf("Expected Content-Length total %d, got %d", len(payload), total)
		}
		return feed.ErrStop
	})
	if !errors.Is(err, feed.ErrStop) {
		t.Fatalf("Expected ErrStop, got: %v", err)
	}
	if n == 0 || n >= int64(len(payload)) {
		t.Errorf("Expected partial download, got %d bytes", n)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Expected partial file to be kept: %v", err)
	}
	if info.Size() != n {
		t.Errorf("Expected file size %d, got %d", n, info.Size())
	}
}

func TestDownloadCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	boom := errors.New("boom")
	dst := filepath.Join(t.TempDir(), "feed.json")
	_, err := newTestClient(t).Download(context.Background(), server.URL, dst, 0, func(total, loaded int64) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected callback error to pass through, got: %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Error("Expected no file after aborted download")
	}
}

func TestDownloadErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t)
	dir := t.TempDir()

	_, err := client.Download(context.Background(), server.URL, filepath.Join(dir, "feed.json"), 0, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected StatusError 403, got: %v", err)
	}

	// A non-empty directory at dst cannot be cleared.
	blocked := filepath.Join(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocked, "child"), 0755); err != nil {
		t.Fatal(err)
	}
	_, err = client.Download(context.Background(), server.URL, blocked, 0, nil)
	var fileErr *FileError
	if !errors.As(err, &fileErr) || fileErr.Op != "remove" {
		t.Errorf("Expected FileError on remove, got: %v", err)
	}
}
