package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lysyi3m/video-comb/app/feed"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, path string, opts Options) ([]string, Result, error) {
	t.Helper()
	var items []string
	res, err := Parse(context.Background(), path, opts, func(raw []byte) error {
		items = append(items, string(raw))
		return nil
	}, nil)
	return items, res, err
}

func TestParsePointers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		pointer string
		want    []string
	}{
		{"top level", `[{"id":1},{"id":2}]`, "", []string{`{"id":1}`, `{"id":2}`}},
		{"nested", `{"time":"1ms","data":[{"id":1}],"total":1}`, "/data", []string{`{"id":1}`}},
		{"skips earlier keys", `{"meta":{"data":[9]},"results":[1,2,3]}`, "/results", []string{"1", "2", "3"}},
		{"deep", `{"a":{"b":[{"c":1}]}}`, "/a/b", []string{`{"c":1}`}},
		{"array index", `{"pages":[[1],[2,3]]}`, "/pages/1", []string{"2", "3"}},
		{"escaped", `{"a/b":{"~x":[true]}}`, "/a~1b/~0x", []string{"true"}},
		{"null array", `{"data":null}`, "/data", nil},
		{"empty array", `{"data":[]}`, "/data", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, res, err := collect(t, writeFeed(t, tt.content), Options{Pointer: tt.pointer})
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(items, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Expected %v, got %v", tt.want, items)
			}
			if res.Items != len(tt.want) || res.Stopped {
				t.Errorf("Unexpected result: %+v", res)
			}
		})
	}
}

func TestParseMissingPointer(t *testing.T) {
	path := writeFeed(t, `{"results":[1]}`)

	if _, _, err := collect(t, path, Options{Pointer: "/data"}); !errors.Is(err, ErrPointerNotFound) {
		t.Errorf("Expected ErrPointerNotFound, got: %v", err)
	}

	items, res, err := collect(t, path, Options{Pointer: "/data", Silent: true})
	if err != nil || len(items) != 0 || res.Items != 0 {
		t.Errorf("Expected silent empty result, got %v %+v %v", items, res, err)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		pointer string
	}{
		{"not an array", `{"data":{"id":1}}`, "/data"},
		{"top level object", `{"id":1}`, ""},
		{"truncated", `[{"id":1},{"id":`, ""},
		{"garbage", `<html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := collect(t, writeFeed(t, tt.content), Options{Pointer: tt.pointer}); !errors.Is(err, ErrMalformed) {
				t.Errorf("Expected ErrMalformed, got: %v", err)
			}
		})
	}
}

func TestParseTruncated(t *testing.T) {
	path := writeFeed(t, `{"data":[{"id":1},{"id":2},{"id":`)

	items, res, err := collect(t, path, Options{Pointer: "/data", Truncated: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || !res.Stopped {
		t.Errorf("Expected two complete items and a stop, got %v %+v", items, res)
	}
}

func TestParseProgress(t *testing.T) {
	content := `[{"id":"a"},{"id":"bb"},{"id":"ccc"},{"id":"dddd"}]`
	path := writeFeed(t, content)

	var sizes int64
	var last int64
	var calls int
	res, err := Parse(context.Background(), path, Options{}, func(raw []byte) error {
		sizes += int64(len(raw))
		return nil
	}, func(total, loaded int64) error {
		calls++
		if total != int64(len(content)) {
			t.Errorf("Expected file size %d, got %d", len(content), total)
		}
		if loaded <= last {
			t.Errorf("Expected increasing progress, got %d after %d", loaded, last)
		}
		last = loaded
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if calls != 4 || res.Items != 4 {
		t.Errorf("Expected 4 items and callbacks, got %d %d", res.Items, calls)
	}
	if last != sizes || res.Bytes != sizes {
		t.Errorf("Expected final progress %d to equal item bytes %d", last, sizes)
	}
}

func TestParseStop(t *testing.T) {
	path := writeFeed(t, `[1,2,3,4,5]`)

	var seen int
	var itemBytes, last int64
	res, err := Parse(context.Background(), path, Options{}, func(raw []byte) error {
		seen++
		itemBytes += int64(len(raw))
		if seen == 2 {
			return feed.ErrStop
		}
		return nil
	}, func(total, loaded int64) error {
		last = loaded
		return nil
	})
	if err != nil {
		t.Fatalf("Expected stop without error, got: %v", err)
	}
	if !res.Stopped || seen != 2 {
		t.Errorf("Expected stop after two items, got %d %+v", seen, res)
	}
	if last != itemBytes || res.Bytes != itemBytes {
		t.Errorf("Expected final progress %d to cover the stopping item, got %d", itemBytes, last)
	}

	boom := errors.New("boom")
	_, err = Parse(context.Background(), path, Options{}, func(raw []byte) error { return boom }, nil)
	if !errors.Is(err, boom) {
		t.Errorf("Expected callback error, got: %v", err)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(context.Background(), filepath.Join(t.TempDir(), "missing.json"), Options{}, func([]byte) error { return nil }, nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got: %v", err)
	}
}
