// Package transfer moves bulk feed exports between a provider and the
// local working directory.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/provider"
)

// Result describes one finished download.
type Result struct {
	Path  string
	Bytes int64
	// Stopped is set when the progress callback asked to stop; the file
	// holds what was received up to that point.
	Stopped bool
}

// ProviderSource resolves the adapter owning a feed.
type ProviderSource interface {
	Get(origin string) (provider.Provider, error)
}

type Transfer struct {
	dir       string
	providers ProviderSource
}

func New(dir string, providers ProviderSource) (*Transfer, error) {
	if dir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", errors.Join(provider.ErrFileSystemPermission, err))
	}
	return &Transfer{dir: dir, providers: providers}, nil
}

func (t *Transfer) Dir() string {
	return t.dir
}

// Path is the deterministic local location of f. Two runs over the same
// feed share it, so callers serialize runs per source.
func (t *Transfer) Path(f feed.Feed) string {
	return f.LocalPath(t.dir)
}

func (t *Transfer) Exists(f feed.Feed) bool {
	info, err := os.Stat(t.Path(f))
	return err == nil && info.Mode().IsRegular()
}

// Download fetches f through its adapter, replacing any previous copy.
// feed.ErrStop from onProgress ends the transfer early without an error.
func (t *Transfer) Download(ctx context.Context, f feed.Feed, onProgress feed.ProgressFunc) (Result, error) {
	p, err := t.providers.Get(f.VideoOrigin)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve provider for feed %s: %w", f.Key(), err)
	}

	start := time.Now()
	dst := t.Path(f)

	var loaded int64
	track := func(total, n int64) error {
		loaded = n
		if onProgress == nil {
			return nil
		}
		return onProgress(total, n)
	}

	path, err := p.DownloadFeed(ctx, f, dst, track)
	stopped := errors.Is(err, feed.ErrStop)
	if err != nil && !stopped {
		return Result{}, fmt.Errorf("failed to download feed %s: %w", f.Key(), err)
	}
	if path == "" {
		path = dst
	}

	slog.Debug("Feed downloaded",
		"feed", f.Key(),
		"bytes", loaded,
		"stopped", stopped,
		"duration", time.Since(start))

	return Result{Path: path, Bytes: loaded, Stopped: stopped}, nil
}

// Remove deletes the local copy of f. A missing file is an error: every
// caller downloaded it first.
func (t *Transfer) Remove(f feed.Feed) error {
	path := t.Path(f)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove feed file %s: %w", path, err)
		}
		return fmt.Errorf("failed to remove feed file %s: %w", path, errors.Join(provider.ErrFileSystemPermission, err))
	}
	return nil
}
