// Package media stores images and torrent files referenced by videos
// locally, so posts do not depend on provider hosted URLs.
package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

type Kind string

const (
	KindPoster     Kind = "posters"
	KindThumbnail  Kind = "thumbnails"
	KindScreenshot Kind = "screenshots"
	KindTorrent    Kind = "torrents"
)

func (k Kind) defaultExt() string {
	if k == KindTorrent {
		return ".torrent"
	}
	return ".jpg"
}

type Downloader struct {
	client fetch.Client
	dir    string
}

func NewDownloader(client fetch.Client, dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", errors.Join(provider.ErrFileSystemPermission, err))
	}
	return &Downloader{client: client, dir: dir}, nil
}

// Fetch stores rawURL under <dir>/<kind>/<sha1 of url><ext> and returns the
// slash separated path relative to dir. Already stored files are reused.
func (d *Downloader) Fetch(ctx context.Context, rawURL string, kind Kind) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid media url %q", rawURL)
	}

	sum := sha1.Sum([]byte(rawURL))
	name := hex.EncodeToString(sum[:]) + extension(u.Path, kind)
	rel := path.Join(string(kind), name)
	dst := filepath.Join(d.dir, filepath.FromSlash(rel))

	if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
		return rel, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", errors.Join(provider.ErrFileSystemPermission, err))
	}

	if _, err := d.client.Download(ctx, rawURL, dst, 0, nil); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", kind, err)
	}
	return rel, nil
}

func extension(p string, kind Kind) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 6 {
		return kind.defaultExt()
	}
	return ext
}

type Options struct {
	Images   bool
	Torrents bool
}

func (o Options) Enabled() bool {
	return o.Images || o.Torrents
}

// Enricher replaces remote media references of a video with local copies.
// Failed downloads are logged and leave the remote reference in place.
type Enricher struct {
	downloader *Downloader
	opts       Options
}

func NewEnricher(d *Downloader, opts Options) *Enricher {
	return &Enricher{downloader: d, opts: opts}
}

// Enrich returns v with media stored locally. images, when non-nil, is
// asked for supplementary screenshots if v has none.
func (e *Enricher) Enrich(ctx context.Context, v video.Video, images provider.ImageProvider) video.Video {
	if e == nil || !e.opts.Enabled() {
		return v
	}

	if e.opts.Images {
		if len(v.Screenshots) == 0 && images != nil {
			extra, err := images.GetImages(ctx, v.ID)
			if err != nil && !errors.Is(err, provider.ErrNotFound) {
				slog.Warn("Failed to get images", "video", v.Key(), "error", err)
			}
			v.Screenshots = extra
		}

		v.PosterURL = e.local(ctx, v, v.PosterURL, KindPoster)
		v.ThumbnailURL = e.local(ctx, v, v.ThumbnailURL, KindThumbnail)
		shots := make([]string, 0, len(v.Screenshots))
		for _, s := range v.Screenshots {
			shots = append(shots, e.local(ctx, v, s, KindScreenshot))
		}
		v.Screenshots = shots
	}

	if e.opts.Torrents {
		v.Torrent.FileURL = e.local(ctx, v, v.Torrent.FileURL, KindTorrent)
	}
	return v
}

func (e *Enricher) local(ctx context.Context, v video.Video, rawURL string, kind Kind) string {
	if rawURL == "" {
		return ""
	}
	rel, err := e.downloader.Fetch(ctx, rawURL, kind)
	if err != nil {
		slog.Warn("Failed to store media", "video", v.Key(), "kind", kind, "error", err)
		return rawURL
	}
	return rel
}
