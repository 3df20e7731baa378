package provider

import (
	"context"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/video"
)

// Provider is the uniform capability set every catalog source exposes.
type Provider interface {
	Origin() string
	// CheckAccess verifies the configured credentials. With useCache a
	// previously verified credential short-circuits without a request.
	CheckAccess(ctx context.Context, useCache bool) (bool, error)
	GetVideos(ctx context.Context, title string) ([]video.Video, error)
	GetVideo(ctx context.Context, id string) (video.Video, error)
	// DownloadFeed streams the bulk export f into dst and returns dst.
	// feed.ErrStop from onProgress is passed back with the partial file kept.
	DownloadFeed(ctx context.Context, f feed.Feed, dst string, onProgress feed.ProgressFunc) (string, error)
	// FromProvider normalizes one raw feed or API item.
	FromProvider(raw []byte) (video.Video, error)
}

// ImageProvider is implemented by sources that can list extra images for
// a video beyond the poster.
type ImageProvider interface {
	GetImages(ctx context.Context, id string) ([]string, error)
}

// Config is the per-provider part of the process configuration.
type Config struct {
	Host  string
	Token string
	// PlayerPattern rewrites embed links; {path} receives the embed path
	// without scheme and host.
	PlayerPattern string
	// PosterPattern and ThumbnailPattern build image URLs from a kinopoisk
	// id ({id}) for sources that publish no images.
	PosterPattern    string
	ThumbnailPattern string
}
