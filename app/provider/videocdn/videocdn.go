package videocdn

import (
	"context"
	"net/url"
	"strings"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const (
	Origin      = "videocdn"
	DefaultHost = "https://videocdn.tv/api"
	minQuery    = 3
)

func Feeds() []feed.Feed {
	return []feed.Feed{
		{
			Name:        "movies",
			Label:       "VideoCDN movies",
			VideoOrigin: Origin,
			RequestPath: "/movies?api_token={token}&limit=100000",
			JSONPointer: "/data",
			Size:        32 << 20,
		},
		{
			Name:        "tv-series",
			Label:       "VideoCDN series",
			VideoOrigin: Origin,
			RequestPath: "/tv-series?api_token={token}&limit=100000",
			JSONPointer: "/data",
			Size:        24 << 20,
		},
	}
}

type Provider struct {
	*provider.Base
}

func New(cfg provider.Config, client fetch.Client, cache provider.AccessCache) *Provider {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Provider{Base: provider.NewBase(Origin, cfg, client, cache, minQuery)}
}

type envelope struct {
	Result    provider.FlexBool     `json:"result"`
	ErrorInfo string                `json:"error_info"`
	Data      []provider.RawMessage `json:"data"`
}

func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		_, err := p.request(ctx, "access", "/short", url.Values{"limit": {"1"}})
		return err
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	data, err := p.request(ctx, "search", "/short", url.Values{"title": {title}})
	if err != nil {
		return nil, err
	}

	videos := p.NormalizeAll(data, p.FromProvider)
	if len(videos) == 0 {
		return nil, p.Fail("search", provider.ErrNotFound, title, nil)
	}
	return videos, nil
}

// GetVideo looks the id up as a movie and as a series; the API has no
// endpoint that resolves both.
func (p *Provider) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if id == "" {
		return video.Video{}, p.Fail("lookup", provider.ErrEmptyQuery, "", nil)
	}

	return provider.DualLookup(ctx,
		func(ctx context.Context) (video.Video, error) {
			return p.lookup(ctx, "/movies", id)
		},
		func(ctx context.Context) (video.Video, error) {
			return p.lookup(ctx, "/tv-series", id)
		},
	)
}

func (p *Provider) lookup(ctx context.Context, path, id string) (video.Video, error) {
	data, err := p.request(ctx, "lookup", path, url.Values{"id": {id}})
	if err != nil {
		return video.Video{}, err
	}

	videos := p.NormalizeAll(data, p.FromProvider)
	if len(videos) == 0 {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, path+" "+id, nil)
	}
	return videos[0], nil
}

func (p *Provider) request(ctx context.Context, op, path string, query url.Values) ([]provider.RawMessage, error) {
	query.Set("api_token", p.Config.Token)

	resp, err := p.Get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}

	var env envelope
	if decodeErr := provider.Decode(resp.Body, &env); decodeErr == nil && !bool(env.Result) && env.ErrorInfo != "" {
		return nil, p.mapError(op, env.ErrorInfo)
	}
	if err := p.CheckStatus(op, resp); err != nil {
		return nil, err
	}
	if err := p.DecodeBody(op, resp, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (p *Provider) mapError(op, info string) error {
	lower := strings.ToLower(info)
	switch {
	case strings.Contains(lower, "token"), strings.Contains(lower, "authoriz"):
		return p.Fail(op, provider.ErrInvalidToken, info, nil)
	case strings.Contains(lower, "not found"):
		return p.Fail(op, provider.ErrNotFound, info, nil)
	default:
		return p.Fail(op, provider.ErrUnexpectedResponse, info, nil)
	}
}
