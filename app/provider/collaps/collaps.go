package collaps

import (
	"context"
	"errors"
	"net/url"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const (
	Origin      = "collaps"
	DefaultHost = "https://apicollaps.cc"
	minQuery    = 2
)

func Feeds() []feed.Feed {
	return []feed.Feed{
		{
			Name:        "list",
			Label:       "Collaps catalog",
			VideoOrigin: Origin,
			RequestPath: "/list?token={token}&limit=100000",
			JSONPointer: "/results",
			Size:        58 << 20,
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

type listResponse struct {
	Total   int                   `json:"total"`
	Results []provider.RawMessage `json:"results"`
}

func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		var payload listResponse
		return p.request(ctx, "access", "/list", url.Values{"limit": {"1"}}, &payload)
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	var payload listResponse
	if err := p.request(ctx, "search", "/list", url.Values{"name": {title}}, &payload); err != nil {
		return nil, err
	}

	videos := p.NormalizeAll(payload.Results, p.FromProvider)
	if len(videos) == 0 {
		return nil, p.Fail("search", provider.ErrNotFound, title, nil)
	}
	return videos, nil
}

// GetVideo loads the franchise details, which carry the description,
// cast and trailer missing from list entries.
func (p *Provider) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if id == "" {
		return video.Video{}, p.Fail("lookup", provider.ErrEmptyQuery, "", nil)
	}

	var raw provider.RawMessage
	if err := p.request(ctx, "lookup", "/franchise/details", url.Values{"id": {id}}, &raw); err != nil {
		return video.Video{}, err
	}

	v, err := p.FromProvider(raw)
	if errors.Is(err, provider.ErrInvalidInput) {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, id, nil)
	}
	return v, err
}

func (p *Provider) GetImages(ctx context.Context, id string) ([]string, error) {
	var payload struct {
		Images provider.FlexList `json:"images"`
	}
	if err := p.request(ctx, "images", "/franchise/images", url.Values{"id": {id}}, &payload); err != nil {
		return nil, err
	}
	if len(payload.Images) == 0 {
		return nil, p.Fail("images", provider.ErrNotFound, id, nil)
	}
	return provider.ImageWindow(payload.Images), nil
}

func (p *Provider) request(ctx context.Context, op, path string, query url.Values, v any) error {
	query.Set("token", p.Config.Token)

	resp, err := p.Get(ctx, op, path, query)
	if err != nil {
		return err
	}
	if err := p.CheckStatus(op, resp); err != nil {
		return err
	}
	return p.DecodeBody(op, resp, v)
}
