package kodik

import (
	"context"
	"net/url"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const (
	Origin      = "kodik"
	DefaultHost = "https://kodikapi.com"
	minQuery    = 2
)

func Feeds() []feed.Feed {
	return []feed.Feed{
		{
			Name:        "films",
			Label:       "Kodik films",
			VideoOrigin: Origin,
			RequestPath: "/films.json?token={token}&with_material_data=true",
			Size:        83 << 20,
		},
		{
			Name:        "serials",
			Label:       "Kodik serials",
			VideoOrigin: Origin,
			RequestPath: "/serials.json?token={token}&with_material_data=true",
			Size:        41 << 20,
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
	Error   string                `json:"error"`
	Total   int                   `json:"total"`
	Results []provider.RawMessage `json:"results"`
}

func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		_, err := p.list(ctx, "access", "/translations/v2", url.Values{})
		return err
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	resp, err := p.list(ctx, "search", "/search", url.Values{
		"title":              {title},
		"with_material_data": {"true"},
	})
	if err != nil {
		return nil, err
	}

	videos := p.NormalizeAll(resp.Results, p.FromProvider)
	if len(videos) == 0 {
		return nil, p.Fail("search", provider.ErrNotFound, title, nil)
	}
	return videos, nil
}

func (p *Provider) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if id == "" {
		return video.Video{}, p.Fail("lookup", provider.ErrEmptyQuery, "", nil)
	}

	resp, err := p.list(ctx, "lookup", "/search", url.Values{
		"id":                 {id},
		"with_material_data": {"true"},
	})
	if err != nil {
		return video.Video{}, err
	}

	videos := p.NormalizeAll(resp.Results, p.FromProvider)
	if len(videos) == 0 {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, id, nil)
	}
	return videos[0], nil
}

// GetImages returns screenshots for a video, capped to provider.MaxImages.
func (p *Provider) GetImages(ctx context.Context, id string) ([]string, error) {
	resp, err := p.Get(ctx, "images", "/screenshots", url.Values{"token": {p.Config.Token}, "id": {id}})
	if err != nil {
		return nil, err
	}
	if err := p.CheckStatus("images", resp); err != nil {
		return nil, err
	}

	var payload struct {
		Error   string `json:"error"`
		Results []struct {
			Screenshots provider.FlexList `json:"screenshots"`
		} `json:"results"`
	}
	if err := p.DecodeBody("images", resp, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, p.mapError("images", payload.Error)
	}

	var images []string
	for _, r := range payload.Results {
		images = append(images, r.Screenshots...)
	}
	if len(images) == 0 {
		return nil, p.Fail("images", provider.ErrNotFound, id, nil)
	}
	return provider.ImageWindow(images), nil
}

func (p *Provider) list(ctx context.Context, op, path string, query url.Values) (*listResponse, error) {
	query.Set("token", p.Config.Token)

	resp, err := p.Get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}

	var payload listResponse
	// Kodik reports bad tokens with a 500 and an error body, so the body
	// is inspected before the status.
	if decodeErr := provider.Decode(resp.Body, &payload); decodeErr == nil && payload.Error != "" {
		return nil, p.mapError(op, payload.Error)
	}
	if err := p.CheckStatus(op, resp); err != nil {
		return nil, err
	}
	if err := p.DecodeBody(op, resp, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *Provider) mapError(op, msg string) error {
	if isTokenError(msg) {
		return p.Fail(op, provider.ErrInvalidToken, msg, nil)
	}
	return p.Fail(op, provider.ErrUnexpectedResponse, msg, nil)
}
