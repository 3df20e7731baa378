package hdvb

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const (
	Origin      = "hdvb"
	DefaultHost = "https://apivb.info/api"
	minQuery    = 2
)

func Feeds() []feed.Feed {
	return []feed.Feed{
		{
			Name:        "videos",
			Label:       "HDVB videos",
			VideoOrigin: Origin,
			RequestPath: "/videos.json?token={token}",
			Size:        47 << 20,
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

func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		_, err := p.request(ctx, "access", "/videos.json", url.Values{"limit": {"1"}})
		return err
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	items, err := p.request(ctx, "search", "/videos.json", url.Values{"title": {title}})
	if err != nil {
		return nil, err
	}

	videos := p.NormalizeAll(items, p.FromProvider)
	if len(videos) == 0 {
		return nil, p.Fail("search", provider.ErrNotFound, title, nil)
	}
	return videos, nil
}

func (p *Provider) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if id == "" {
		return video.Video{}, p.Fail("lookup", provider.ErrEmptyQuery, "", nil)
	}

	return provider.DualLookup(ctx,
		func(ctx context.Context) (video.Video, error) {
			return p.lookup(ctx, "/movies.json", id)
		},
		func(ctx context.Context) (video.Video, error) {
			return p.lookup(ctx, "/serials.json", id)
		},
	)
}

func (p *Provider) lookup(ctx context.Context, path, id string) (video.Video, error) {
	items, err := p.request(ctx, "lookup", path, url.Values{"id": {id}})
	if err != nil {
		return video.Video{}, err
	}

	videos := p.NormalizeAll(items, p.FromProvider)
	if len(videos) == 0 {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, path+" "+id, nil)
	}
	return videos[0], nil
}

// request returns the top-level array every endpoint answers with.
// Failures come back as an object with an error message.
func (p *Provider) request(ctx context.Context, op, path string, query url.Values) ([]provider.RawMessage, error) {
	query.Set("token", p.Config.Token)

	resp, err := p.Get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}

	if body := bytes.TrimSpace(resp.Body); len(body) > 0 && body[0] == '{' {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if decodeErr := provider.Decode(body, &payload); decodeErr == nil {
			if msg := provider.FirstOf(payload.Error, payload.Message); msg != "" {
				return nil, p.mapError(op, msg)
			}
		}
	}
	if err := p.CheckStatus(op, resp); err != nil {
		return nil, err
	}

	var items []provider.RawMessage
	if err := p.DecodeBody(op, resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Provider) mapError(op, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "token"), strings.Contains(lower, "токен"):
		return p.Fail(op, provider.ErrInvalidToken, msg, nil)
	case strings.Contains(lower, "not found"):
		return p.Fail(op, provider.ErrNotFound, msg, nil)
	default:
		return p.Fail(op, provider.ErrUnexpectedResponse, msg, nil)
	}
}
