package alloha

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
	Origin      = "alloha"
	DefaultHost = "https://api.alloha.tv"
	minQuery    = 3
)

func Feeds() []feed.Feed {
	return []feed.Feed{
		{
			Name:        "all",
			Label:       "Alloha catalog",
			VideoOrigin: Origin,
			RequestPath: "/?token={token}&list=all",
			JSONPointer: "/data",
			Size:        96 << 20,
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

// envelope is shared by every endpoint. data holds an object for single
// lookups and an array for searches.
type envelope struct {
	Status    string              `json:"status"`
	ErrorInfo string              `json:"error_info"`
	Data      provider.RawMessage `json:"data"`
}

func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		_, err := p.request(ctx, "access", url.Values{"list": {"all"}, "limit": {"1"}})
		return err
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	items, err := p.request(ctx, "search", url.Values{"name": {title}})
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

	items, err := p.request(ctx, "lookup", url.Values{"id": {id}})
	if err != nil {
		return video.Video{}, err
	}

	videos := p.NormalizeAll(items, p.FromProvider)
	if len(videos) == 0 {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, id, nil)
	}
	return videos[0], nil
}

func (p *Provider) request(ctx context.Context, op string, query url.Values) ([]provider.RawMessage, error) {
	query.Set("token", p.Config.Token)

	resp, err := p.Get(ctx, op, "/", query)
	if err != nil {
		return nil, err
	}

	var env envelope
	if decodeErr := provider.Decode(resp.Body, &env); decodeErr == nil && env.Status == "error" {
		return nil, p.mapError(op, env.ErrorInfo)
	}
	if err := p.CheckStatus(op, resp); err != nil {
		return nil, err
	}
	if err := p.DecodeBody(op, resp, &env); err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, nil
	case data[0] == '[':
		var items []provider.RawMessage
		if err := provider.Decode(data, &items); err != nil {
			return nil, p.Fail(op, provider.ErrUnexpectedResponse, "malformed data", err)
		}
		return items, nil
	default:
		return []provider.RawMessage{data}, nil
	}
}

func (p *Provider) mapError(op, info string) error {
	lower := strings.ToLower(info)
	switch {
	case strings.Contains(lower, "token"), strings.Contains(lower, "токен"):
		return p.Fail(op, provider.ErrInvalidToken, info, nil)
	case strings.Contains(lower, "not found"), strings.Contains(lower, "не найден"):
		return p.Fail(op, provider.ErrNotFound, info, nil)
	default:
		return p.Fail(op, provider.ErrUnexpectedResponse, info, nil)
	}
}
