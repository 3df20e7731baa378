// Package rutor adapts a torrent tracker that has no JSON API: searches
// go through its RSS endpoint and single lookups scrape the torrent page.
package rutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/fetch"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/video"
)

const (
	Origin      = "rutor"
	DefaultHost = "http://rutor.info"
	minQuery    = 3
)

// Feeds is empty: the tracker publishes no bulk export.
func Feeds() []feed.Feed {
	return nil
}

type Provider struct {
	*provider.Base
	parser *gofeed.Parser
}

func New(cfg provider.Config, client fetch.Client, cache provider.AccessCache) *Provider {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Provider{
		Base:   provider.NewBase(Origin, cfg, client, cache, minQuery),
		parser: gofeed.NewParser(),
	}
}

// CheckAccess only confirms the tracker answers; it takes no token.
func (p *Provider) CheckAccess(ctx context.Context, useCache bool) (bool, error) {
	return p.VerifyAccess(ctx, useCache, func(ctx context.Context) error {
		resp, err := p.Get(ctx, "access", "/", nil)
		if err != nil {
			return err
		}
		return p.CheckStatus("access", resp)
	})
}

func (p *Provider) GetVideos(ctx context.Context, title string) ([]video.Video, error) {
	title, err := p.ValidateQuery(title)
	if err != nil {
		return nil, err
	}

	resp, err := p.Get(ctx, "search", "/search/rss", url.Values{"q": {title}})
	if err != nil {
		return nil, err
	}
	if err := p.CheckStatus("search", resp); err != nil {
		return nil, err
	}

	parsed, err := p.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, p.Fail("search", provider.ErrUnexpectedResponse, "malformed rss", err)
	}

	videos := make([]video.Video, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		v, err := p.fromEntry(entryFromRSS(item))
		if err != nil {
			continue
		}
		videos = append(videos, v)
	}
	if len(videos) == 0 {
		return nil, p.Fail("search", provider.ErrNotFound, title, nil)
	}
	return videos, nil
}

func (p *Provider) GetVideo(ctx context.Context, id string) (video.Video, error) {
	if id == "" {
		return video.Video{}, p.Fail("lookup", provider.ErrEmptyQuery, "", nil)
	}

	resp, err := p.Get(ctx, "lookup", "/torrent/"+url.PathEscape(id), nil)
	if err != nil {
		return video.Video{}, err
	}
	if err := p.CheckStatus("lookup", resp); err != nil {
		return video.Video{}, err
	}

	v, err := p.fromPage(resp.Body)
	if errors.Is(err, provider.ErrInvalidInput) {
		return video.Video{}, p.Fail("lookup", provider.ErrNotFound, id, nil)
	}
	return v, err
}

func (p *Provider) DownloadFeed(ctx context.Context, f feed.Feed, dst string, onProgress feed.ProgressFunc) (string, error) {
	return "", p.Fail("download", errors.ErrUnsupported, fmt.Sprintf("no bulk export for %s", f.Key()), nil)
}

// FromProvider accepts either a stored search entry (JSON) or a torrent
// page (HTML).
func (p *Provider) FromProvider(raw []byte) (video.Video, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var e entry
		if err := provider.Decode(trimmed, &e); err != nil {
			return video.Video{}, p.Fail("normalize", provider.ErrUnexpectedResponse, "malformed item", err)
		}
		return p.fromEntry(e)
	}
	return p.fromPage(raw)
}

// entry is one search hit.
type entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Magnet     string    `json:"magnet"`
	TorrentURL string    `json:"torrent_url"`
	Size       int64     `json:"size"`
	Published  time.Time `json:"published"`
}

func entryFromRSS(item *gofeed.Item) entry {
	e := entry{
		ID:    torrentID(item.Link),
		Title: item.Title,
		Link:  item.Link,
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.URL, "magnet:") {
			e.Magnet = enc.URL
			continue
		}
		e.TorrentURL = enc.URL
		e.Size = int64(provider.ParseInt(enc.Length))
	}
	if e.ID == "" {
		e.ID = torrentID(e.TorrentURL)
	}
	if item.PublishedParsed != nil {
		e.Published = *item.PublishedParsed
	}
	return e
}

func (p *Provider) fromEntry(e entry) (video.Video, error) {
	v, err := video.New(strings.TrimSpace(e.ID), Origin)
	if err != nil {
		return video.Video{}, p.InvalidInput("entry without torrent id")
	}

	applyTitle(&v, e.Title)
	v.Torrent = video.Torrent{
		InfoHash: infoHash(e.Magnet),
		Magnet:   e.Magnet,
		FileURL:  e.TorrentURL,
		Size:     e.Size,
	}
	v.CreatedAt = e.Published
	return v, nil
}
