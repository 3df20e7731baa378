package api

import (
	"context"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/tasks"
	"github.com/lysyi3m/video-comb/app/video"
)

// CounterInterface is the part of the store the health endpoint reads.
type CounterInterface interface {
	CountPosts(ctx context.Context, f content.PostFilter) (int, error)
	CountFeedPosts(ctx context.Context, f content.FeedPostFilter) (int, error)
}

// SearcherInterface resolves videos across the configured providers.
type SearcherInterface interface {
	Search(ctx context.Context, title string) ([]video.Video, error)
	Get(origin string) (provider.Provider, error)
	Origins() []string
}

var (
	_ CounterInterface  = (content.Store)(nil)
	_ SearcherInterface = (*provider.Registry)(nil)
)

type Handler struct {
	counter      CounterInterface
	searcher     SearcherInterface
	catalog      *feed.Catalog
	scheduler    tasks.TaskSchedulerInterface
	defaultLimit int
}
