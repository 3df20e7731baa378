package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/video-comb/app/video"
)

var ErrUnknownProvider = errors.New("unknown provider")

// Registry holds the configured adapters keyed by origin, in registration
// order.
type Registry struct {
	providers []Provider
	byOrigin  map[string]Provider
}

func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byOrigin: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, ok := r.byOrigin[p.Origin()]; ok {
			return nil, fmt.Errorf("duplicate provider %s", p.Origin())
		}
		r.byOrigin[p.Origin()] = p
		r.providers = append(r.providers, p)
	}
	return r, nil
}

func (r *Registry) Get(origin string) (Provider, error) {
	p, ok := r.byOrigin[origin]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, origin)
	}
	return p, nil
}

func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

func (r *Registry) Origins() []string {
	out := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Origin())
	}
	return out
}

// Search queries every provider concurrently. A provider that finds
// nothing, or whose minimum query length is not met, contributes zero
// results. Any other failure fails the search. Results keep registry order.
func (r *Registry) Search(ctx context.Context, title string) ([]video.Video, error) {
	if video.Clean(title) == "" {
		return nil, ErrEmptyQuery
	}

	results := make([][]video.Video, len(r.providers))
	tooShort := make([]bool, len(r.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.providers {
		g.Go(func() error {
			videos, err := p.GetVideos(gctx, title)
			switch {
			case errors.Is(err, ErrNotFound):
				slog.Debug("Provider found nothing", "provider", p.Origin(), "title", title)
				return nil
			case errors.Is(err, ErrQueryTooShort):
				tooShort[i] = true
				return nil
			case errors.Is(err, errors.ErrUnsupported):
				return nil
			case err != nil:
				return err
			}
			results[i] = videos
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []video.Video
	allTooShort := len(r.providers) > 0
	for i := range results {
		out = append(out, results[i]...)
		allTooShort = allTooShort && tooShort[i]
	}

	if allTooShort {
		return nil, ErrQueryTooShort
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
