package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/video-comb/app/content"
)

// Clean removes every post linked to a video of origin together with its
// link records, and returns the number of removed posts.
func (o *Orchestrator) Clean(ctx context.Context, origin string) (int, error) {
	if !o.running.TryLock() {
		return 0, ErrRunning
	}
	defer o.running.Unlock()
	defer o.reset()

	if err := o.progress.Open(OpClean, origin, 1); err != nil {
		return 0, err
	}
	o.progress.Step("remove posts")

	start := time.Now()
	removed, err := o.clean(ctx, origin)
	if err != nil {
		slog.Error("Cleanup failed", "source", origin, "removed", removed, "error", err)
		o.progress.Close(err)
		return removed, err
	}

	slog.Info("Cleanup completed", "source", origin, "removed", removed, "duration", time.Since(start))
	o.progress.Close(nil)
	return removed, nil
}

func (o *Orchestrator) clean(ctx context.Context, origin string) (int, error) {
	links, err := o.store.GetFeedPosts(ctx, content.FeedPostFilter{VideoOrigin: origin})
	if err != nil {
		return 0, fmt.Errorf("failed to list feed posts: %w", err)
	}

	total := int64(len(links))
	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return o.processed, err
		}

		err := o.store.RemovePost(ctx, link.PostID)
		switch {
		case err == nil:
			o.processed++
		case errors.Is(err, content.ErrNotFound):
			o.skipped++
		default:
			return o.processed, fmt.Errorf("failed to remove post %d: %w", link.PostID, err)
		}

		if err := o.store.RemoveFeedPost(ctx, link.ID); err != nil && !errors.Is(err, content.ErrNotFound) {
			return o.processed, fmt.Errorf("failed to remove feed post %d: %w", link.ID, err)
		}

		o.progress.Count(o.processed, o.skipped)
		o.progress.Tasks(int64(i+1), total)
	}
	return o.processed, nil
}
