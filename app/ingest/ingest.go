// Package ingest drives feed synchronization for one source: every enabled
// feed is downloaded, streamed item by item and reconciled with the content
// store, with live progress and optional item budgets.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/media"
	"github.com/lysyi3m/video-comb/app/progress"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/stream"
	"github.com/lysyi3m/video-comb/app/transfer"
	"github.com/lysyi3m/video-comb/app/video"
)

// BytesPerItem approximates the serialized size of one feed entry. With an
// item limit the download is capped at limit × BytesPerItem bytes.
const BytesPerItem = 10_000

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpClean  = "clean"
)

var (
	ErrRunning       = errors.New("synchronization already running")
	ErrMissingFields = errors.New("extra fields missing from store")
)

type Config struct {
	Catalog   *feed.Catalog
	Providers transfer.ProviderSource
	Transfer  *transfer.Transfer
	Store     content.Store
	Mapping   content.Mapping
	// Progress receives run events; nil discards them.
	Progress *progress.Channel
	// Enricher stores media locally on create; nil keeps remote URLs.
	Enricher *media.Enricher
	Now      func() time.Time
}

// Orchestrator runs one synchronization at a time. Separate instances may
// run concurrently as long as they handle different sources.
type Orchestrator struct {
	catalog   *feed.Catalog
	providers transfer.ProviderSource
	transfer  *transfer.Transfer
	store     content.Store
	matcher   *content.Matcher
	mapping   content.Mapping
	progress  *progress.Channel
	enricher  *media.Enricher
	now       func() time.Time

	running sync.Mutex

	// per run state, zeroed by reset
	itemsLimit int
	bytesLimit int64
	processed  int
	skipped    int
	loaded     int64
}

func New(cfg Config) *Orchestrator {
	if cfg.Progress == nil {
		cfg.Progress = progress.New(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		catalog:   cfg.Catalog,
		providers: cfg.Providers,
		transfer:  cfg.Transfer,
		store:     cfg.Store,
		matcher:   content.NewMatcher(cfg.Store, cfg.Mapping),
		mapping:   cfg.Mapping,
		progress:  cfg.Progress,
		enricher:  cfg.Enricher,
		now:       cfg.Now,
	}
}

func (o *Orchestrator) Progress() *progress.Channel {
	return o.progress
}

// itemFunc handles one normalized video.
type itemFunc func(ctx context.Context, p provider.Provider, v video.Video) error

// Create adds a post for every feed video not yet represented in the
// store. limit caps the number of created posts; zero means no cap.
func (o *Orchestrator) Create(ctx context.Context, origin string, limit int) (int, error) {
	return o.run(ctx, OpCreate, origin, limit, o.create)
}

// Update refreshes the posts correlated with every feed video. limit caps
// the number of updated videos; zero means no cap.
func (o *Orchestrator) Update(ctx context.Context, origin string, limit int) (int, error) {
	return o.run(ctx, OpUpdate, origin, limit, o.update)
}

func (o *Orchestrator) run(ctx context.Context, op, origin string, limit int, handle itemFunc) (int, error) {
	if !o.running.TryLock() {
		return 0, ErrRunning
	}
	defer o.running.Unlock()
	defer o.reset()

	feeds := o.catalog.Enabled(origin)
	if err := o.progress.Open(op, origin, 2*len(feeds)); err != nil {
		return 0, err
	}

	p, err := o.providers.Get(origin)
	if err != nil {
		o.progress.Close(err)
		return 0, err
	}

	if err := o.checkFields(ctx); err != nil {
		o.progress.Close(err)
		return 0, err
	}

	start := time.Now()
	o.itemsLimit = max(limit, 0)
	o.bytesLimit = int64(o.itemsLimit) * BytesPerItem

	for _, f := range feeds {
		stopped, err := o.runFeed(ctx, p, f, handle)
		if err != nil {
			slog.Error("Synchronization failed", "operation", op, "source", origin, "feed", f.Key(), "error", err)
			o.progress.Close(err)
			return o.processed, err
		}
		if stopped {
			slog.Debug("Budget reached", "operation", op, "source", origin, "feed", f.Key(),
				"processed", o.processed, "bytes", o.loaded)
			break
		}
	}

	processed := o.processed
	slog.Info("Synchronization completed",
		"operation", op,
		"source", origin,
		"feeds", len(feeds),
		"processed", processed,
		"skipped", o.skipped,
		"duration", time.Since(start))
	o.progress.Close(nil)
	return processed, nil
}

// runFeed transfers and parses one feed. The local file is removed however
// the feed ends. stopped reports a reached budget.
func (o *Orchestrator) runFeed(ctx context.Context, p provider.Provider, f feed.Feed, handle itemFunc) (stopped bool, err error) {
	o.progress.Step("download " + f.Label)

	base := o.loaded
	res, err := o.transfer.Download(ctx, f, func(total, loaded int64) error {
		o.loaded = base + loaded
		o.progress.Tasks(loaded, total)
		if o.bytesLimit > 0 && o.loaded >= o.bytesLimit {
			return feed.ErrStop
		}
		return nil
	})
	if err != nil {
		if o.transfer.Exists(f) {
			err = errors.Join(err, o.transfer.Remove(f))
		}
		return false, err
	}
	defer func() {
		if rmErr := o.transfer.Remove(f); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}()

	o.progress.Step("parse " + f.Label)

	opts := stream.Options{Pointer: f.JSONPointer, Silent: true, Truncated: res.Stopped}
	parsed, err := stream.Parse(ctx, res.Path,
		opts,
		func(raw []byte) error {
			return o.item(ctx, p, f, raw, handle)
		},
		func(size, consumed int64) error {
			o.progress.Tasks(consumed, size)
			return nil
		})
	if err != nil {
		return false, fmt.Errorf("failed to parse feed %s: %w", f.Key(), err)
	}

	slog.Debug("Feed parsed", "feed", f.Key(), "items", parsed.Items, "bytes", parsed.Bytes, "stopped", parsed.Stopped)
	return res.Stopped || parsed.Stopped, nil
}

func (o *Orchestrator) item(ctx context.Context, p provider.Provider, f feed.Feed, raw []byte, handle itemFunc) error {
	v, err := p.FromProvider(raw)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidInput) {
			slog.Debug("Skipping feed item", "source", p.Origin(), "error", err)
			return nil
		}
		return err
	}

	if drop, reason := f.Filtered(v); drop {
		slog.Debug("Feed item filtered", "feed", f.Key(), "video", v.Key(), "reason", reason)
		o.skipped++
	} else if err := handle(ctx, p, v); err != nil {
		return err
	}
	o.progress.Count(o.processed, o.skipped)

	if o.itemsLimit > 0 && o.processed >= o.itemsLimit {
		return feed.ErrStop
	}
	return nil
}

func (o *Orchestrator) create(ctx context.Context, p provider.Provider, v video.Video) error {
	found, err := o.matcher.IsRepresented(ctx, v)
	if err != nil {
		return err
	}
	if found {
		o.skipped++
		return nil
	}

	images, _ := p.(provider.ImageProvider)
	v = o.enricher.Enrich(ctx, v, images)

	now := o.now()
	post := o.mapping.BuildPost(v, now)
	if post.Categories, err = o.categories(ctx, v); err != nil {
		return err
	}

	id, err := o.store.AddPost(ctx, post)
	if err != nil {
		return fmt.Errorf("failed to add post for %s: %w", v.Key(), err)
	}
	if _, err := o.store.AddFeedPost(ctx, content.FeedPost{
		PostID:      id,
		VideoID:     v.ID,
		VideoOrigin: v.Origin,
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("failed to link post %d to %s: %w", id, v.Key(), err)
	}

	o.processed++
	return nil
}

func (o *Orchestrator) update(ctx context.Context, _ provider.Provider, v video.Video) error {
	posts, err := o.matcher.FindPosts(ctx, v)
	if err != nil {
		return err
	}

	now := o.now()
	mutated := false
	for _, existing := range posts {
		changed, updated := o.mapping.Diff(existing, v, now)
		if !changed {
			continue
		}
		if err := o.store.UpdatePost(ctx, updated); err != nil {
			return fmt.Errorf("failed to update post %d: %w", existing.ID, err)
		}
		mutated = true
	}

	if mutated {
		o.processed++
	} else {
		o.skipped++
	}
	return nil
}

func (o *Orchestrator) categories(ctx context.Context, v video.Video) ([]int64, error) {
	var ids []int64
	for _, name := range o.mapping.CategoryNames(v) {
		id, err := o.store.EnsureCategory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure category %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// checkFields verifies that the store defines every extra field the
// mapping writes.
func (o *Orchestrator) checkFields(ctx context.Context) error {
	fields, err := o.store.ExtraFields(ctx)
	if err != nil {
		return fmt.Errorf("failed to load extra fields: %w", err)
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}

	var missing []error
	for _, f := range o.mapping.Schema() {
		if !known[f.Name] {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingFields, f.Name))
		}
	}
	return errors.Join(missing...)
}

func (o *Orchestrator) reset() {
	o.itemsLimit = 0
	o.bytesLimit = 0
	o.processed = 0
	o.skipped = 0
	o.loaded = 0
}
