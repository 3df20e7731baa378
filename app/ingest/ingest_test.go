package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/feed"
	"github.com/lysyi3m/video-comb/app/progress"
	"github.com/lysyi3m/video-comb/app/provider"
	"github.com/lysyi3m/video-comb/app/transfer"
	"github.com/lysyi3m/video-comb/app/video"
)

const origin = "kodik"

type rawItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	KinopoiskID string `json:"kinopoisk_id,omitempty"`
	Type        string `json:"type,omitempty"`
}

// stubProvider serves feeds from memory in fixed chunks.
type stubProvider struct {
	feeds     map[string][]byte
	chunk     int
	err       error
	downloads atomic.Int32
}

func (s *stubProvider) Origin() string { return origin }
func (s *stubProvider) CheckAccess(context.Context, bool) (bool, error) {
	return true, nil
}
func (s *stubProvider) GetVideos(context.Context, string) ([]video.Video, error) {
	return nil, provider.ErrNotFound
}
func (s *stubProvider) GetVideo(context.Context, string) (video.Video, error) {
	return video.Video{}, provider.ErrNotFound
}

func (s *stubProvider) FromProvider(raw []byte) (video.Video, error) {
	var it rawItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return video.Video{}, provider.ErrUnexpectedResponse
	}
	v, err := video.New(it.ID, origin)
	if err != nil {
		return video.Video{}, provider.ErrInvalidInput
	}
	v.Title = it.Title
	v.Description = it.Description
	v.KinopoiskID = it.KinopoiskID
	v.Type = video.Type(it.Type)
	return v, nil
}

func (s *stubProvider) DownloadFeed(_ context.Context, f feed.Feed, dst string, onProgress feed.ProgressFunc) (string, error) {
	s.downloads.Add(1)
	if s.err != nil {
		return "", s.err
	}
	payload := s.feeds[f.Name]
	chunk := s.chunk
	if chunk <= 0 {
		chunk = len(payload)
	}
	total := int64(len(payload))
	for n := chunk; ; n += chunk {
		n = min(n, len(payload))
		if err := os.WriteFile(dst, payload[:n], 0o644); err != nil {
			return "", err
		}
		if err := onProgress(total, int64(n)); err != nil {
			return dst, err
		}
		if n == len(payload) {
			return dst, nil
		}
	}
}

type stubSource struct{ p *stubProvider }

func (s stubSource) Get(o string) (provider.Provider, error) {
	if o != origin {
		return nil, provider.ErrUnknownProvider
	}
	return s.p, nil
}

// countingStore records writes on top of the in-memory store.
type countingStore struct {
	*content.MemoryStore
	updates int
}

func (s *countingStore) UpdatePost(ctx context.Context, p content.Post) error {
	s.updates++
	return s.MemoryStore.UpdatePost(ctx, p)
}

type fixture struct {
	orch     *Orchestrator
	provider *stubProvider
	store    *countingStore
	transfer *transfer.Transfer
	catalog  *feed.Catalog
	events   []progress.Event
}

func testFeed(name string) feed.Feed {
	return feed.Feed{
		Name:        name,
		Label:       "Kodik " + name,
		VideoOrigin: origin,
		RequestPath: "/list/" + name + "?token={token}",
		Size:        1 << 20,
	}
}

func newFixture(t *testing.T, feeds map[string][]rawItem, filters ...feed.Filter) *fixture {
	t.Helper()

	p := &stubProvider{feeds: map[string][]byte{}}
	var descriptors []feed.Feed
	for _, name := range []string{"films", "serials"} {
		items, ok := feeds[name]
		if !ok {
			continue
		}
		p.feeds[name] = encode(t, items)
		f := testFeed(name)
		f.Filters = filters
		descriptors = append(descriptors, f)
	}

	catalog, err := feed.NewCatalog(descriptors...)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := transfer.New(t.TempDir(), stubSource{p})
	if err != nil {
		t.Fatal(err)
	}

	mapping := content.DefaultMapping()
	store := &countingStore{MemoryStore: content.NewMemoryStore(mapping.Schema()...)}

	fx := &fixture{provider: p, store: store, transfer: tr, catalog: catalog}
	fx.orch = New(Config{
		Catalog:   catalog,
		Providers: stubSource{p},
		Transfer:  tr,
		Store:     store,
		Mapping:   mapping,
		Progress:  progress.New(progress.SinkFunc(func(e progress.Event) { fx.events = append(fx.events, e) })),
		Now:       func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return fx
}

func encode(t *testing.T, items []rawItem) []byte {
	t.Helper()
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func (fx *fixture) last() progress.Event {
	return fx.events[len(fx.events)-1]
}

func (fx *fixture) assertNoFiles(t *testing.T) {
	t.Helper()
	for _, f := range fx.catalog.Feeds() {
		if fx.transfer.Exists(f) {
			t.Errorf("Expected feed file %s removed", fx.transfer.Path(f))
		}
	}
}

func films(n int) []rawItem {
	items := make([]rawItem, n)
	for i := range items {
		items[i] = rawItem{
			ID:          fmt.Sprintf("movie-%d", i+1),
			Title:       fmt.Sprintf("Фильм %d", i+1),
			Description: "Описание",
			KinopoiskID: fmt.Sprintf("%d", 1000+i),
			Type:        string(video.TypeMovie),
		}
	}
	return items
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string][]rawItem{"films": films(3), "serials": {{ID: "serial-1", Title: "Сериал"}}})

	n, err := fx.orch.Create(ctx, origin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Expected 4 created posts, got %d", n)
	}
	if got, _ := fx.store.CountFeedPosts(ctx, content.FeedPostFilter{VideoOrigin: origin}); got != 4 {
		t.Errorf("Expected 4 feed posts, got %d", got)
	}
	fx.assertNoFiles(t)

	last := fx.last()
	if last.Status != progress.StatusDone || last.Steps != 4 || last.Counters.Processed != 4 {
		t.Errorf("Unexpected terminal event: %+v", last)
	}

	n, err = fx.orch.Create(ctx, origin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("Expected no new posts on second run, got %d", n)
	}
	if skipped := fx.last().Counters.Skipped; skipped != 4 {
		t.Errorf("Expected 4 skipped, got %d", skipped)
	}
	if got, _ := fx.store.CountPosts(ctx, content.PostFilter{}); got != 4 {
		t.Errorf("Expected 4 posts overall, got %d", got)
	}
}

func TestCreatedPostsAreFoundAgain(t *testing.T) {
	ctx := context.Background()
	items := films(3)
	fx := newFixture(t, map[string][]rawItem{"films": items})

	if _, err := fx.orch.Create(ctx, origin, 0); err != nil {
		t.Fatal(err)
	}

	for _, it := range items {
		raw, _ := json.Marshal(it)
		v, err := fx.provider.FromProvider(raw)
		if err != nil {
			t.Fatal(err)
		}
		posts, err := fx.orch.matcher.FindPosts(ctx, v)
		if err != nil {
			t.Fatal(err)
		}
		if len(posts) != 1 || posts[0].Title != it.Title {
			t.Errorf("Expected post for %s, got %+v", it.ID, posts)
		}
		if len(posts) == 1 && len(posts[0].Categories) != 1 {
			t.Errorf("Expected type category on %s, got %v", it.ID, posts[0].Categories)
		}
	}
}

func TestCreateItemLimit(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string][]rawItem{"films": films(5), "serials": {{ID: "serial-1", Title: "Сериал"}}})

	n, err := fx.orch.Create(ctx, origin, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 processed, got %d", n)
	}
	last := fx.last()
	if last.Counters.Processed != 2 || last.Counters.Skipped != 0 || last.Status != progress.StatusDone {
		t.Errorf("Unexpected terminal event: %+v", last)
	}
	if d := fx.provider.downloads.Load(); d != 1 {
		t.Errorf("Expected later feeds skipped after the limit, got %d downloads", d)
	}
	fx.assertNoFiles(t)

	if fx.orch.itemsLimit != 0 || fx.orch.bytesLimit != 0 || fx.orch.processed != 0 || fx.orch.loaded != 0 {
		t.Error("Expected counters reset after the run")
	}
}

func TestCreateByteBudget(t *testing.T) {
	ctx := context.Background()
	items := films(5)
	for i := range items {
		items[i].Description = strings.Repeat("д", 6000)
	}
	fx := newFixture(t, map[string][]rawItem{"films": items, "serials": {{ID: "serial-1", Title: "Сериал"}}})
	fx.provider.chunk = 4096

	// Items are about 12 KB each, so the 30 KB budget of 3 items stops
	// the download inside the third one.
	n, err := fx.orch.Create(ctx, origin, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 complete items before the cut, got %d", n)
	}
	if d := fx.provider.downloads.Load(); d != 1 {
		t.Errorf("Expected the budget to halt later feeds, got %d downloads", d)
	}
	fx.assertNoFiles(t)
}

func TestCreateAppliesFeedFilters(t *testing.T) {
	ctx := context.Background()
	items := films(4)
	items[1].Title = "Фильм CAMRip"
	items[3].Type = string(video.TypeAnime)

	fx := newFixture(t, map[string][]rawItem{"films": items},
		feed.Filter{Field: "title", Excludes: []string{"camrip"}},
		feed.Filter{Field: "type", Includes: []string{"movie"}},
	)

	n, err := fx.orch.Create(ctx, origin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 created posts, got %d", n)
	}
	if c := fx.last().Counters; c.Processed != 2 || c.Skipped != 2 {
		t.Errorf("Expected filtered items counted as skipped, got %+v", c)
	}
	if has, _ := fx.store.HasFeedPosts(ctx, content.FeedPostFilter{VideoID: "movie-2"}); has {
		t.Error("Expected excluded video to have no post")
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	items := films(3)
	fx := newFixture(t, map[string][]rawItem{"films": items})

	if _, err := fx.orch.Create(ctx, origin, 0); err != nil {
		t.Fatal(err)
	}

	n, err := fx.orch.Update(ctx, origin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || fx.store.updates != 0 {
		t.Errorf("Expected no writes for unchanged items, got %d processed and %d updates", n, fx.store.updates)
	}

	items[1].Description = "Новое описание"
	items[2].Description = ""
	fx.provider.feeds["films"] = encode(t, items)

	n, err = fx.orch.Update(ctx, origin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || fx.store.updates != 1 {
		t.Errorf("Expected one updated item, got %d processed and %d updates", n, fx.store.updates)
	}

	posts, _ := fx.store.GetPosts(ctx, content.PostFilter{Title: items[1].Title})
	if len(posts) != 1 || posts[0].FullStory != "Новое описание" {
		t.Errorf("Expected refreshed description, got %+v", posts)
	}
	posts, _ = fx.store.GetPosts(ctx, content.PostFilter{Title: items[2].Title})
	if len(posts) != 1 || posts[0].FullStory != "Описание" {
		t.Errorf("Expected description kept when it disappears, got %+v", posts)
	}
	fx.assertNoFiles(t)
}

func TestClean(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string][]rawItem{"films": films(3)})

	if _, err := fx.orch.Create(ctx, origin, 0); err != nil {
		t.Fatal(err)
	}
	posts, _ := fx.store.GetPosts(ctx, content.PostFilter{})

	other, _ := fx.store.AddPost(ctx, content.Post{Title: "Чужой"})
	fx.store.AddFeedPost(ctx, content.FeedPost{PostID: other, VideoID: "1", VideoOrigin: "hdvb"})

	n, err := fx.orch.Clean(ctx, origin)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Expected 3 removed posts, got %d", n)
	}
	if got, _ := fx.store.CountFeedPosts(ctx, content.FeedPostFilter{VideoOrigin: origin}); got != 0 {
		t.Errorf("Expected link records removed, got %d", got)
	}
	for _, p := range posts {
		if _, err := fx.store.GetPost(ctx, p.ID); !errors.Is(err, content.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for post %d, got %v", p.ID, err)
		}
	}
	if _, err := fx.store.GetPost(ctx, other); err != nil {
		t.Errorf("Expected other sources untouched, got %v", err)
	}
	if last := fx.last(); last.Operation != OpClean || last.Counters.Processed != 3 {
		t.Errorf("Unexpected terminal event: %+v", last)
	}
}

func TestRunFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string][]rawItem{"films": films(2)})
	fx.provider.err = errors.Join(provider.ErrInvalidToken, errors.New("token rejected"))

	_, err := fx.orch.Create(ctx, origin, 0)
	if !errors.Is(err, provider.ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got %v", err)
	}
	last := fx.last()
	if last.Status != progress.StatusFailed || !strings.Contains(last.Error, "token rejected") {
		t.Errorf("Unexpected terminal event: %+v", last)
	}
	fx.assertNoFiles(t)

	fx.provider.err = nil
	if n, err := fx.orch.Create(ctx, origin, 0); err != nil || n != 2 {
		t.Errorf("Expected orchestrator reusable after failure, got %d %v", n, err)
	}
}

func TestMalformedFeed(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, map[string][]rawItem{"films": films(1)})
	fx.provider.feeds["films"] = []byte(`[{"id":"movie-1","title":"Фильм"}, {"id":`)

	_, err := fx.orch.Create(ctx, origin, 0)
	if err == nil {
		t.Fatal("Expected parse error")
	}
	fx.assertNoFiles(t)
}

func TestMissingExtraFields(t *testing.T) {
	fx := newFixture(t, map[string][]rawItem{"films": films(1)})
	fx.store.MemoryStore = content.NewMemoryStore()
	fx.orch.store = fx.store

	_, err := fx.orch.Create(context.Background(), origin, 0)
	if !errors.Is(err, ErrMissingFields) {
		t.Errorf("Expected ErrMissingFields, got %v", err)
	}
	if fx.provider.downloads.Load() != 0 {
		t.Error("Expected no download before the schema check passes")
	}
}

func TestUnknownSource(t *testing.T) {
	fx := newFixture(t, map[string][]rawItem{"films": films(1)})
	if _, err := fx.orch.Create(context.Background(), "nope", 0); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if len(fx.events) == 0 {
		t.Fatal("Expected progress events for the failed run")
	}
	if last := fx.last(); last.Status != progress.StatusFailed || last.Source != "nope" {
		t.Errorf("Expected terminal failure event, got %+v", last)
	}
	if fx.orch.Progress().IsOpen() {
		t.Error("Expected progress channel closed after the failure")
	}
}
