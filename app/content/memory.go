package content

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/video-comb/app/video"
)

// MemoryStore is a Store kept in process memory. It backs dry runs and
// tests.
type MemoryStore struct {
	mu         sync.RWMutex
	posts      map[int64]Post
	feedPosts  map[int64]FeedPost
	categories map[string]int64
	fields     []ExtraField
	nextID     int64
}

func NewMemoryStore(fields ...ExtraField) *MemoryStore {
	return &MemoryStore{
		posts:      map[int64]Post{},
		feedPosts:  map[int64]FeedPost{},
		categories: map[string]int64{},
		fields:     fields,
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) AddPost(_ context.Context, p Post) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.Clone()
	p.ID = s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.posts[p.ID] = p
	return p.ID, nil
}

func (s *MemoryStore) GetPost(_ context.Context, id int64) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) UpdatePost(_ context.Context, p Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	p = p.Clone()
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now()
	s.posts[p.ID] = p
	return nil
}

func (s *MemoryStore) RemovePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryStore) GetPosts(_ context.Context, f PostFilter) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.posts))
	for id, p := range s.posts {
		if s.matches(p, f) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	ids = page(ids, f.Offset, f.Limit)

	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, s.posts[id].Clone())
	}
	return posts, nil
}

func (s *MemoryStore) HasPosts(ctx context.Context, f PostFilter) (bool, error) {
	n, err := s.CountPosts(ctx, f)
	return n > 0, err
}

func (s *MemoryStore) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	posts, err := s.GetPosts(ctx, f)
	return len(posts), err
}

func (s *MemoryStore) matches(p Post, f PostFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if f.Title != "" && p.Title != f.Title {
		return false
	}
	if f.Field != nil && p.Fields[f.Field.Name] != f.Field.Value {
		return false
	}
	if len(f.AnyOf) > 0 {
		return slices.ContainsFunc(f.AnyOf, func(m FieldMatch) bool {
			if !s.linked(m.Name) {
				return false
			}
			return slices.Contains(video.SplitList(p.Fields[m.Name]), m.Value)
		})
	}
	return true
}

func (s *MemoryStore) linked(name string) bool {
	return slices.ContainsFunc(s.fields, func(f ExtraField) bool { return f.Name == name && f.Linked })
}

func (s *MemoryStore) AddFeedPost(_ context.Context, fp FeedPost) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp.ID = s.id()
	fp.CreatedAt = time.Now()
	s.feedPosts[fp.ID] = fp
	return fp.ID, nil
}

func (s *MemoryStore) GetFeedPost(_ context.Context, id int64) (FeedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.feedPosts[id]
	if !ok {
		return FeedPost{}, ErrNotFound
	}
	return fp, nil
}

func (s *MemoryStore) UpdateFeedPost(_ context.Context, fp FeedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.feedPosts[fp.ID]
	if !ok {
		return ErrNotFound
	}
	fp.CreatedAt = old.CreatedAt
	s.feedPosts[fp.ID] = fp
	return nil
}

func (s *MemoryStore) RemoveFeedPost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.feedPosts[id]; !ok {
		return ErrNotFound
	}
	delete(s.feedPosts, id)
	return nil
}

func (s *MemoryStore) GetFeedPosts(_ context.Context, f FeedPostFilter) ([]FeedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.feedPosts))
	for id, fp := range s.feedPosts {
		if f.PostID != 0 && fp.PostID != f.PostID ||
			f.VideoID != "" && fp.VideoID != f.VideoID ||
			f.VideoOrigin != "" && fp.VideoOrigin != f.VideoOrigin {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = page(ids, f.Offset, f.Limit)

	out := make([]FeedPost, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.feedPosts[id])
	}
	return out, nil
}

func (s *MemoryStore) HasFeedPosts(ctx context.Context, f FeedPostFilter) (bool, error) {
	n, err := s.CountFeedPosts(ctx, f)
	return n > 0, err
}

func (s *MemoryStore) CountFeedPosts(ctx context.Context, f FeedPostFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	fps, err := s.GetFeedPosts(ctx, f)
	return len(fps), err
}

func (s *MemoryStore) EnsureCategory(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(video.Clean(name))
	if id, ok := s.categories[key]; ok {
		return id, nil
	}
	id := s.id()
	s.categories[key] = id
	return id, nil
}

func (s *MemoryStore) ExtraFields(context.Context) ([]ExtraField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fields), nil
}

func page(ids []int64, offset, limit int) []int64 {
	if offset > 0 {
		if offset >= len(ids) {
			return nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}
