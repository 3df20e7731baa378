// Package content describes the persisted side of synchronization: posts,
// their link records back to provider videos, and the rules deciding
// whether an incoming video is already represented.
package content

import (
	"context"
	"errors"
	"maps"
	"time"
)

var ErrNotFound = errors.New("not found")

type Post struct {
	ID         int64
	Title      string
	ShortStory string
	FullStory  string
	Author     string
	Date       time.Time
	Categories []int64
	// Fields holds extra field values by field name.
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy that shares no maps or slices with p.
func (p Post) Clone() Post {
	p.Fields = maps.Clone(p.Fields)
	p.Categories = append([]int64(nil), p.Categories...)
	return p
}

// FeedPost links a post to the provider video it was created from.
type FeedPost struct {
	ID          int64
	PostID      int64
	VideoID     string
	VideoOrigin string
	CreatedAt   time.Time
}

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldURL    FieldType = "url"
	FieldList   FieldType = "list"
)

// ExtraField is a named metadata slot on posts. Linked fields have their
// comma separated values indexed for lookups.
type ExtraField struct {
	Name   string
	Label  string
	Type   FieldType
	Linked bool
}

type Category struct {
	ID   int64
	Name string
}

// FieldMatch compares one extra field against one value.
type FieldMatch struct {
	Name  string
	Value string
}

// PostFilter selects posts. Set criteria are combined with AND; AnyOf
// matches when any of its entries equals an indexed linked value. The
// zero filter selects every post.
type PostFilter struct {
	IDs    []int64
	Title  string
	Field  *FieldMatch
	AnyOf  []FieldMatch
	Limit  int
	Offset int
}

type FeedPostFilter struct {
	PostID      int64
	VideoID     string
	VideoOrigin string
	Limit       int
	Offset      int
}

// Store is the persistence contract. Single-row reads, updates and
// removals return ErrNotFound for missing rows; plural reads return an
// empty slice.
type Store interface {
	AddPost(ctx context.Context, p Post) (int64, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	UpdatePost(ctx context.Context, p Post) error
	RemovePost(ctx context.Context, id int64) error
	GetPosts(ctx context.Context, f PostFilter) ([]Post, error)
	HasPosts(ctx context.Context, f PostFilter) (bool, error)
	CountPosts(ctx context.Context, f PostFilter) (int, error)

	AddFeedPost(ctx context.Context, fp FeedPost) (int64, error)
	GetFeedPost(ctx context.Context, id int64) (FeedPost, error)
	UpdateFeedPost(ctx context.Context, fp FeedPost) error
	RemoveFeedPost(ctx context.Context, id int64) error
	GetFeedPosts(ctx context.Context, f FeedPostFilter) ([]FeedPost, error)
	HasFeedPosts(ctx context.Context, f FeedPostFilter) (bool, error)
	CountFeedPosts(ctx context.Context, f FeedPostFilter) (int, error)

	// EnsureCategory returns the id of the named category, creating it
	// when missing.
	EnsureCategory(ctx context.Context, name string) (int64, error)
	ExtraFields(ctx context.Context) ([]ExtraField, error)
}
