package database

import "github.com/lysyi3m/video-comb/app/content"

// Store combines the repositories into a content.Store.
type Store struct {
	*PostRepository
	*FeedPostRepository
	*FieldRepository
}

var _ content.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{
		PostRepository:     NewPostRepository(db),
		FeedPostRepository: NewFeedPostRepository(db),
		FieldRepository:    NewFieldRepository(db),
	}
}
