package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/video-comb/app/content"
)

type FeedPostRepository struct {
	db *DB
}

func NewFeedPostRepository(db *DB) *FeedPostRepository {
	return &FeedPostRepository{db: db}
}

func (r *FeedPostRepository) AddFeedPost(ctx context.Context, fp content.FeedPost) (int64, error) {
	created := millis(fp.CreatedAt)
	if created == 0 {
		created = time.Now().UnixMilli()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_posts (post_id, video_id, video_origin, created_at)
		VALUES (?, ?, ?, ?)`,
		fp.PostID, fp.VideoID, fp.VideoOrigin, created)
	if err != nil {
		return 0, fmt.Errorf("failed to insert feed post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get feed post id: %w", err)
	}
	return id, nil
}

func (r *FeedPostRepository) GetFeedPost(ctx context.Context, id int64) (content.FeedPost, error) {
	var fp content.FeedPost
	var created int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, post_id, video_id, video_origin, created_at
		FROM feed_posts WHERE id = ?`, id).
		Scan(&fp.ID, &fp.PostID, &fp.VideoID, &fp.VideoOrigin, &created)
	if err != nil {
		return content.FeedPost{}, notFound(err)
	}
	fp.CreatedAt = fromMillis(created)
	return fp, nil
}

func (r *FeedPostRepository) UpdateFeedPost(ctx context.Context, fp content.FeedPost) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feed_posts SET post_id = ?, video_id = ?, video_origin = ?
		WHERE id = ?`,
		fp.PostID, fp.VideoID, fp.VideoOrigin, fp.ID)
	if err != nil {
		return fmt.Errorf("failed to update feed post: %w", err)
	}
	return requireRow(res)
}

func (r *FeedPostRepository) RemoveFeedPost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feed_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed post: %w", err)
	}
	return requireRow(res)
}

func (r *FeedPostRepository) GetFeedPosts(ctx context.Context, f content.FeedPostFilter) ([]content.FeedPost, error) {
	where, args := feedPostWhere(f)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, post_id, video_id, video_origin, created_at
		FROM feed_posts`+where+` ORDER BY id`+pageClause(f.Limit, f.Offset), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed posts: %w", err)
	}
	defer rows.Close()

	out := []content.FeedPost{}
	for rows.Next() {
		var fp content.FeedPost
		var created int64
		if err := rows.Scan(&fp.ID, &fp.PostID, &fp.VideoID, &fp.VideoOrigin, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feed post: %w", err)
		}
		fp.CreatedAt = fromMillis(created)
		out = append(out, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed posts: %w", err)
	}
	return out, nil
}

func (r *FeedPostRepository) HasFeedPosts(ctx context.Context, f content.FeedPostFilter) (bool, error) {
	where, args := feedPostWhere(f)
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM feed_posts`+where+`)`, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check feed posts: %w", err)
	}
	return exists, nil
}

func (r *FeedPostRepository) CountFeedPosts(ctx context.Context, f content.FeedPostFilter) (int, error) {
	where, args := feedPostWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_posts`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feed posts: %w", err)
	}
	return n, nil
}

func feedPostWhere(f content.FeedPostFilter) (string, []any) {
	var conds []string
	var args []any
	if f.PostID != 0 {
		conds = append(conds, "post_id = ?")
		args = append(args, f.PostID)
	}
	if f.VideoID != "" {
		conds = append(conds, "video_id = ?")
		args = append(args, f.VideoID)
	}
	if f.VideoOrigin != "" {
		conds = append(conds, "video_origin = ?")
		args = append(args, f.VideoOrigin)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
