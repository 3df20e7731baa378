package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/video"
)

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) AddPost(ctx context.Context, p content.Post) (int64, error) {
	now := time.Now().UnixMilli()
	var id int64

	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO posts (title, short_story, full_story, author, date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Title, p.ShortStory, p.FullStory, p.Author, millis(p.Date), now, now)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get post id: %w", err)
		}
		return writeDetails(ctx, tx, id, p)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostRepository) GetPost(ctx context.Context, id int64) (content.Post, error) {
	posts, err := r.GetPosts(ctx, content.PostFilter{IDs: []int64{id}})
	if err != nil {
		return content.Post{}, err
	}
	if len(posts) == 0 {
		return content.Post{}, content.ErrNotFound
	}
	return posts[0], nil
}

// UpdatePost replaces the stored row, extra fields and categories of p.ID.
func (r *PostRepository) UpdatePost(ctx context.Context, p content.Post) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET title = ?, short_story = ?, full_story = ?, author = ?, date = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.ShortStory, p.FullStory, p.Author, millis(p.Date), time.Now().UnixMilli(), p.ID)
		if err != nil {
			return fmt.Errorf("failed to update post: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		return writeDetails(ctx, tx, p.ID, p)
	})
}

func (r *PostRepository) RemovePost(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := clearDetails(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		return requireRow(res)
	})
}

// GetPosts returns matching posts ordered by id.
func (r *PostRepository) GetPosts(ctx context.Context, f content.PostFilter) ([]content.Post, error) {
	where, args := postWhere(f)
	query := `SELECT p.id, p.title, p.short_story, p.full_story, p.author, p.date, p.created_at, p.updated_at
		FROM posts p` + where + ` ORDER BY p.id` + pageClause(f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []content.Post{}
	for rows.Next() {
		var p content.Post
		var date, created, updated int64
		if err := rows.Scan(&p.ID, &p.Title, &p.ShortStory, &p.FullStory, &p.Author, &date, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Date, p.CreatedAt, p.UpdatedAt = fromMillis(date), fromMillis(created), fromMillis(updated)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	rows.Close()

	for i := range posts {
		if err := r.loadDetails(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *PostRepository) HasPosts(ctx context.Context, f content.PostFilter) (bool, error) {
	where, args := postWhere(f)
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts p`+where+`)`, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check posts: %w", err)
	}
	return exists, nil
}

func (r *PostRepository) CountPosts(ctx context.Context, f content.PostFilter) (int, error) {
	where, args := postWhere(f)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

func (r *PostRepository) loadDetails(ctx context.Context, p *content.Post) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM post_fields WHERE post_id = ?`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query post fields: %w", err)
	}
	defer rows.Close()

	p.Fields = map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("failed to scan post field: %w", err)
		}
		p.Fields[name] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating post fields: %w", err)
	}

	cats, err := r.db.QueryContext(ctx, `SELECT category_id FROM post_categories WHERE post_id = ? ORDER BY category_id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to query post categories: %w", err)
	}
	defer cats.Close()

	for cats.Next() {
		var id int64
		if err := cats.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan post category: %w", err)
		}
		p.Categories = append(p.Categories, id)
	}
	return cats.Err()
}

func postWhere(f content.PostFilter) (string, []any) {
	var conds []string
	var args []any

	if len(f.IDs) > 0 {
		conds = append(conds, "p.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.Title != "" {
		conds = append(conds, "p.title = ?")
		args = append(args, f.Title)
	}
	if f.Field != nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM post_fields pf WHERE pf.post_id = p.id AND pf.name = ? AND pf.value = ?)")
		args = append(args, f.Field.Name, f.Field.Value)
	}
	if len(f.AnyOf) > 0 {
		alts := make([]string, len(f.AnyOf))
		for i, m := range f.AnyOf {
			alts[i] = "(i.name = ? AND i.value = ?)"
			args = append(args, m.Name, m.Value)
		}
		conds = append(conds, "EXISTS (SELECT 1 FROM post_field_index i WHERE i.post_id = p.id AND ("+strings.Join(alts, " OR ")+"))")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// writeDetails replaces the extra fields, linked value index and
// categories of a post.
func writeDetails(ctx context.Context, tx *sql.Tx, id int64, p content.Post) error {
	if err := clearDetails(ctx, tx, id); err != nil {
		return err
	}

	linked, err := linkedFields(ctx, tx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value := p.Fields[name]
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_fields (post_id, name, value) VALUES (?, ?, ?)`, id, name, value); err != nil {
			return fmt.Errorf("failed to insert post field %s: %w", name, err)
		}
		if !linked[name] {
			continue
		}
		if err := indexValues(ctx, tx, id, name, value); err != nil {
			return err
		}
	}

	for _, cat := range p.Categories {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)`, id, cat); err != nil {
			return fmt.Errorf("failed to insert post category: %w", err)
		}
	}
	return nil
}

func clearDetails(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, table := range []string{"post_fields", "post_field_index", "post_categories"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func indexValues(ctx context.Context, tx *sql.Tx, id int64, name, value string) error {
	for _, v := range video.SplitList(value) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_field_index (post_id, name, value) VALUES (?, ?, ?)`, id, name, v); err != nil {
			return fmt.Errorf("failed to index post field %s: %w", name, err)
		}
	}
	return nil
}

func linkedFields(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM extra_fields WHERE linked = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked fields: %w", err)
	}
	defer rows.Close()

	linked := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan linked field: %w", err)
		}
		linked[name] = true
	}
	return linked, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return content.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func pageClause(limit, offset int) string {
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, max(offset, 0))
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	default:
		return ""
	}
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return content.ErrNotFound
	}
	return err
}
