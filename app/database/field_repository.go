package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/video"
)

type FieldRepository struct {
	db *DB
}

func NewFieldRepository(db *DB) *FieldRepository {
	return &FieldRepository{db: db}
}

func (r *FieldRepository) ExtraFields(ctx context.Context) ([]content.ExtraField, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, label, type, linked FROM extra_fields ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query extra fields: %w", err)
	}
	defer rows.Close()

	fields := []content.ExtraField{}
	for rows.Next() {
		var f content.ExtraField
		var typ string
		if err := rows.Scan(&f.Name, &f.Label, &typ, &f.Linked); err != nil {
			return nil, fmt.Errorf("failed to scan extra field: %w", err)
		}
		f.Type = content.FieldType(typ)
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extra fields: %w", err)
	}
	return fields, nil
}

// SaveExtraFields upserts the field schema. Fields whose linked flag
// changes get their value index rebuilt from the stored values.
func (r *FieldRepository) SaveExtraFields(ctx context.Context, fields []content.ExtraField) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range fields {
			var wasLinked sql.NullBool
			err := tx.QueryRowContext(ctx, `SELECT linked FROM extra_fields WHERE name = ?`, f.Name).Scan(&wasLinked)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to read extra field %s: %w", f.Name, err)
			}

			typ := f.Type
			if typ == "" {
				typ = content.FieldText
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO extra_fields (name, label, type, linked) VALUES (?, ?, ?, ?)
				ON CONFLICT (name) DO UPDATE SET label = excluded.label, type = excluded.type, linked = excluded.linked`,
				f.Name, f.Label, string(typ), f.Linked)
			if err != nil {
				return fmt.Errorf("failed to save extra field %s: %w", f.Name, err)
			}

			if wasLinked.Bool != f.Linked {
				if err := reindex(ctx, tx, f.Name, f.Linked); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func reindex(ctx context.Context, tx *sql.Tx, name string, linked bool) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_field_index WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to clear index for %s: %w", name, err)
	}
	if !linked {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT post_id, value FROM post_fields WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to query values of %s: %w", name, err)
	}
	type entry struct {
		id    int64
		value string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.value); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan value of %s: %w", name, err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		if err := indexValues(ctx, tx, e.id, name, e.value); err != nil {
			return err
		}
	}
	return nil
}

// EnsureCategory matches names case-insensitively after whitespace cleanup.
func (r *FieldRepository) EnsureCategory(ctx context.Context, name string) (int64, error) {
	name = video.Clean(name)
	key := strings.ToLower(name)
	if key == "" {
		return 0, errors.New("empty category name")
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (name, name_key) VALUES (?, ?) ON CONFLICT (name_key) DO NOTHING`, name, key)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name_key = ?`, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get category: %w", err)
	}
	return id, nil
}

func (r *FieldRepository) Categories(ctx context.Context) ([]content.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	out := []content.Category{}
	for rows.Next() {
		var c content.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
