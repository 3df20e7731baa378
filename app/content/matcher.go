package content

import (
	"context"
	"fmt"

	"github.com/lysyi3m/video-comb/app/video"
)

// Matcher correlates incoming videos with stored posts by video key,
// then title, then linked extra field values.
type Matcher struct {
	store   Store
	mapping Mapping
}

func NewMatcher(store Store, mapping Mapping) *Matcher {
	return &Matcher{store: store, mapping: mapping}
}

// criteria builds one filter per applicable rule, in priority order. A
// video with nothing to match on yields none.
func (m *Matcher) criteria(v video.Video) []PostFilter {
	var filters []PostFilter

	if m.mapping.IDField != "" && v.HasIdentity() {
		filters = append(filters, PostFilter{Field: &FieldMatch{Name: m.mapping.IDField, Value: v.Key()}})
	}

	if m.mapping.TitleField != "" {
		if title := v.Value(m.mapping.TitleField); title != "" {
			filters = append(filters, PostFilter{Title: title})
		}
	}

	var anyOf []FieldMatch
	for _, b := range m.mapping.Linked() {
		for _, value := range video.SplitList(v.Value(b.Video)) {
			anyOf = append(anyOf, FieldMatch{Name: b.Field.Name, Value: value})
		}
	}
	if len(anyOf) > 0 {
		filters = append(filters, PostFilter{AnyOf: anyOf})
	}

	return filters
}

// IsRepresented reports whether some post already stands for v. Rules are
// tried in order and the first hit wins.
func (m *Matcher) IsRepresented(ctx context.Context, v video.Video) (bool, error) {
	for _, f := range m.criteria(v) {
		found, err := m.store.HasPosts(ctx, f)
		if err != nil {
			return false, fmt.Errorf("failed to match video %s: %w", v.Key(), err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// FindPosts returns every post correlated with v under any rule, each
// post once.
func (m *Matcher) FindPosts(ctx context.Context, v video.Video) ([]Post, error) {
	var posts []Post
	seen := map[int64]bool{}

	for _, f := range m.criteria(v) {
		found, err := m.store.GetPosts(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to find posts for video %s: %w", v.Key(), err)
		}
		for _, p := range found {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			posts = append(posts, p)
		}
	}
	return posts, nil
}
