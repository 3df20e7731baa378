package content

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/video-comb/app/video"
)

// Title returns the post title for v under m.
func (m Mapping) Title(v video.Video) string {
	if m.TitleField != "" {
		if title := v.Value(m.TitleField); title != "" {
			return title
		}
	}
	return v.DisplayTitle()
}

// BuildPost renders v into a new post. Categories are resolved by the
// caller from CategoryNames.
func (m Mapping) BuildPost(v video.Video, now time.Time) Post {
	p := Post{
		Title:      m.Title(v),
		FullStory:  v.Description,
		ShortStory: truncate(v.Description, m.ShortStoryLength),
		Author:     m.Author,
		Date:       now,
		Fields:     make(map[string]string, len(m.Bindings)+1),
	}
	if !v.CreatedAt.IsZero() && v.CreatedAt.Before(now) {
		p.Date = v.CreatedAt
	}

	if m.IDField != "" && v.HasIdentity() {
		p.Fields[m.IDField] = v.Key()
	}
	for _, b := range m.Bindings {
		if value := v.Value(b.Video); value != "" {
			p.Fields[b.Field.Name] = value
		}
	}
	return p
}

// CategoryNames lists the categories a post for v belongs to.
func (m Mapping) CategoryNames(v video.Video) []string {
	var names []string
	if m.Categories.FromType && v.Type != "" {
		name := m.Categories.TypeNames[v.Type]
		if name == "" {
			name = string(v.Type)
		}
		names = append(names, name)
	}
	if m.Categories.FromGenres {
		names = append(names, v.Genres...)
	}
	return video.CleanList(names)
}

// Diff refreshes existing with the updatable parts of v. Values only ever
// get filled or replaced: a field the video no longer carries stays as it
// is. The returned post keeps the existing id.
func (m Mapping) Diff(existing Post, v video.Video, now time.Time) (bool, Post) {
	candidate := m.BuildPost(v, now)
	updated := existing.Clone()
	if updated.Fields == nil {
		updated.Fields = map[string]string{}
	}
	changed := false

	if m.Update.Title && candidate.Title != "" && candidate.Title != existing.Title {
		updated.Title = candidate.Title
		changed = true
	}

	if m.Update.Description && candidate.FullStory != "" {
		if candidate.FullStory != existing.FullStory || candidate.ShortStory != existing.ShortStory {
			updated.FullStory = candidate.FullStory
			updated.ShortStory = candidate.ShortStory
			changed = true
		}
	}

	for _, name := range m.Update.ExtraFields {
		value := candidate.Fields[name]
		if value != "" && value != existing.Fields[name] {
			updated.Fields[name] = value
			changed = true
		}
	}

	if changed && m.Update.Date {
		updated.Date = now
	}
	return changed, updated
}

// truncate cuts s to at most n runes at a word boundary. n <= 0 keeps s.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
