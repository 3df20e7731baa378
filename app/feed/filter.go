package feed

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/video-comb/app/video"
)

// Filter keeps or drops feed videos by the text of one video field.
// Matching is a case insensitive substring test and excludes win over
// includes.
type Filter struct {
	Field    string   `yaml:"field" json:"field"`
	Includes []string `yaml:"includes" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes" json:"excludes,omitempty"`
}

func (f Filter) Validate() error {
	if _, err := video.ParseField(f.Field); err != nil {
		return fmt.Errorf("invalid filter field: %w", err)
	}
	if len(f.Includes) == 0 && len(f.Excludes) == 0 {
		return fmt.Errorf("filter on %s must have at least one include or exclude rule", f.Field)
	}
	return nil
}

// Filtered reports whether v is dropped by the feed filters, and why.
func (f Feed) Filtered(v video.Video) (bool, string) {
	for _, filter := range f.Filters {
		value := v.Value(video.Field(filter.Field))

		for _, exclude := range filter.Excludes {
			if matchesFilter(value, exclude) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}
