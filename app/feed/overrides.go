package feed

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Override adjusts one built-in feed from the catalog file.
type Override struct {
	Name        string   `yaml:"name"`
	Origin      string   `yaml:"origin"`
	Enabled     *bool    `yaml:"enabled"`
	Label       string   `yaml:"label"`
	Size        int64    `yaml:"size"`
	RequestPath string   `yaml:"request_path"`
	JSONPointer *string  `yaml:"json_pointer"`
	Filters     []Filter `yaml:"filters"`
}

type catalogFile struct {
	Feeds    []Override `yaml:"feeds"`
	Disabled []string   `yaml:"disabled_origins"`
}

// LoadCatalog builds a catalog from the built-in feeds, applying the YAML
// overrides file at path when it exists. Overrides may also declare feeds
// that are not built in, in which case every field must be present.
func LoadCatalog(path string, builtin []Feed) (*Catalog, error) {
	if path == "" {
		return NewCatalog(builtin...)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Catalog file not found, using built-in feeds", "path", path)
		return NewCatalog(builtin...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	return applyOverrides(builtin, file)
}

func applyOverrides(builtin []Feed, file catalogFile) (*Catalog, error) {
	feeds := make([]Feed, len(builtin))
	copy(feeds, builtin)

	positions := make(map[string]int, len(feeds))
	for i, f := range feeds {
		positions[f.Key()] = i
	}

	disabled := make(map[string]bool)

	for i, o := range file.Feeds {
		if o.Name == "" || o.Origin == "" {
			return nil, fmt.Errorf("catalog override at index %d must have name and origin", i)
		}

		key := Key(o.Name, o.Origin)
		pos, ok := positions[key]
		if !ok {
			feeds = append(feeds, Feed{Name: o.Name, VideoOrigin: o.Origin})
			pos = len(feeds) - 1
			positions[key] = pos
		}

		f := &feeds[pos]
		if o.Label != "" {
			f.Label = o.Label
		}
		if o.Size > 0 {
			f.Size = o.Size
		}
		if o.RequestPath != "" {
			f.RequestPath = o.RequestPath
		}
		if o.JSONPointer != nil {
			f.JSONPointer = *o.JSONPointer
		}
		if len(o.Filters) > 0 {
			f.Filters = o.Filters
		}
		if o.Enabled != nil && !*o.Enabled {
			disabled[key] = true
		}

		slog.Debug("Feed override applied", "feed", key, "enabled", !disabled[key])
	}

	for _, origin := range file.Disabled {
		for _, f := range feeds {
			if f.VideoOrigin == origin {
				disabled[f.Key()] = true
			}
		}
	}

	catalog, err := NewCatalog(feeds...)
	if err != nil {
		return nil, err
	}
	catalog.disabled = disabled

	return catalog, nil
}
