package feed

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// TokenPlaceholder is substituted with the provider credential in RequestPath.
const TokenPlaceholder = "{token}"

// ErrStop is returned by progress and item callbacks to stop a transfer or a
// parse early. It is a control signal, not a failure: callers receiving it
// get whatever was produced so far.
var ErrStop = errors.New("feed: stop")

// ProgressFunc receives the expected total and the amount done so far.
// Returning ErrStop stops the operation cooperatively; any other error
// aborts it.
type ProgressFunc func(total, loaded int64) error

// Feed describes one bulk export published by a provider.
type Feed struct {
	Name        string `yaml:"name" json:"name"`
	Label       string `yaml:"label" json:"label"`
	VideoOrigin string `yaml:"origin" json:"origin"`
	// RequestPath is relative to the provider host and may embed {token}.
	RequestPath string `yaml:"request_path" json:"request_path"`
	// JSONPointer locates the item array; empty means a top-level array.
	JSONPointer string `yaml:"json_pointer" json:"json_pointer"`
	// Size is the expected byte length, used when the server sends none.
	Size int64 `yaml:"size" json:"size"`
	// Filters drop feed videos before they reach the store.
	Filters []Filter `yaml:"filters" json:"filters,omitempty"`
}

func (f Feed) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"name", f.Name},
		{"label", f.Label},
		{"origin", f.VideoOrigin},
		{"request path", f.RequestPath},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("feed %s is required", r.name)
		}
	}
	if f.Size <= 0 {
		return fmt.Errorf("feed size must be positive, got %d", f.Size)
	}
	if f.JSONPointer != "" && !strings.HasPrefix(f.JSONPointer, "/") {
		return fmt.Errorf("feed json pointer must start with '/': %s", f.JSONPointer)
	}
	if strings.ContainsAny(f.Name+f.VideoOrigin, `/\`) {
		return fmt.Errorf("feed name and origin must not contain path separators")
	}
	for i, filter := range f.Filters {
		if err := filter.Validate(); err != nil {
			return fmt.Errorf("feed filter at index %d: %w", i, err)
		}
	}
	return nil
}

func (f Feed) Key() string {
	return Key(f.Name, f.VideoOrigin)
}

func Key(name, origin string) string {
	return origin + "/" + name
}

// RequestURL joins host and RequestPath, substituting the token.
func (f Feed) RequestURL(host, token string) string {
	path := strings.ReplaceAll(f.RequestPath, TokenPlaceholder, url.QueryEscape(token))
	return strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/")
}

// LocalPath is the deterministic file the feed materializes to inside dir.
func (f Feed) LocalPath(dir string) string {
	return filepath.Join(dir, f.VideoOrigin+"_"+f.Name+".json")
}
