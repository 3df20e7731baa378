package feed

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownFeed = errors.New("feed not found in catalog")

// Catalog is the immutable set of feeds known to the process. It is built
// once at startup and shared read-only, so no locking is needed.
type Catalog struct {
	feeds    []Feed
	index    map[string]int
	disabled map[string]bool
}

func NewCatalog(feeds ...Feed) (*Catalog, error) {
	c := &Catalog{
		feeds:    make([]Feed, 0, len(feeds)),
		index:    make(map[string]int, len(feeds)),
		disabled: make(map[string]bool),
	}

	for i, f := range feeds {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d (%s): %w", i, f.Key(), err)
		}
		if _, ok := c.index[f.Key()]; ok {
			return nil, fmt.Errorf("duplicate feed %s", f.Key())
		}
		c.index[f.Key()] = len(c.feeds)
		c.feeds = append(c.feeds, f)
	}

	return c, nil
}

func (c *Catalog) Get(name, origin string) (Feed, error) {
	i, ok := c.index[Key(name, origin)]
	if !ok {
		return Feed{}, fmt.Errorf("%w: %s", ErrUnknownFeed, Key(name, origin))
	}
	return c.feeds[i], nil
}

// Feeds returns every feed in catalog order.
func (c *Catalog) Feeds() []Feed {
	return slices.Clone(c.feeds)
}

func (c *Catalog) ForOrigin(origin string) []Feed {
	var out []Feed
	for _, f := range c.feeds {
		if f.VideoOrigin == origin {
			out = append(out, f)
		}
	}
	return out
}

// Enabled returns the feeds of origin that were not switched off by
// overrides, in catalog order.
func (c *Catalog) Enabled(origin string) []Feed {
	var out []Feed
	for _, f := range c.feeds {
		if f.VideoOrigin == origin && !c.disabled[f.Key()] {
			out = append(out, f)
		}
	}
	return out
}

func (c *Catalog) IsEnabled(f Feed) bool {
	_, known := c.index[f.Key()]
	return known && !c.disabled[f.Key()]
}

func (c *Catalog) Origins() []string {
	var out []string
	for _, f := range c.feeds {
		if !slices.Contains(out, f.VideoOrigin) {
			out = append(out, f.VideoOrigin)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.feeds)
}
