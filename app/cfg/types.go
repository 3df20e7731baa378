package cfg

import (
	"time"

	"github.com/lysyi3m/video-comb/app/provider"
)

type Cfg struct {
	// Storage
	DBPath   string
	WorkDir  string
	MediaDir string

	// Application configuration
	Port           string
	APIAccessKey   string
	WorkerCount    int
	UpdateInterval time.Duration
	TaskTimeout    time.Duration
	ItemsLimit     int
	CatalogFile    string
	MappingFile    string
	RedisAddr      string

	// Outbound HTTP
	UserAgent         string
	ProxyURL          string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64

	// Media enrichment
	DownloadImages   bool
	DownloadTorrents bool

	// Providers holds per-source settings by origin.
	Providers map[string]provider.Config

	// Application metadata
	Timezone string
	Debug    bool
	Version  string

	values map[string]string
}

// Lookup returns the configured value of an environment key such as
// "ITEMS_LIMIT", formatted as text.
func (c *Cfg) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}
