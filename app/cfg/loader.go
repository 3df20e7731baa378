package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/video-comb/app/provider"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// Options is the flag and environment surface. Binaries embed it in their
// own go-flags parsers.
type Options struct {
	// Storage
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data/video-comb.db" description:"SQLite database file"`
	WorkDir  string `long:"work-dir" env:"WORK_DIR" default:"./data/feeds" description:"Directory for downloaded feed files"`
	MediaDir string `long:"media-dir" env:"MEDIA_DIR" default:"./data/media" description:"Directory for stored images and torrent files"`

	// Application configuration
	Port           string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey   string        `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount    int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for synchronization runs"`
	UpdateInterval time.Duration `long:"update-interval" env:"UPDATE_INTERVAL" default:"0" description:"Interval between scheduled update runs, 0 disables them"`
	TaskTimeout    time.Duration `long:"task-timeout" env:"TASK_TIMEOUT" default:"30m" description:"Maximum duration of one synchronization run"`
	ItemsLimit     int           `long:"items-limit" env:"ITEMS_LIMIT" default:"0" description:"Default item limit per run, 0 means unlimited"`
	CatalogFile    string        `long:"catalog-file" env:"CATALOG_FILE" description:"YAML file overriding the feed catalog"`
	MappingFile    string        `long:"mapping-file" env:"MAPPING_FILE" description:"YAML file describing the video to post mapping"`
	RedisAddr      string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared access cache (optional)"`

	// Outbound HTTP
	UserAgent         string        `long:"user-agent" env:"USER_AGENT" default:"Video Comb/1.0" description:"User agent string for HTTP requests"`
	ProxyURL          string        `long:"http-proxy" env:"HTTP_PROXY_URL" description:"Proxy URL for outbound requests"`
	HTTPTimeout       time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Timeout of API requests"`
	RequestsPerSecond float64       `long:"requests-per-second" env:"REQUESTS_PER_SECOND" default:"5" description:"Request rate per provider host, 0 disables pacing"`

	// Media enrichment
	DownloadImages   bool `long:"download-images" env:"DOWNLOAD_IMAGES" description:"Store posters and screenshots locally"`
	DownloadTorrents bool `long:"download-torrents" env:"DOWNLOAD_TORRENTS" description:"Store torrent files locally"`

	// Providers
	KodikToken      string `long:"kodik-token" env:"KODIK_TOKEN" description:"Kodik API token"`
	KodikHost       string `long:"kodik-host" env:"KODIK_HOST" description:"Kodik API host"`
	KodikPlayer     string `long:"kodik-player" env:"KODIK_PLAYER" description:"Kodik player URL pattern with {path}"`
	VideoCDNToken   string `long:"videocdn-token" env:"VIDEOCDN_TOKEN" description:"VideoCDN API token"`
	VideoCDNHost    string `long:"videocdn-host" env:"VIDEOCDN_HOST" description:"VideoCDN API host"`
	VideoCDNPlayer  string `long:"videocdn-player" env:"VIDEOCDN_PLAYER" description:"VideoCDN player URL pattern with {path}"`
	CollapsToken    string `long:"collaps-token" env:"COLLAPS_TOKEN" description:"Collaps API token"`
	CollapsHost     string `long:"collaps-host" env:"COLLAPS_HOST" description:"Collaps API host"`
	CollapsPlayer   string `long:"collaps-player" env:"COLLAPS_PLAYER" description:"Collaps player URL pattern with {path}"`
	AllohaToken     string `long:"alloha-token" env:"ALLOHA_TOKEN" description:"Alloha API token"`
	AllohaHost      string `long:"alloha-host" env:"ALLOHA_HOST" description:"Alloha API host"`
	AllohaPlayer    string `long:"alloha-player" env:"ALLOHA_PLAYER" description:"Alloha player URL pattern with {path}"`
	AllohaPoster    string `long:"alloha-poster" env:"ALLOHA_POSTER" default:"https://st.kp.yandex.net/images/film_big/{id}.jpg" description:"Poster URL pattern with the kinopoisk {id}"`
	AllohaThumbnail string `long:"alloha-thumbnail" env:"ALLOHA_THUMBNAIL" default:"https://st.kp.yandex.net/images/film_iphone/iphone360_{id}.jpg" description:"Thumbnail URL pattern with the kinopoisk {id}"`
	HDVBToken       string `long:"hdvb-token" env:"HDVB_TOKEN" description:"HDVB API token"`
	HDVBHost        string `long:"hdvb-host" env:"HDVB_HOST" description:"HDVB API host"`
	HDVBPlayer      string `long:"hdvb-player" env:"HDVB_PLAYER" description:"HDVB player URL pattern with {path}"`
	RutorHost       string `long:"rutor-host" env:"RUTOR_HOST" description:"Rutor tracker host"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment. It returns nil
// without an error when help was requested.
func Load() (*Cfg, error) {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg, err := FromOptions(opts)
	if err != nil {
		return nil, err
	}
	Set(cfg)
	return cfg, nil
}

// FromOptions validates parsed options and builds the configuration.
func FromOptions(opts Options) (*Cfg, error) {
	if opts.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", opts.WorkerCount)
	}
	if opts.ItemsLimit < 0 {
		return nil, fmt.Errorf("items limit must not be negative, got %d", opts.ItemsLimit)
	}
	if opts.UpdateInterval < 0 {
		return nil, fmt.Errorf("update interval must not be negative, got %s", opts.UpdateInterval)
	}

	cfg := &Cfg{
		DBPath:            opts.DBPath,
		WorkDir:           opts.WorkDir,
		MediaDir:          opts.MediaDir,
		Port:              opts.Port,
		APIAccessKey:      opts.APIAccessKey,
		WorkerCount:       opts.WorkerCount,
		UpdateInterval:    opts.UpdateInterval,
		TaskTimeout:       opts.TaskTimeout,
		ItemsLimit:        opts.ItemsLimit,
		CatalogFile:       opts.CatalogFile,
		MappingFile:       opts.MappingFile,
		RedisAddr:         opts.RedisAddr,
		UserAgent:         opts.UserAgent,
		ProxyURL:          opts.ProxyURL,
		HTTPTimeout:       opts.HTTPTimeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		DownloadImages:    opts.DownloadImages,
		DownloadTorrents:  opts.DownloadTorrents,
		Providers: map[string]provider.Config{
			"kodik":    {Host: opts.KodikHost, Token: opts.KodikToken, PlayerPattern: opts.KodikPlayer},
			"videocdn": {Host: opts.VideoCDNHost, Token: opts.VideoCDNToken, PlayerPattern: opts.VideoCDNPlayer},
			"collaps":  {Host: opts.CollapsHost, Token: opts.CollapsToken, PlayerPattern: opts.CollapsPlayer},
			"alloha": {
				Host:             opts.AllohaHost,
				Token:            opts.AllohaToken,
				PlayerPattern:    opts.AllohaPlayer,
				PosterPattern:    opts.AllohaPoster,
				ThumbnailPattern: opts.AllohaThumbnail,
			},
			"hdvb":  {Host: opts.HDVBHost, Token: opts.HDVBToken, PlayerPattern: opts.HDVBPlayer},
			"rutor": {Host: opts.RutorHost},
		},
		Timezone: opts.Timezone,
		Debug:    opts.Debug,
		Version:  GetVersion(),
		values:   envValues(opts),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

// Set installs cfg as the process configuration returned by Get.
func Set(cfg *Cfg) {
	globalCfg = cfg
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// envValues indexes every option by its env tag.
func envValues(opts Options) map[string]string {
	values := map[string]string{}
	v := reflect.ValueOf(opts)
	t := v.Type()
	for i := range t.NumField() {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		values[key] = fmt.Sprint(v.Field(i).Interface())
	}
	return values
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
