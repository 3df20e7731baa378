package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	jsoniter "github.com/json-iterator/go"

	"github.com/lysyi3m/video-comb/app/cfg"
	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/ingest"
	"github.com/lysyi3m/video-comb/app/progress"
	"github.com/lysyi3m/video-comb/app/setup"
	"github.com/lysyi3m/video-comb/app/video"
)

type sourceArgs struct {
	Source string `positional-arg-name:"source" required:"yes" description:"Provider origin, e.g. kodik"`
}

type createCommand struct {
	Limit int        `long:"limit" default:"-1" description:"Maximum number of created posts, 0 means unlimited, -1 uses ITEMS_LIMIT"`
	Args  sourceArgs `positional-args:"yes" required:"yes"`
}

func (c *createCommand) Execute([]string) error {
	return runSync(ingest.OpCreate, c.Args.Source, c.Limit)
}

type updateCommand struct {
	Limit int        `long:"limit" default:"-1" description:"Maximum number of updated videos, 0 means unlimited, -1 uses ITEMS_LIMIT"`
	Args  sourceArgs `positional-args:"yes" required:"yes"`
}

func (c *updateCommand) Execute([]string) error {
	return runSync(ingest.OpUpdate, c.Args.Source, c.Limit)
}

type cleanCommand struct {
	Args sourceArgs `positional-args:"yes" required:"yes"`
}

func (c *cleanCommand) Execute([]string) error {
	return runSync(ingest.OpClean, c.Args.Source, 0)
}

type searchCommand struct {
	Args struct {
		Title string `positional-arg-name:"title" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *searchCommand) Execute([]string) error {
	conf, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	videos, err := app.Registry.Search(ctx, c.Args.Title)
	if err != nil {
		return err
	}
	fmt.Println(videoTable(videos))
	return nil
}

type videoCommand struct {
	Args struct {
		Origin string `positional-arg-name:"origin" required:"yes"`
		ID     string `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c *videoCommand) Execute([]string) error {
	conf, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	p, err := app.Registry.Get(c.Args.Origin)
	if err != nil {
		return err
	}
	v, err := p.GetVideo(ctx, c.Args.ID)
	if err != nil {
		return err
	}

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode video: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

type accessCommand struct {
	NoCache bool `long:"no-cache" description:"Always ask the provider"`
	Args    struct {
		Origins []string `positional-arg-name:"origin" description:"Provider origins, all when omitted"`
	} `positional-args:"yes"`
}

func (c *accessCommand) Execute([]string) error {
	conf, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	origins := c.Args.Origins
	if len(origins) == 0 {
		origins = app.Registry.Origins()
	}

	var failed int
	for _, origin := range origins {
		p, err := app.Registry.Get(origin)
		if err != nil {
			return err
		}
		ok, err := p.CheckAccess(ctx, !c.NoCache)
		switch {
		case ok:
			fmt.Println(okStyle.Render("✓ "+origin), mutedStyle.Render("access granted"))
		default:
			failed++
			fmt.Println(errorStyle.Render("✗ "+origin), mutedStyle.Render(fmt.Sprint(err)))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d providers denied access", failed, len(origins))
	}
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

func videoTable(videos []video.Video) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ORIGIN", "ID", "TITLE", "YEAR", "TYPE", "QUALITY")
	for _, v := range videos {
		year := ""
		if v.Year > 0 {
			year = strconv.Itoa(v.Year)
		}
		t.Row(v.Origin, v.ID, v.Title, year, string(v.Type), v.Quality)
	}
	return t.String()
}

// runSync runs one orchestrator operation against the database, or an
// in-memory store with --dry-run.
func runSync(op, source string, limit int) error {
	plain := opts.Plain || !isTerminal()

	var logFile *os.File
	var conf *cfg.Cfg
	var err error
	if plain {
		conf, err = loadConfig(os.Stderr)
	} else {
		// The progress view owns the terminal; logs go to a file next to
		// the downloaded feeds.
		if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}
		logFile, err = tea.LogToFile(filepath.Join(opts.WorkDir, "feedsync.log"), "")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		conf, err = loadConfig(logFile)
	}
	if err != nil {
		return err
	}
	if limit < 0 {
		limit = conf.ItemsLimit
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := setup.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer app.Close()

	var store content.Store
	if opts.DryRun {
		store = content.NewMemoryStore(app.Mapping.Schema()...)
	} else {
		if err := app.OpenStore(ctx); err != nil {
			return err
		}
		store = app.Store
	}

	do := func(ctx context.Context, sink progress.Sink) (int, error) {
		orch := app.NewOrchestrator(store, sink)
		switch op {
		case ingest.OpCreate:
			return orch.Create(ctx, source, limit)
		case ingest.OpUpdate:
			return orch.Update(ctx, source, limit)
		default:
			return orch.Clean(ctx, source)
		}
	}

	if plain {
		n, err := do(ctx, progress.LogSink(nil))
		if err != nil {
			return err
		}
		fmt.Printf("%s %s: %d posts\n", op, source, n)
		return nil
	}

	return runView(ctx, op, source, do)
}

func isTerminal() bool {
	info, err := os.Stdout.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
