// Command feedsync runs synchronizations and provider queries from the
// terminal, in process and without the HTTP server.
package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/video-comb/app/cfg"
)

type globalOptions struct {
	cfg.Options

	Plain  bool `long:"plain" description:"Log progress events instead of drawing a progress bar"`
	DryRun bool `long:"dry-run" description:"Keep posts in memory instead of the database"`
}

var opts globalOptions

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Video catalog feed synchronization"

	commands := []struct {
		name, short, long string
		data              any
	}{
		{"create", "Create posts", "Create posts for feed videos that are not in the catalog yet", &createCommand{}},
		{"update", "Update posts", "Refresh the posts of every feed video", &updateCommand{}},
		{"clean", "Remove posts", "Remove every post linked to a source", &cleanCommand{}},
		{"search", "Search videos", "Search all providers by title", &searchCommand{}},
		{"video", "Show a video", "Look a video up by provider id", &videoCommand{}},
		{"access", "Check access", "Verify provider credentials", &accessCommand{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			panic(err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

// loadConfig validates the global options and installs the logger. Logs
// go to w, which the progress view replaces with a file.
func loadConfig(w io.Writer) (*cfg.Cfg, error) {
	conf, err := cfg.FromOptions(opts.Options)
	if err != nil {
		return nil, err
	}
	cfg.Set(conf)

	level := slog.LevelInfo
	if conf.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return conf, nil
}
