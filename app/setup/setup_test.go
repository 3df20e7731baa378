package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/video-comb/app/cfg"
	"github.com/lysyi3m/video-comb/app/content"
	"github.com/lysyi3m/video-comb/app/progress"
	"github.com/lysyi3m/video-comb/app/provider"
)

func testConfig(t *testing.T) *cfg.Cfg {
	t.Helper()
	dir := t.TempDir()
	return &cfg.Cfg{
		DBPath:         filepath.Join(dir, "db", "test.db"),
		WorkDir:        filepath.Join(dir, "feeds"),
		MediaDir:       filepath.Join(dir, "media"),
		WorkerCount:    1,
		UserAgent:      "test",
		DownloadImages: true,
		Providers:      map[string]provider.Config{},
	}
}

func TestBuild(t *testing.T) {
	c := testConfig(t)

	app, err := Build(context.Background(), c)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	defer app.Close()

	if origins := app.Registry.Origins(); len(origins) != 6 {
		t.Errorf("Expected 6 providers, got %v", origins)
	}
	if app.Catalog.Len() == 0 {
		t.Error("Expected built-in feeds in the catalog")
	}
	for _, origin := range app.Catalog.Origins() {
		if _, err := app.Registry.Get(origin); err != nil {
			t.Errorf("Catalog origin %s has no provider: %v", origin, err)
		}
	}
	if app.Enricher == nil {
		t.Error("Expected media enricher when image downloads are enabled")
	}
	if _, err := os.Stat(c.WorkDir); err != nil {
		t.Errorf("Expected working directory to exist: %v", err)
	}
	if app.Store != nil {
		t.Error("Expected no store before OpenStore")
	}
}

func TestOpenStore(t *testing.T) {
	c := testConfig(t)
	ctx := context.Background()

	app, err := Build(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	if err := app.OpenStore(ctx); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	fields, err := app.Store.ExtraFields(ctx)
	if err != nil {
		t.Fatal(err)
	}
	registered := make(map[string]bool, len(fields))
	for _, f := range fields {
		registered[f.Name] = true
	}
	for _, f := range app.Mapping.Schema() {
		if !registered[f.Name] {
			t.Errorf("Expected field %s to be registered", f.Name)
		}
	}

	runner := app.Runners()(progress.SinkFunc(func(progress.Event) {}))
	if _, err := runner.Clean(ctx, "kodik"); err != nil {
		t.Errorf("Expected clean of an empty store to succeed, got: %v", err)
	}

	orch := app.NewOrchestrator(content.NewMemoryStore(), nil)
	if orch.Progress() == nil {
		t.Error("Expected a progress channel")
	}
}
