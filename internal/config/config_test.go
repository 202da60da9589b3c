package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"mycinema/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("WEBSHARE_USERNAME", "viewer")
	t.Setenv("WEBSHARE_PASSWORD", "secret")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "mycinema")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "catalog.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if !cfg.HasWebshareCredentials() {
		t.Fatal("expected webshare credentials from env")
	}
	if cfg.TMDB.Language != "cs-CZ" {
		t.Fatalf("unexpected TMDB language: %q", cfg.TMDB.Language)
	}
	if cfg.Refresh.StaleAfterDays != 90 || cfg.Refresh.MaxLinks != 4 || cfg.Refresh.CheckpointEvery != 10 {
		t.Fatalf("unexpected refresh defaults: %+v", cfg.Refresh)
	}
}

func TestLoadMissingTMDBKeyFails(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	os.Unsetenv("TMDB_API_KEY")
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing tmdb key")
	}
	if !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	custom := config.Default()
	custom.TMDB.APIKey = "file-key"
	custom.Paths.DataDir = "~/catalog"
	custom.Sync.MovieTiersGiB = []int{20, 10}
	custom.Sync.VideoExtensions = []string{"MKV", ".mp4", "mkv"}
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "catalog") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if diff := cmp.Diff([]string{".mkv", ".mp4"}, cfg.Sync.VideoExtensions); diff != "" {
		t.Fatalf("video extensions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{20 << 30, 10 << 30}, cfg.MovieTierBytes()); diff != "" {
		t.Fatalf("movie tiers mismatch (-want +got):\n%s", diff)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsNonDescendingTiers(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Sync.SeriesTiersGiB = []int{5, 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected tier validation error")
	}
}

func TestValidateRequiresPairedWebshareCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.TMDB.APIKey = "key"
	cfg.Webshare.Username = "viewer"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected credential pairing error")
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "sample-key")
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if diff := cmp.Diff([]int{30, 17, 7, 3}, cfg.Sync.MovieTiersGiB); diff != "" {
		t.Fatalf("movie tiers mismatch (-want +got):\n%s", diff)
	}
}
