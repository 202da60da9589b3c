package testsupport

import (
	"path/filepath"
	"testing"

	"mycinema/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.TMDB.RequestsPerSecond = 0
	cfgVal.Webshare.RequestsPerSecond = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTMDB points the TMDB client at a test server.
func WithTMDB(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = baseURL
		b.cfg.TMDB.APIKey = key
	}
}

// WithWebshare points the file-search client at a test server.
func WithWebshare(baseURL, username, password string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Webshare.BaseURL = baseURL
		b.cfg.Webshare.Username = username
		b.cfg.Webshare.Password = password
	}
}

// WithCSFD points the ranking scraper at a test server.
func WithCSFD(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.CSFD.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
