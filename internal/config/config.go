package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Language          string  `toml:"language"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheTTLMinutes   int     `toml:"cache_ttl_minutes"`
	ListMaxPages      int     `toml:"list_max_pages"`
}

// Webshare contains credentials and limits for the file-search backend.
type Webshare struct {
	Username          string  `toml:"username"`
	Password          string  `toml:"password"`
	BaseURL           string  `toml:"base_url"`
	SearchLimit       int     `toml:"search_limit"`
	Category          string  `toml:"category"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CSFD contains configuration for the ranking-list scraper.
type CSFD struct {
	BaseURL          string `toml:"base_url"`
	UserAgent        string `toml:"user_agent"`
	MaxItems         int    `toml:"max_items"`
	MaxFilteredPages int    `toml:"max_filtered_pages"`
	MergedCap        int    `toml:"merged_cap"`
}

// Sync contains configuration for catalog ingestion runs.
type Sync struct {
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	ExcludedGenres        []string `toml:"excluded_genres"`
	BlockJapaneseScript   bool     `toml:"block_japanese_script"`
	MaxEpisodes           int      `toml:"max_episodes"`
	MovieTiersGiB         []int    `toml:"movie_tiers_gib"`
	SeriesTiersGiB        []int    `toml:"series_tiers_gib"`
	VideoExtensions       []string `toml:"video_extensions"`
}

// Refresh contains configuration for the stale link refresher.
type Refresh struct {
	StaleAfterDays  int `toml:"stale_after_days"`
	MaxLinks        int `toml:"max_links"`
	CheckpointEvery int `toml:"checkpoint_every"`
	IntervalHours   int `toml:"interval_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mycinema.
//
// Configuration sections by subsystem:
//   - Paths: database directory, logs and API bind address
//   - TMDB: metadata lookups and ranked lists
//   - Webshare: file search credentials and request limits
//   - CSFD: ranking list scraping
//   - Sync: ingestion policy, tier ceilings and timeouts
//   - Refresh: stale link refresh cadence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	TMDB     TMDB     `toml:"tmdb"`
	Webshare Webshare `toml:"webshare"`
	CSFD     CSFD     `toml:"csfd"`
	Sync     Sync     `toml:"sync"`
	Refresh  Refresh  `toml:"refresh"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mycinema.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite catalog location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the file used to serialize sync and refresh runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "run.lock")
}

// RequestTimeout is the per-call deadline applied to metadata and search calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Sync.RequestTimeoutSeconds) * time.Second
}

// StaleAfter is the age after which a link check is considered outdated.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Refresh.StaleAfterDays) * 24 * time.Hour
}

// RefreshInterval returns the daemon refresh cadence; zero disables scheduling.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalHours) * time.Hour
}

// MovieTierBytes converts the movie tier ceilings to bytes.
func (c *Config) MovieTierBytes() []int64 {
	return gibToBytes(c.Sync.MovieTiersGiB)
}

// SeriesTierBytes converts the series tier ceilings to bytes.
func (c *Config) SeriesTierBytes() []int64 {
	return gibToBytes(c.Sync.SeriesTiersGiB)
}

func gibToBytes(values []int) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		out = append(out, int64(v)<<30)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
