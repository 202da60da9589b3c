package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeWebshare()
	c.normalizeCSFD()
	c.normalizeSync()
	c.normalizeRefresh()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRequestsPerSecond
	}
	if c.TMDB.CacheTTLMinutes < 0 {
		c.TMDB.CacheTTLMinutes = 0
	}
	if c.TMDB.ListMaxPages <= 0 {
		c.TMDB.ListMaxPages = defaultTMDBListMaxPages
	}
}

func (c *Config) normalizeWebshare() {
	if c.Webshare.Username == "" {
		if value, ok := os.LookupEnv("WEBSHARE_USERNAME"); ok {
			c.Webshare.Username = value
		}
	}
	if c.Webshare.Password == "" {
		if value, ok := os.LookupEnv("WEBSHARE_PASSWORD"); ok {
			c.Webshare.Password = value
		}
	}
	c.Webshare.Username = strings.TrimSpace(c.Webshare.Username)
	c.Webshare.BaseURL = strings.TrimRight(strings.TrimSpace(c.Webshare.BaseURL), "/")
	if c.Webshare.BaseURL == "" {
		c.Webshare.BaseURL = defaultWebshareBaseURL
	}
	if c.Webshare.SearchLimit <= 0 {
		c.Webshare.SearchLimit = defaultWebshareSearchLimit
	}
	c.Webshare.Category = strings.TrimSpace(c.Webshare.Category)
	if c.Webshare.Category == "" {
		c.Webshare.Category = defaultWebshareCategory
	}
	if c.Webshare.RequestsPerSecond <= 0 {
		c.Webshare.RequestsPerSecond = defaultWebshareRequestsPerSec
	}
}

func (c *Config) normalizeCSFD() {
	c.CSFD.BaseURL = strings.TrimRight(strings.TrimSpace(c.CSFD.BaseURL), "/")
	if c.CSFD.BaseURL == "" {
		c.CSFD.BaseURL = defaultCSFDBaseURL
	}
	c.CSFD.UserAgent = strings.TrimSpace(c.CSFD.UserAgent)
	if c.CSFD.UserAgent == "" {
		c.CSFD.UserAgent = defaultCSFDUserAgent
	}
	if c.CSFD.MaxItems <= 0 {
		c.CSFD.MaxItems = defaultCSFDMaxItems
	}
	if c.CSFD.MaxFilteredPages <= 0 {
		c.CSFD.MaxFilteredPages = defaultCSFDMaxFilteredPages
	}
	if c.CSFD.MergedCap <= 0 {
		c.CSFD.MergedCap = defaultCSFDMergedCap
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.RequestTimeoutSeconds <= 0 {
		c.Sync.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	c.Sync.ExcludedGenres = normalizeList(c.Sync.ExcludedGenres, nil)
	if c.Sync.MaxEpisodes < 0 {
		c.Sync.MaxEpisodes = 0
	}
	if len(c.Sync.MovieTiersGiB) == 0 {
		c.Sync.MovieTiersGiB = defaultMovieTiers()
	}
	if len(c.Sync.SeriesTiersGiB) == 0 {
		c.Sync.SeriesTiersGiB = defaultSeriesTiers()
	}
	exts := normalizeList(c.Sync.VideoExtensions, defaultVideoExtensions())
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			exts[i] = "." + ext
		}
	}
	c.Sync.VideoExtensions = exts
}

func (c *Config) normalizeRefresh() {
	if c.Refresh.StaleAfterDays <= 0 {
		c.Refresh.StaleAfterDays = defaultStaleAfterDays
	}
	if c.Refresh.MaxLinks <= 0 {
		c.Refresh.MaxLinks = defaultMaxLinks
	}
	if c.Refresh.CheckpointEvery <= 0 {
		c.Refresh.CheckpointEvery = defaultCheckpointEvery
	}
	if c.Refresh.IntervalHours < 0 {
		c.Refresh.IntervalHours = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeList lowercases, trims, and de-duplicates values, falling back when
// nothing usable remains.
func normalizeList(values []string, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	if len(out) == 0 && fallback != nil {
		return fallback
	}
	return out
}
