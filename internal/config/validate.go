package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateWebshare(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'mycinema config init')", defaultPath)
	}
	if !strings.HasPrefix(c.TMDB.BaseURL, "http://") && !strings.HasPrefix(c.TMDB.BaseURL, "https://") {
		return fmt.Errorf("tmdb.base_url must be an http(s) url, got %q", c.TMDB.BaseURL)
	}
	return nil
}

func (c *Config) validateWebshare() error {
	if (c.Webshare.Username == "") != (c.Webshare.Password == "") {
		return errors.New("webshare.username and webshare.password must be set together")
	}
	if !strings.HasPrefix(c.Webshare.BaseURL, "http://") && !strings.HasPrefix(c.Webshare.BaseURL, "https://") {
		return fmt.Errorf("webshare.base_url must be an http(s) url, got %q", c.Webshare.BaseURL)
	}
	return nil
}

// HasWebshareCredentials reports whether file search can authenticate.
func (c *Config) HasWebshareCredentials() bool {
	return c.Webshare.Username != "" && c.Webshare.Password != ""
}

func (c *Config) validateSync() error {
	if err := validateTiers("sync.movie_tiers_gib", c.Sync.MovieTiersGiB); err != nil {
		return err
	}
	if err := validateTiers("sync.series_tiers_gib", c.Sync.SeriesTiersGiB); err != nil {
		return err
	}
	return nil
}

// validateTiers requires strictly descending positive ceilings.
func validateTiers(name string, tiers []int) error {
	for i, tier := range tiers {
		if tier <= 0 {
			return fmt.Errorf("%s must contain positive values, got %d", name, tier)
		}
		if i > 0 && tier >= tiers[i-1] {
			return fmt.Errorf("%s must be strictly descending", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
