package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mycinema/internal/catalog"
	"mycinema/internal/config"
	"mycinema/internal/logging"
	"mycinema/internal/metrics"
	"mycinema/internal/runner"
)

type commandContext struct {
	configFlag  *string
	outputFlag  *string
	verboseFlag *bool
	jsonFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, outputFlag *string, verboseFlag, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		outputFlag:  outputFlag,
		verboseFlag: verboseFlag,
		jsonFlag:    jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger builds the CLI logger: the log file always, stderr with --verbose.
// Stdout stays reserved for command output.
func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{filepath.Join(cfg.Paths.LogDir, "mycinema.log")}
	if c.verboseFlag != nil && *c.verboseFlag {
		outputs = append(outputs, "stderr")
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// openStore opens the catalog for commands that only read or edit it.
func (c *commandContext) openStore() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return store, nil
}

// withRunner opens the catalog, builds a runner and closes the store after fn.
func (c *commandContext) withRunner(fn func(*runner.Runner) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	r, err := runner.New(cfg, store, runner.Options{Logger: logger, Metrics: metrics.New(nil)})
	if err != nil {
		return err
	}
	return fn(r)
}

func (c *commandContext) outputMode() string {
	if c.jsonFlag != nil && *c.jsonFlag {
		return outputJSON
	}
	if c.outputFlag == nil {
		return outputAuto
	}
	return *c.outputFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
