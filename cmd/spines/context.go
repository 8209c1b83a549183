package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"spines/internal/config"
	"spines/internal/lock"
	"spines/internal/logging"
)

type commandContext struct {
	configFlag  *string
	envFileFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	stack *stack
	lock  *lock.Lock
}

func newCommandContext(configFlag, envFileFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		envFileFlag: envFileFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var envFile string
		if c.envFileFlag != nil {
			envFile = *c.envFileFlag
		}
		if err := config.LoadEnvFile(envFile); err != nil {
			c.configErr = err
			return
		}
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

// ensureLogger builds the process logger. Falls back to a no-op logger when
// the log file cannot be opened so read-only commands keep working.
func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// acquireLock takes the data-directory lock for a mutating command.
func (c *commandContext) acquireLock() error {
	if c.lock != nil {
		return nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	l, err := lock.Acquire(cfg.LockPath())
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return fmt.Errorf("%w; stop the daemon or wait for the running command to finish", err)
		}
		return err
	}
	c.lock = l
	return nil
}

func (c *commandContext) releaseLock() error {
	if c.lock == nil {
		return nil
	}
	err := c.lock.Release()
	c.lock = nil
	return err
}

// withStack runs fn against the wired components. Mutating commands hold the
// lock while fn runs.
func (c *commandContext) withStack(cmd *cobra.Command, mutating bool, fn func(*stack) error) error {
	if mutating {
		if err := c.acquireLock(); err != nil {
			return err
		}
		defer c.releaseLock()
	}
	if c.stack == nil {
		cfg, err := c.ensureConfig()
		if err != nil {
			return err
		}
		s, err := buildStack(cmd.Context(), cfg, c.ensureLogger())
		if err != nil {
			return err
		}
		c.stack = s
	}
	return fn(c.stack)
}

func (c *commandContext) close() error {
	var errs []error
	if c.stack != nil {
		errs = append(errs, c.stack.close())
		c.stack = nil
	}
	errs = append(errs, c.releaseLock())
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
