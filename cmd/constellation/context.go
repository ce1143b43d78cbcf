package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/constellation/internal/config"
	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/logger"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
	log        *logger.Logger
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

// ensureConfig loads the configuration once and installs the process logger
// it describes.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logCfg := cfg.LoggerConfig()
		if c.verbose != nil && *c.verbose {
			logCfg.Level = logger.DEBUG
		}
		c.log = logger.Configure(logCfg)
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) appLogger() *logger.Logger {
	if c.log == nil {
		return logger.GetLogger()
	}
	return c.log
}

// withService opens the configured index for the duration of fn.
func (c *commandContext) withService(fn func(constellation.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	svc, err := constellation.NewService(append(cfg.ServiceOptions(), constellation.WithLogger(c.appLogger()))...)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
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
