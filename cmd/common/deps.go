// Package common provides shared dependency construction for the CLI
// commands.
package common

import (
	"fmt"

	"github.com/mgh3326/rent-radar/internal/config"
	"github.com/mgh3326/rent-radar/internal/logger"
)

var (
	// CfgFile is the config file path, set by the root command flag.
	CfgFile string

	// Debug enables debug mode for all commands.
	Debug bool
)

// Deps holds the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Logger
}

// NewCommandDeps loads configuration and constructs the logger.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.Load(CfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if Debug {
		cfg.Logging.Level = "debug"
		cfg.Server.Debug = true
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}
