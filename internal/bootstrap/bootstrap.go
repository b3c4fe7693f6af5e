// Package bootstrap wires the outbound adapters into the application
// service. The CLI and the MCP server share it.
package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/reforge/reforge/internal/adapters/outbound/backup"
	"github.com/reforge/reforge/internal/adapters/outbound/cache"
	"github.com/reforge/reforge/internal/adapters/outbound/config"
	"github.com/reforge/reforge/internal/adapters/outbound/detector"
	"github.com/reforge/reforge/internal/adapters/outbound/gitinfo"
	"github.com/reforge/reforge/internal/adapters/outbound/history"
	"github.com/reforge/reforge/internal/adapters/outbound/scanner"
	"github.com/reforge/reforge/internal/adapters/outbound/validator"
	"github.com/reforge/reforge/internal/adapters/outbound/workspace"
	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/domain/strategy"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// NewRefactorService builds a RefactorService backed by the file system,
// the git repository and an LRU cache of type-checked units.
func NewRefactorService(logger *zap.Logger) (*application.RefactorService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	units, err := cache.New(cache.DefaultSize, syntax.NewChecker())
	if err != nil {
		return nil, fmt.Errorf("creating unit cache: %w", err)
	}
	git := gitinfo.New()
	deps := application.RefactorDeps{
		Snapshots: workspace.New(scanner.New(), logger),
		Loader:    units,
		Feed:      detector.New(units),
		Validator: validator.New(units),
		Backups:   backup.New(git),
		History:   history.New(),
		Git:       git,
		Config:    config.New(),
		Registry:  strategy.DefaultRegistry(logger),
	}
	return application.NewRefactorService(deps, logger), nil
}

// NewLogger returns a development logger when verbose is set and a no-op
// logger otherwise.
func NewLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
