package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/internal/config"
	"github.com/jakechorley/shift-optimizer/pkg/clients/legacyclient"
	"github.com/jakechorley/shift-optimizer/pkg/core/intensity"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Engine   *optimizer.Engine
	Explorer *intensity.Explorer
	Legacy   *legacyclient.Client // nil unless legacy.url is configured
	Database db.Database
	Logger   *zap.Logger
	Ctx      context.Context

	closers []func()
}

// OnClose registers fn to run when the app shuts down. Closers run in reverse order.
func (a *AppContext) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases every registered resource
func (a *AppContext) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
