package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/api"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the optimizer, planner and intensity explorer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := api.NewHandler(app.Engine, app.Explorer, app.Logger)
			handler.RegisterRoutes()

			app.Logger.Info("serve command",
				zap.String("addr", app.Cfg.Server.Addr),
				zap.String("backend", app.Cfg.Solver.Backend))

			return api.NewServer(app.Cfg.Server, handler.Mux, app.Logger).Run(ctx, nil)
		},
	}
}
