package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/solver/amqprpc"
)

// SolveWorkerCmd creates the solveWorker command
func SolveWorkerCmd(app *AppContext) *cobra.Command {
	var backendName string

	cmd := &cobra.Command{
		Use:   "solveWorker",
		Short: "Answer solve requests from the broker queue with a local solver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Cfg.Solver
			if cfg.AMQPURL == "" {
				return fmt.Errorf("solver.amqpURL must be configured")
			}

			local, err := newLocalBackend(backendName, cfg, app.Logger)
			if err != nil {
				return err
			}
			backend := optimizer.NewEngine(local, cfg.Timeout, app.Logger)

			conn, err := amqp.Dial(cfg.AMQPURL)
			if err != nil {
				return fmt.Errorf("failed to connect to broker: %w", err)
			}
			defer conn.Close()

			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("failed to open channel: %w", err)
			}
			defer ch.Close()

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Logger.Info("solveWorker command",
				zap.String("queue", cfg.Queue),
				zap.String("backend", backend.Name()))

			return amqprpc.Serve(ctx, ch, cfg.Queue, backend, app.Logger)
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "glpk", "Local solver to use (glpk or cbc)")

	return cmd
}
