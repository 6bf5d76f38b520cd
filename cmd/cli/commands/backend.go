package commands

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/internal/config"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/solver/amqprpc"
	"github.com/jakechorley/shift-optimizer/pkg/solver/cbc"
	"github.com/jakechorley/shift-optimizer/pkg/solver/glpk"
	"github.com/jakechorley/shift-optimizer/pkg/solver/remote"
)

// NewBackend builds the solver backend named by cfg.Backend. The returned
// close func is never nil.
func NewBackend(cfg config.SolverConfig, logger *zap.Logger) (optimizer.SolverBackend, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "glpk":
		return glpk.New(logger), noop, nil
	case "cbc":
		return cbc.New(cfg.CBCPath, logger), noop, nil
	case "remote":
		return remote.New(cfg.RemoteURL, nil, logger), noop, nil
	case "amqp":
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to broker: %w", err)
		}
		closeConn := func() {
			if err := conn.Close(); err != nil {
				logger.Warn("Failed to close broker connection", zap.Error(err))
			}
		}
		return amqprpc.New(conn, cfg.Queue, logger), closeConn, nil
	default:
		return nil, noop, fmt.Errorf("unknown solver backend %q", cfg.Backend)
	}
}

// newLocalBackend builds a backend that solves in this process
func newLocalBackend(name string, cfg config.SolverConfig, logger *zap.Logger) (optimizer.SolverBackend, error) {
	switch name {
	case "glpk":
		return glpk.New(logger), nil
	case "cbc":
		return cbc.New(cfg.CBCPath, logger), nil
	default:
		return nil, fmt.Errorf("backend must be glpk or cbc, got %q", name)
	}
}
