// Package amqprpc runs solves through a RabbitMQ request/reply queue
package amqprpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-optimizer/pkg/core/lpmodel"
	"github.com/jakechorley/shift-optimizer/pkg/core/optimizer"
	"github.com/jakechorley/shift-optimizer/pkg/solver"
)

const contentType = "application/json"

// Channel is the subset of *amqp.Channel used here
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Backend publishes solve requests to a queue and waits for the matching reply
type Backend struct {
	open   func() (Channel, error)
	queue  string
	logger *zap.Logger
}

// New creates a backend publishing to queue over conn
func New(conn *amqp.Connection, queue string, logger *zap.Logger) *Backend {
	return NewWithOpener(func() (Channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, queue, logger)
}

// NewWithOpener creates a backend that opens a fresh channel per solve
func NewWithOpener(open func() (Channel, error), queue string, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{open: open, queue: queue, logger: logger}
}

func (b *Backend) Name() string {
	return "amqp"
}

func (b *Backend) Solve(ctx context.Context, m *lpmodel.Model) (*lpmodel.Solution, error) {
	body, err := json.Marshal(solver.NewSolveRequest(m))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ch, err := b.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// Exclusive, auto-deleted reply queue named by the broker
	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	replies, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reply queue: %w", err)
	}

	correlationID := uuid.NewString()
	if err := ch.PublishWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:   contentType,
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Body:          body,
	}); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	b.logger.Debug("Published solve request",
		zap.String("queue", b.queue),
		zap.String("correlation_id", correlationID))

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg, ok := <-replies:
			if !ok {
				return nil, fmt.Errorf("reply queue closed before a response arrived")
			}
			if msg.CorrelationId != correlationID {
				b.logger.Warn("Ignoring reply for another request", zap.String("correlation_id", msg.CorrelationId))
				continue
			}
			var solution lpmodel.Solution
			if err := json.Unmarshal(msg.Body, &solution); err != nil {
				return nil, fmt.Errorf("failed to decode reply: %w", err)
			}
			if err := solver.CheckResponse(&solution); err != nil {
				return nil, err
			}
			return &solution, nil
		}
	}
}

// Serve consumes solve requests from queue and answers each with backend until
// ctx is done or the delivery channel closes. Pass an *optimizer.Engine as
// backend to bound each solve by the engine timeout.
func Serve(ctx context.Context, ch Channel, queue string, backend optimizer.SolverBackend, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Solves are CPU bound, take one at a time
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue: %w", err)
	}

	logger.Info("Waiting for solve requests", zap.String("queue", q.Name), zap.String("backend", backend.Name()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handle(ctx, ch, backend, msg, logger)
		}
	}
}

func handle(ctx context.Context, ch Channel, backend optimizer.SolverBackend, msg amqp.Delivery, logger *zap.Logger) {
	logger = logger.With(zap.String("correlation_id", msg.CorrelationId))

	if msg.ReplyTo == "" {
		logger.Warn("Dropping solve request without reply queue")
		_ = msg.Nack(false, false)
		return
	}

	var solution *lpmodel.Solution
	var req solver.SolveRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		logger.Error("Failed to decode solve request", zap.Error(err))
		solution = &lpmodel.Solution{Status: lpmodel.StatusError, Columns: map[string]lpmodel.Column{}}
	} else {
		solution, err = solver.Handle(ctx, backend, req, logger)
		if err != nil {
			logger.Error("Failed to handle solve request", zap.Error(err))
			solution = &lpmodel.Solution{Status: lpmodel.StatusError, Columns: map[string]lpmodel.Column{}}
		}
	}

	body, err := json.Marshal(solution)
	if err != nil {
		logger.Error("Failed to encode solution", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := ch.PublishWithContext(ctx, "", msg.ReplyTo, false, false, amqp.Publishing{
		ContentType:   contentType,
		CorrelationId: msg.CorrelationId,
		Body:          body,
	}); err != nil {
		logger.Error("Failed to publish reply", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.Error("Failed to ack request", zap.Error(err))
		return
	}
	logger.Info("Answered solve request", zap.String("status", solution.Status))
}
