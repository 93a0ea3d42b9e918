package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
)

// Runner drives a kafka consumer group through a JSONHandler until the context is done.
type Runner[Payload any] struct {
	consumer sarama.ConsumerGroup
	topics   []string

	handler    JSONHandler[Payload]
	retryDelay time.Duration

	logger *logr.Logger
}

func NewRunner[Payload any](consumer sarama.ConsumerGroup, topics []string, processing Processing[Payload], errorProcessing ErrorProcessing) Runner[Payload] {
	handler := NewJSONHandler(processing, errorProcessing)

	return Runner[Payload]{
		consumer: consumer,
		topics:   topics,
		handler:  handler,
	}
}

func (r Runner[Payload]) WithSource(source string) Runner[Payload] {
	r.handler = r.handler.WithSource(source)

	return r
}

func (r Runner[Payload]) WithLogger(logger logr.Logger) Runner[Payload] {
	r.logger = &logger
	r.handler = r.handler.WithLogger(logger)

	return r
}

// WithRetryDelay makes the runner keep consuming after a consumer failure, waiting delay
// between attempts. By default a failure stops the runner.
func (r Runner[Payload]) WithRetryDelay(delay time.Duration) Runner[Payload] {
	r.retryDelay = delay

	return r
}

// Start consumes until ctx is cancelled. The consumer group is closed on return.
func (r Runner[Payload]) Start(ctx context.Context) error {
	defer func() {
		err := r.consumer.Close()
		if err != nil {
			r.logError(err, "Failed to close consumer group")
		}
	}()

	go func() {
		for err := range r.consumer.Errors() {
			r.logError(err, "Consumer group error", "topics", r.topics)
		}
	}()

	for {
		err := r.consumer.Consume(ctx, r.topics, r.handler)

		// Rebalance, termination signal or shutdown: stop looping
		if ctx.Err() != nil {
			r.logInfo(0, "Stop consuming", "topics", r.topics)

			return ctx.Err()
		}

		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return fmt.Errorf("consumer group closed: %w", err)
		}

		if err == nil {
			continue
		}

		if r.retryDelay <= 0 {
			r.logError(err, "Consumer failed")

			return fmt.Errorf("consumer failed: %w", err)
		}

		r.logError(err, "Consumer failed, retrying", "delay", r.retryDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
}

func (r Runner[Payload]) logInfo(level int, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.V(level).Info(msg, keysAndValues...)
}

func (r Runner[Payload]) logError(err error, msg string, keysAndValues ...any) {
	if r.logger == nil {
		return
	}

	r.logger.Error(err, msg, keysAndValues...)
}
