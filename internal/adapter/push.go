package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

type ReconnectConfig struct {
	Delay    time.Duration
	MaxDelay time.Duration
}

// PushAdapter keeps one subscription to the anomaly stream open and emits every full
// anomaly set it receives. The last set stays in place while disconnected.
type PushAdapter struct {
	logger *logr.Logger

	stream repo.AnomalyStream
	seed   repo.AnomalyReader

	clock     clockwork.Clock
	reconnect ReconnectConfig

	sink            pipeline.Processing[entity.Update]
	errorProcessing pipeline.ErrorProcessing
}

func NewPushAdapter(stream repo.AnomalyStream, clock clockwork.Clock, reconnect ReconnectConfig, sink pipeline.Processing[entity.Update], errorProcessing pipeline.ErrorProcessing) *PushAdapter {
	return &PushAdapter{
		stream:          stream,
		clock:           clock,
		reconnect:       reconnect,
		sink:            sink,
		errorProcessing: errorProcessing,
	}
}

func (a *PushAdapter) WithLogger(logger logr.Logger) *PushAdapter {
	a.logger = &logger

	return a
}

// WithSeed fetches the full anomaly set once on every successful connection.
func (a *PushAdapter) WithSeed(reader repo.AnomalyReader) *PushAdapter {
	a.seed = reader

	return a
}

// Run returns once ctx is done.
func (a *PushAdapter) Run(ctx context.Context) error {
	a.logInfo(0, "Push adapter started")

	for {
		sub, err := a.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.logInfo(0, "Push adapter stopped")

				return nil
			}

			return fmt.Errorf("failed to subscribe: %w", err)
		}

		err = a.consume(ctx, sub)

		closeErr := sub.Close()
		if closeErr != nil {
			a.logInfo(2, "Failed to close subscription", "error", closeErr.Error())
		}

		if ctx.Err() != nil {
			a.logInfo(0, "Push adapter stopped")

			return nil
		}

		a.degrade(ctx, SourceAnomalyStream, fmt.Errorf("subscription lost: %w", err))

		select {
		case <-ctx.Done():
			return nil
		case <-a.clock.After(a.reconnect.Delay):
		}
	}
}

// connect retries with an exponential backoff until a subscription is open or ctx is done.
func (a *PushAdapter) connect(ctx context.Context) (repo.AnomalySubscription, error) {
	var ret repo.AnomalySubscription

	err := retry.Do(
		func() error {
			sub, err := a.stream.Subscribe(ctx)
			if err != nil {
				return err
			}

			ret = sub

			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(a.reconnect.Delay),
		retry.MaxDelay(a.reconnect.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			a.logInfo(1, "Reconnecting to anomaly stream", "attempt", attempt+1)

			a.degrade(ctx, SourceAnomalyStream, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	a.logInfo(0, "Connected to anomaly stream")

	a.seedSet(ctx)

	return ret, nil
}

func (a *PushAdapter) seedSet(ctx context.Context) {
	if a.seed == nil {
		return
	}

	events, err := fetchAnomalySet(ctx, a.seed)
	if err != nil {
		a.degrade(ctx, SourceAnomalies, err)

		return
	}

	a.emit(ctx, entity.AnomalySetReplaced{Header: a.header(SourceAnomalies), Events: events})
}

func (a *PushAdapter) consume(ctx context.Context, sub repo.AnomalySubscription) error {
	for {
		data, err := sub.Next(ctx)
		if err != nil {
			return err
		}

		events, ok, err := decodeStreamMessage(data)
		if err != nil {
			a.degrade(ctx, SourceAnomalyStream, &repo.DecodeError{Payload: data, Err: err})

			continue
		}

		if !ok {
			continue
		}

		a.emit(ctx, entity.AnomalySetReplaced{Header: a.header(SourceAnomalyStream), Events: events})
	}
}

type streamEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var errMissingData = errors.New("missing data")

// decodeStreamMessage reports false for messages which are not anomaly sets.
func decodeStreamMessage(data []byte) ([]entity.AnomalyEvent, bool, error) {
	envelope := streamEnvelope{}

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, false, err
	}

	if envelope.Type != repo.StreamMessageTypeAnomalies {
		return nil, false, nil
	}

	if len(envelope.Data) == 0 {
		return nil, false, errMissingData
	}

	records := []repo.AnomalyRecord{}

	err = json.Unmarshal(envelope.Data, &records)
	if err != nil {
		return nil, false, err
	}

	events, err := DecodeAnomalies(records)
	if err != nil {
		return nil, false, err
	}

	return events, true, nil
}

func (a *PushAdapter) emit(ctx context.Context, update entity.Update) {
	err := a.sink.Process(ctx, update)
	if err != nil && ctx.Err() == nil {
		a.logError(err, "Failed to emit update", "source", update.SourceName())
	}
}

func (a *PushAdapter) degrade(ctx context.Context, source string, err error) {
	if ctx.Err() != nil {
		return
	}

	pErr := classify(err, source)

	a.logInfo(1, "Source degraded", "source", source, "category", pErr.Category, "error", err.Error())

	err = a.errorProcessing.Process(ctx, pErr)
	if err != nil {
		a.logError(err, "Error pipeline failed", "source", source)
	}
}

func (a *PushAdapter) header(source string) entity.Header {
	return entity.Header{Source: source, ReceivedAt: a.clock.Now()}
}

func (a *PushAdapter) logInfo(level int, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.V(level).Info(msg, keysAndValues...)
}

func (a *PushAdapter) logError(err error, msg string, keysAndValues ...any) {
	if a.logger == nil {
		return
	}

	a.logger.Error(err, msg, keysAndValues...)
}
