package factory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/monx-observability/fleet-telemetry/internal/adapter"
	"github.com/monx-observability/fleet-telemetry/internal/aggregator"
	"github.com/monx-observability/fleet-telemetry/internal/api"
	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/config"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/backend"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/insightcache"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/processingerror"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/stream"
	"github.com/monx-observability/fleet-telemetry/internal/engine"
	"github.com/monx-observability/fleet-telemetry/internal/health"
	"github.com/monx-observability/fleet-telemetry/internal/insight"
	"github.com/monx-observability/fleet-telemetry/internal/log"
	"github.com/monx-observability/fleet-telemetry/internal/processing"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

/*
 * CreateEngine wires every component as follow:
 *
 *	poll / push / kafka adapters --(updates)--> aggregator --> decorated merge --> snapshot
 *	          |                                     ^
 *	          +--(errors)--> source errors ---------+ (degraded forwarder)
 *	insight manager --(refreshed / evicted)---------+
 *
 * The returned close func releases the clients created on the way.
 */
func CreateEngine(ctx context.Context, conf config.Config, registry *prometheus.Registry, clock clockwork.Clock) (*engine.Engine, common.CloseFunc, error) {
	var closers []common.CloseFunc

	closeAll := func(ctx context.Context) error {
		return common.CloseAll(ctx, closers...)
	}

	fail := func(err error) (*engine.Engine, common.CloseFunc, error) {
		_ = closeAll(ctx)

		return nil, nil, err
	}

	// Dead letter queue
	writer, err := createProcessingErrorWriter(ctx, conf.DeadLetterQueue, clock)
	if err != nil {
		return fail(err)
	}

	// Aggregator
	main := processing.NewMain(clock, conf.Aggregator.LogBufferSize)

	merge, err := DecorateMerge(main, registry, clock, conf.Aggregator.LateAfter)
	if err != nil {
		return fail(err)
	}

	mergeErrors, err := DecorateErrorProcessing(writer, registry, "merge_error")
	if err != nil {
		return fail(err)
	}

	agg, err := aggregator.New(merge, main, mergeErrors, conf.Aggregator.QueueSize).
		WithLogger(log.Component("aggregator")).
		WithMetrics(registry, pipeline.MetricsConfig{Namespace: "aggregator"})
	if err != nil {
		return fail(fmt.Errorf("failed to create aggregator: %w", err))
	}

	// Errors of every source end up in the snapshot diagnostics
	sourceErrors, err := DecorateErrorProcessing(writer, registry, "source_error", aggregator.NewDegradedForwarder(agg, clock))
	if err != nil {
		return fail(err)
	}

	// Backend
	client := backend.NewClient(conf.Backend.URL, conf.Backend.Creds.Token, conf.Backend.Timeout)

	// Insights
	insightReader, closeValkey, err := createInsightReader(ctx, conf, clock, client)
	if err != nil {
		return fail(err)
	}

	closers = append(closers, closeValkey)

	insights, err := insight.NewManager(insightReader, clock, insight.Config{
		TTL:            conf.Insight.TTL,
		FetchTimeout:   conf.Insight.FetchTimeout,
		FailureBackoff: conf.Insight.FailureBackoff,
		IdleTimeout:    conf.Insight.IdleTimeout,
		SweepInterval:  conf.Insight.SweepInterval,
	}).
		WithLogger(log.Component("insight")).
		WithSink(agg).
		WithMetrics(registry, pipeline.MetricsConfig{Namespace: "insight"})
	if err != nil {
		return fail(fmt.Errorf("failed to create insight manager: %w", err))
	}

	thresholds := health.Thresholds{WarningAfter: conf.Health.WarningAfter, ErrorAfter: conf.Health.ErrorAfter}

	ret := engine.New(clock, thresholds, agg, insights).WithLogger(log.Component("engine"))

	// Sources
	poll, err := adapter.NewPollAdapter(clock, conf.Poll.Interval, conf.Poll.Timeout, agg, sourceErrors).
		WithLogger(log.Component("poll")).
		WithMetrics(registry, pipeline.MetricsConfig{Namespace: "poll"})
	if err != nil {
		return fail(fmt.Errorf("failed to create poll adapter: %w", err))
	}

	if conf.Poll.Heartbeat {
		poll = poll.WithHeartbeats(client)
	}

	if conf.Poll.Logs {
		poll = poll.WithLogs(client, repo.LogQuery{Query: conf.Poll.LogQuery, Size: conf.Poll.LogSize})
	}

	if conf.Push.Enabled {
		push := adapter.NewPushAdapter(
			stream.NewWebsocketStream(conf.Push.URL, conf.Backend.Creds.Token, stream.DefaultReadTimeout),
			clock,
			adapter.ReconnectConfig{Delay: conf.Push.Reconnect.Delay, MaxDelay: conf.Push.Reconnect.MaxDelay},
			agg,
			sourceErrors,
		).WithLogger(log.Component("push"))

		if conf.Push.SeedOnConnect {
			push = push.WithSeed(client)
		}

		ret = ret.WithTask("push", push.Run)
	} else {
		// Without a stream the anomaly set is cached-pulled with the other sources
		poll = poll.WithAnomalies(client)
	}

	ret = ret.WithTask("poll", poll.Run)

	if conf.Kafka.Enabled {
		runner, err := createLogStreamRunner(conf.Kafka, registry, clock, agg, sourceErrors)
		if err != nil {
			return fail(err)
		}

		ret = ret.WithTask("kafka", runner.Start)
	}

	// Read api and metrics
	handler := api.NewHandler(ret, clock, thresholds).WithLogger(log.Component("api"))
	server := CreateHTTPServer(conf.Metrics, registry, handler)

	ret = ret.WithTask("http", serveHTTP(server, conf.GracefulDuration))

	return ret, closeAll, nil
}

func createProcessingErrorWriter(ctx context.Context, conf config.S3, clock clockwork.Clock) (repo.ProcessingErrorWriter, error) {
	if conf.Bucket == "" {
		log.Logger().V(1).Info("No dead letter bucket configured, processing errors are only logged and counted")

		return processingerror.Discard{}, nil
	}

	s3Client, err := CreateS3Client(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return processingerror.NewS3Writer(s3Client, clock, conf.Bucket, conf.KeyPrefix), nil
}

func createInsightReader(ctx context.Context, conf config.Config, clock clockwork.Clock, client *backend.Client) (repo.InsightReader, common.CloseFunc, error) {
	if conf.Valkey.URL == "" {
		return client, nil, nil
	}

	valkeyClient, closeFunc, err := CreateValkeyClient(ctx, conf.Valkey)
	if err != nil {
		return nil, nil, err
	}

	store := insightcache.NewValkeyStore(valkeyClient, clock, conf.Insight.TTL, client).
		WithLogger(log.Component("insightcache"))

	return store, closeFunc, nil
}

func createLogStreamRunner(conf config.Kafka, registry prometheus.Registerer, clock clockwork.Clock, sink pipeline.Processing[entity.Update], errorProcessing pipeline.ErrorProcessing) (pipeline.Runner[repo.LogRecord], error) {
	consumer, err := CreateKafkaConsumer(conf)
	if err != nil {
		return pipeline.Runner[repo.LogRecord]{}, err
	}

	var logs pipeline.Processing[repo.LogRecord] = adapter.NewLogStreamProcessing(clock, sink)

	logs, err = pipeline.NewDurationMetricsDecoratorProcessing(logs, registry, clock, pipeline.MetricsConfig{Namespace: "log_stream"})
	if err != nil {
		_ = consumer.Close()

		return pipeline.Runner[repo.LogRecord]{}, fmt.Errorf("failed to create duration metrics processor: %w", err)
	}

	logs = pipeline.NewPanicHandlerProcessing(logs)

	ret := pipeline.NewRunner(consumer, []string{conf.Consumer.Topic}, logs, errorProcessing).
		WithSource(adapter.SourceLogStream).
		WithRetryDelay(conf.Consumer.RetryDelay).
		WithLogger(log.Component("kafka"))

	return ret, nil
}

// serveHTTP runs server until ctx is done, then shuts it down within gracefulDuration.
func serveHTTP(server *http.Server, gracefulDuration time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		errCh := make(chan error, 1)

		go func() {
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("http server failed: %w", err)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gracefulDuration)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}

		err = <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}

		return nil
	}
}
