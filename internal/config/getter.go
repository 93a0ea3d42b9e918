package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const prefix = "FLEETTELEMETRY"

var (
	errInvalidTimeout  = errors.New("fetch timeout must be shorter than the poll interval")
	errInvalidHealth   = errors.New("health warning threshold must be lower than the error threshold")
	errNonPositive     = errors.New("value must be positive")
	errMissingURL      = errors.New("url is mandatory")
	errUnknownEncoding = errors.New("unknown log encoder")
)

var conf Config

// Parse reads the configuration file given as parameter.
func Parse(confFile string) (*Config, error) {
	v := viper.New()

	setDefault(v)

	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match

	if len(confFile) > 0 {
		v.SetConfigFile(confFile)

		err := v.ReadInConfig()
		if err != nil {
			return &conf, fmt.Errorf("failed to read config file %v: %w", confFile, err)
		}
	}

	conf = Config{}

	err := v.Unmarshal(&conf)
	if err != nil {
		return &conf, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	err = conf.Validate()
	if err != nil {
		return &conf, fmt.Errorf("invalid config: %w", err)
	}

	return &conf, nil
}

// KafkaConfig returns kafka configuration.
// Passwords and sensitive information should be hidden with by implementing Stringer.
func KafkaConfig() Kafka {
	return conf.Kafka
}

// Validate checks the constraints between values.
func (c Config) Validate() error {
	if c.Logs.Encoder != EncoderTypeConsole && c.Logs.Encoder != EncoderTypeJson {
		return fmt.Errorf("%w: %q", errUnknownEncoding, c.Logs.Encoder)
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend: %w", errMissingURL)
	}

	if c.Push.Enabled && c.Push.URL == "" {
		return fmt.Errorf("push: %w", errMissingURL)
	}

	if c.Kafka.Enabled && c.Kafka.Broker.URLs == "" {
		return fmt.Errorf("kafka: %w", errMissingURL)
	}

	if c.Poll.Interval <= 0 || c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll interval and timeout: %w", errNonPositive)
	}

	if c.Poll.Timeout >= c.Poll.Interval {
		return fmt.Errorf("%w: timeout=%v interval=%v", errInvalidTimeout, c.Poll.Timeout, c.Poll.Interval)
	}

	if c.Health.WarningAfter <= 0 || c.Health.WarningAfter >= c.Health.ErrorAfter {
		return fmt.Errorf("%w: warning=%v error=%v", errInvalidHealth, c.Health.WarningAfter, c.Health.ErrorAfter)
	}

	if c.Aggregator.LogBufferSize <= 0 || c.Aggregator.QueueSize <= 0 {
		return fmt.Errorf("aggregator sizes: %w", errNonPositive)
	}

	if c.Insight.TTL <= 0 || c.Insight.FetchTimeout <= 0 || c.Insight.IdleTimeout <= 0 || c.Insight.SweepInterval <= 0 {
		return fmt.Errorf("insight durations: %w", errNonPositive)
	}

	return nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("logs.level", 4)
	v.SetDefault("logs.encoder", EncoderTypeConsole)
	v.SetDefault("defaultTimeout", "8s")
	v.SetDefault("gracefulDuration", "10s")
	v.SetDefault("metrics.port", 7777)

	v.SetDefault("backend.url", "http://localhost:8080")
	v.SetDefault("backend.timeout", "8s")
	v.SetDefault("backend.creds.token", "")

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.url", "ws://localhost:8080/ws")
	v.SetDefault("push.seedOnConnect", true)
	v.SetDefault("push.reconnect.delay", "1s")
	v.SetDefault("push.reconnect.maxDelay", "30s")

	v.SetDefault("poll.interval", "10s")
	v.SetDefault("poll.timeout", "8s")
	v.SetDefault("poll.logQuery", "*")
	v.SetDefault("poll.logSize", 100)
	v.SetDefault("poll.heartbeat", true)
	v.SetDefault("poll.logs", true)

	v.SetDefault("aggregator.queueSize", 256)
	v.SetDefault("aggregator.logBufferSize", 100)
	v.SetDefault("aggregator.lateAfter", "5m")

	v.SetDefault("health.warningAfter", "120s")
	v.SetDefault("health.errorAfter", "300s")

	v.SetDefault("insight.ttl", "30s")
	v.SetDefault("insight.fetchTimeout", "20s")
	v.SetDefault("insight.failureBackoff", "30s")
	v.SetDefault("insight.idleTimeout", "10m")
	v.SetDefault("insight.sweepInterval", "1m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.broker.version", "3.6.0")
	v.SetDefault("kafka.broker.creds.mechanism", "SCRAM-SHA-512")
	v.SetDefault("kafka.consumer.topic", "logs")
	v.SetDefault("kafka.consumer.group", "fleet-telemetry")
	v.SetDefault("kafka.consumer.retryDelay", "5s")
	v.SetDefault("kafka.broker.urls", "")
	v.SetDefault("kafka.broker.creds.user", "")
	v.SetDefault("kafka.broker.creds.password", "")

	// Optional stores, disabled while empty
	v.SetDefault("valkey.url", "")
	v.SetDefault("valkey.creds.password", "")
	v.SetDefault("deadLetterQueue.bucket", "")
	v.SetDefault("deadLetterQueue.keyPrefix", "dlq")
	v.SetDefault("deadLetterQueue.baseEndpoint", "")
	v.SetDefault("deadLetterQueue.region", "us-east-1")
	v.SetDefault("deadLetterQueue.usePathStyle", false)
	v.SetDefault("deadLetterQueue.creds.accessKeyID", "")
	v.SetDefault("deadLetterQueue.creds.secretAccessKey", "")
}
