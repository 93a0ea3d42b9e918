package config

import "time"

type Config struct {
	GracefulDuration time.Duration
	DefaultTimeout   time.Duration
	Metrics          Metrics
	Logs             Logs
	DeadLetterQueue  S3
	Backend          Backend
	Push             Push
	Poll             Poll
	Aggregator       Aggregator
	Health           Health
	Insight          Insight
	Kafka            Kafka
	Valkey           Valkey
}

type Metrics struct {
	Port int
}

type Logs struct {
	Level   int
	Encoder EncoderType
}

type EncoderType string

const (
	EncoderTypeJson    EncoderType = "json"
	EncoderTypeConsole EncoderType = "console"
)

// Backend is the dashboard API every pull source reads from.
type Backend struct {
	URL     string
	Timeout time.Duration
	Creds   BackendCreds
}

type BackendCreds struct {
	Token string
}

func (c BackendCreds) String() string {
	if c.Token != "" {
		return "token set"
	}

	return "no token"
}

type Push struct {
	Enabled bool
	URL     string
	// SeedOnConnect fetches the full anomaly set once after every (re)connection.
	SeedOnConnect bool
	Reconnect     Reconnect
}

type Reconnect struct {
	Delay    time.Duration
	MaxDelay time.Duration
}

type Poll struct {
	Interval  time.Duration
	Timeout   time.Duration
	LogQuery  string
	LogSize   int
	Heartbeat bool
	Logs      bool
}

type Aggregator struct {
	QueueSize     int
	LogBufferSize int
	// LateAfter is the age after which a received log entry is counted as late.
	LateAfter time.Duration
}

type Health struct {
	WarningAfter time.Duration
	ErrorAfter   time.Duration
}

type Insight struct {
	TTL            time.Duration
	FetchTimeout   time.Duration
	FailureBackoff time.Duration
	IdleTimeout    time.Duration
	SweepInterval  time.Duration
}

type S3 struct {
	Bucket       string
	KeyPrefix    string
	BaseEndpoint string
	Region       string
	UsePathStyle bool
	Creds        AWSCreds
}

type AWSCreds struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCreds) String() string {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return "creds set"
	}

	return "no creds"
}

type Kafka struct {
	Enabled  bool
	Broker   KafkaBroker
	Consumer KafkaConsumer
}

type KafkaBroker struct {
	URLs    string
	Version string
	Creds   KafkaCreds
}

// KafkaCreds enables SASL/SCRAM when User is set.
type KafkaCreds struct {
	User      string
	Password  string
	Mechanism string
}

func (c KafkaCreds) String() string {
	if c.User != "" {
		return "scram creds set for " + c.User
	}

	return "no creds"
}

type KafkaConsumer struct {
	Topic string
	Group string
	// RetryDelay between two consumer group failures, 0 stops the stream on the first one.
	RetryDelay time.Duration
}

type Valkey struct {
	URL   string
	Creds ValkeyCreds
}

type ValkeyCreds struct {
	Password string
}

func (c ValkeyCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}
