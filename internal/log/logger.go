package log

import (
	"fmt"
	"io"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"

	"github.com/monx-observability/fleet-telemetry/internal/config"
)

const serviceName = "fleet-telemetry"

var logger = logr.Discard()

func Init(conf config.Logs) error {
	return InitWithOutput(conf, os.Stdout)
}

// InitWithOutput replaces the process logger. conf.Level is the logr verbosity: 0 logs
// info, 1 debug and anything above trace.
func InitWithOutput(conf config.Logs, out io.Writer) error {
	formatter, err := newFormatter(conf.Encoder)
	if err != nil {
		return err
	}

	impl := logrus.New()
	impl.SetOutput(out)
	impl.SetFormatter(formatter)
	impl.SetLevel(levelFor(conf.Level))

	logger = logrusr.New(
		impl.WithField("service", serviceName),
		logrusr.WithReportCaller(),
	)

	return nil
}

func newFormatter(encoder config.EncoderType) (logrus.Formatter, error) {
	switch encoder {
	case config.EncoderTypeConsole:
		return &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}, nil
	case config.EncoderTypeJson:
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unexpected encoder value %q, expecting %q or %q", encoder, config.EncoderTypeJson, config.EncoderTypeConsole)
	}
}

func levelFor(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.InfoLevel
	case verbosity == 1:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func Logger() logr.Logger {
	return logger
}

// Component returns the process logger scoped to one component.
func Component(name string) logr.Logger {
	return logger.WithName(name)
}
