package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"go.uber.org/automaxprocs/maxprocs"
)

// Share of the cgroup memory limit given to the go runtime.
const memLimitRatio = 0.9

// SetupSignalHandler cancels the returned context on the first SIGTERM or interrupt. A
// second signal exits the process immediately.
func SetupSignalHandler(ctx context.Context, logger logr.Logger) context.Context {
	ret, cancel := context.WithCancel(ctx)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-signals
		logger.V(1).Info("Stopping engine", "signal", sig.String())
		cancel()

		sig = <-signals
		logger.Info("Second stop signal received, exiting", "signal", sig.String())
		os.Exit(1)
	}()

	return ret
}

// TuneRuntime aligns GOMAXPROCS and GOMEMLIMIT with the container limits.
func TuneRuntime(logger logr.Logger) error {
	// maxprocs logs printf style, logr expects key/value pairs.
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.V(1).Info(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		return fmt.Errorf("failed to set max procs: %w", err)
	}

	limit, err := memlimit.SetGoMemLimit(memLimitRatio)
	if err != nil {
		if errors.Is(err, memlimit.ErrNoLimit) {
			logger.V(1).Info("No memory limit found, GOMEMLIMIT left untouched")

			return nil
		}

		return fmt.Errorf("failed to set go mem limit: %w", err)
	}

	logger.V(1).Info("Go memlimit configured", "ratio", memLimitRatio, "limit", humanize.IBytes(uint64(limit)))

	return nil
}

// CloseFunc releases a resource created by a factory.
type CloseFunc func(context.Context) error

// CloseAll calls every close func in reverse order and returns the first error.
func CloseAll(ctx context.Context, closers ...CloseFunc) error {
	var ret error

	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}

		err := closers[i](ctx)
		if err != nil && ret == nil {
			ret = err
		}
	}

	return ret
}
