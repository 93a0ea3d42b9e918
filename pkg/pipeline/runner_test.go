package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// fakeConsumerGroup returns the queued errors from Consume, then blocks until ctx is done.
type fakeConsumerGroup struct {
	mu       sync.Mutex
	failures []error
	calls    int
	closed   bool

	errs chan error
}

func newFakeConsumerGroup(failures ...error) *fakeConsumerGroup {
	return &fakeConsumerGroup{failures: failures, errs: make(chan error)}
}

func (f *fakeConsumerGroup) Consume(ctx context.Context, _ []string, _ sarama.ConsumerGroupHandler) error {
	f.mu.Lock()
	f.calls++

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		f.mu.Unlock()

		return err
	}
	f.mu.Unlock()

	<-ctx.Done()

	return nil
}

func (f *fakeConsumerGroup) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func (f *fakeConsumerGroup) Errors() <-chan error { return f.errs }

func (f *fakeConsumerGroup) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.errs)
	}

	return nil
}

func (f *fakeConsumerGroup) Pause(map[string][]int32)  {}
func (f *fakeConsumerGroup) Resume(map[string][]int32) {}
func (f *fakeConsumerGroup) PauseAll()                 {}
func (f *fakeConsumerGroup) ResumeAll()                {}

var _ = Describe("Testing Runner", func() {
	discard := pipeline.ProcessingFunc[pipeline.ErrProcessingError](func(context.Context, pipeline.ErrProcessingError) error {
		return nil
	})
	noop := pipeline.ProcessingFunc[entity.Update](func(context.Context, entity.Update) error {
		return nil
	})

	When("the consumer fails without a retry delay", func() {
		It("should stop with the error", func(ctx SpecContext) {
			group := newFakeConsumerGroup(errUnreachable)

			err := pipeline.NewRunner[entity.Update](group, []string{"logs"}, noop, discard).Start(ctx)
			Expect(err).Should(MatchError(errUnreachable))
			Expect(group.Calls()).To(Equal(1))
		})
	})

	When("the consumer fails with a retry delay", func() {
		It("should keep consuming until the context is cancelled", func(ctx SpecContext) {
			group := newFakeConsumerGroup(errUnreachable, errUnreachable)
			runner := pipeline.NewRunner[entity.Update](group, []string{"logs"}, noop, discard).WithRetryDelay(time.Millisecond)

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)

			go func() {
				done <- runner.Start(runCtx)
			}()

			Eventually(group.Calls).Should(Equal(3))
			cancel()

			var err error
			Eventually(done).Should(Receive(&err))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	When("the consumer group has been closed", func() {
		It("should stop even with a retry delay", func(ctx SpecContext) {
			group := newFakeConsumerGroup(sarama.ErrClosedConsumerGroup)

			err := pipeline.NewRunner[entity.Update](group, []string{"logs"}, noop, discard).WithRetryDelay(time.Millisecond).Start(ctx)
			Expect(err).Should(MatchError(sarama.ErrClosedConsumerGroup))
		})
	})
})
