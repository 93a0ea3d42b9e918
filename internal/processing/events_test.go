package processing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/internal/processing"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

func TestProcessing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Processing test suite")
}

var (
	t0 = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	header = entity.Header{Source: "test", ReceivedAt: t0}
)

func heartbeats(hbs ...entity.Heartbeat) entity.HeartbeatsRefreshed {
	return entity.HeartbeatsRefreshed{Header: header, Heartbeats: hbs}
}

func logs(entries ...entity.LogEntry) entity.LogsRefreshed {
	return entity.LogsRefreshed{Header: header, Entries: entries}
}

func logAt(id entity.Identity, offset time.Duration, msg string) entity.LogEntry {
	return entity.LogEntry{Identity: id, Timestamp: t0.Add(offset), Message: msg, Level: "INFO"}
}

var _ = Describe("Main", func() {
	var (
		ctx   context.Context
		clock clockwork.FakeClock
		main  *processing.Main
	)

	BeforeEach(func() {
		ctx = context.TODO()
		clock = clockwork.NewFakeClockAt(t0)
		main = processing.NewMain(clock, 3)
	})

	It("should start from an empty snapshot at version 0", func() {
		snap := main.Snapshot()

		Expect(snap.Version).To(BeZero())
		Expect(snap.Heartbeats).To(BeEmpty())
		Expect(snap.Anomalies).To(BeEmpty())
		Expect(snap.Identities()).To(BeEmpty())
	})

	It("should increase the version by one per update", func() {
		for i := 1; i <= 3; i++ {
			Expect(main.Process(ctx, heartbeats())).To(Succeed())
			Expect(main.Snapshot().Version).To(BeNumerically("==", i))
		}
	})

	It("should reject unknown updates without publishing", func() {
		err := main.Process(ctx, nil)
		Expect(err).To(HaveOccurred())

		var processingErr pipeline.ErrProcessingError
		Expect(errors.As(err, &processingErr)).To(BeTrue())
		Expect(processingErr.Category).To(Equal("unknown_update"))
		Expect(main.Snapshot().Version).To(BeZero())
	})

	It("should not alter a snapshot already handed out", func() {
		Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: "a", LastSeen: t0}))).To(Succeed())
		Expect(main.Process(ctx, logs(logAt("a", 0, "first")))).To(Succeed())

		before := main.Snapshot()

		Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: "b", LastSeen: t0}))).To(Succeed())
		Expect(main.Process(ctx, logs(logAt("a", time.Second, "second")))).To(Succeed())
		Expect(main.Process(ctx, entity.AnomalySetReplaced{Header: header})).To(Succeed())

		Expect(before.Heartbeats).To(HaveLen(1))
		Expect(before.Logs["a"]).To(HaveLen(1))
		Expect(main.Snapshot().Heartbeats).To(HaveLen(2))
		Expect(main.Snapshot().Logs["a"]).To(HaveLen(2))
	})

	When("heartbeats are refreshed", func() {
		It("should keep agents missing from the refreshed set", func() {
			Expect(main.Process(ctx, heartbeats(
				entity.Heartbeat{Identity: "a", LastSeen: t0},
				entity.Heartbeat{Identity: "b", LastSeen: t0},
			))).To(Succeed())

			Expect(main.Process(ctx, heartbeats(
				entity.Heartbeat{Identity: "a", LastSeen: t0.Add(time.Minute)},
			))).To(Succeed())

			snap := main.Snapshot()
			Expect(snap.Heartbeats).To(HaveLen(2))
			Expect(snap.Heartbeats["a"].LastSeen).To(Equal(t0.Add(time.Minute)))
			Expect(snap.Heartbeats["b"].LastSeen).To(Equal(t0))
		})

		It("should discard heartbeats older than the stored one", func() {
			Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: "a", LastSeen: t0}))).To(Succeed())
			Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: "a", LastSeen: t0.Add(-time.Minute)}))).To(Succeed())

			Expect(main.Snapshot().Heartbeats["a"].LastSeen).To(Equal(t0))
		})

		It("should ignore unassigned heartbeats", func() {
			Expect(main.Process(ctx, heartbeats(entity.Heartbeat{LastSeen: t0}))).To(Succeed())

			Expect(main.Snapshot().Heartbeats).To(BeEmpty())
		})
	})

	When("the anomaly set is replaced", func() {
		It("should correlate raw events", func() {
			Expect(main.Process(ctx, entity.AnomalySetReplaced{Header: header, Events: []entity.AnomalyEvent{
				{Raw: map[string]interface{}{"event": map[string]interface{}{"source": "checkout"}}, Score: 0.9},
				{Raw: map[string]interface{}{"agent_id": "billing"}},
				{Raw: map[string]interface{}{"score": 0.1}},
			}})).To(Succeed())

			snap := main.Snapshot()
			Expect(snap.Anomalies).To(HaveLen(3))
			Expect(snap.Anomalies[0].Identity).To(Equal(entity.Identity("checkout")))
			Expect(snap.Anomalies[1].Identity).To(Equal(entity.Identity("billing")))
			Expect(snap.Anomalies[2].Identity).To(Equal(entity.Unassigned))
			Expect(snap.Identities()).To(Equal([]entity.Identity{"billing", "checkout"}))
		})

		It("should clear the table on an empty set", func() {
			Expect(main.Process(ctx, entity.AnomalySetReplaced{Header: header, Events: []entity.AnomalyEvent{
				{Identity: "a"},
			}})).To(Succeed())
			Expect(main.Process(ctx, entity.AnomalySetReplaced{Header: header})).To(Succeed())

			Expect(main.Snapshot().Anomalies).To(BeEmpty())
		})
	})

	When("logs are refreshed", func() {
		It("should drop duplicates of overlapping windows", func() {
			Expect(main.Process(ctx, logs(logAt("a", 0, "one"), logAt("a", time.Second, "two")))).To(Succeed())
			Expect(main.Process(ctx, logs(logAt("a", time.Second, "two"), logAt("a", 2*time.Second, "three")))).To(Succeed())

			entries := main.Snapshot().Logs["a"]
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Message).To(Equal("one"))
			Expect(entries[2].Message).To(Equal("three"))
		})

		It("should keep only the most recent entries per application", func() {
			for i := 0; i < 5; i++ {
				Expect(main.Process(ctx, logs(logAt("a", time.Duration(i)*time.Second, fmt.Sprintf("msg-%d", i))))).To(Succeed())
			}

			entries := main.Snapshot().Logs["a"]
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Message).To(Equal("msg-2"))
			Expect(entries[2].Message).To(Equal("msg-4"))
		})

		It("should order entries received out of order", func() {
			Expect(main.Process(ctx, logs(logAt("a", 2*time.Second, "late"), logAt("a", 0, "early")))).To(Succeed())

			entries := main.Snapshot().Logs["a"]
			Expect(entries[0].Message).To(Equal("early"))
			Expect(entries[1].Message).To(Equal("late"))
		})

		It("should keep unassigned entries out of application views", func() {
			Expect(main.Process(ctx, logs(logAt(entity.Unassigned, 0, "orphan")))).To(Succeed())

			snap := main.Snapshot()
			Expect(snap.Logs[entity.Unassigned]).To(HaveLen(1))
			Expect(snap.Identities()).To(BeEmpty())

			_, found := snap.ForIdentity(entity.Unassigned)
			Expect(found).To(BeFalse())
		})
	})

	When("a source is degraded", func() {
		It("should keep the data and report the source", func() {
			Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: "a", LastSeen: t0}))).To(Succeed())

			clock.Advance(time.Minute)
			Expect(main.Process(ctx, entity.SourceDegraded{
				Header:   entity.Header{Source: "test", ReceivedAt: clock.Now()},
				Category: "transport",
				Err:      errors.New("connection refused"),
			})).To(Succeed())

			snap := main.Snapshot()
			Expect(snap.Heartbeats).To(HaveKey(entity.Identity("a")))

			status := snap.Diagnostics.Sources["test"]
			Expect(status.IsDegraded()).To(BeTrue())
			Expect(status.UpdatesTotal).To(BeNumerically("==", 1))
			Expect(status.DegradedTotal).To(BeNumerically("==", 1))
			Expect(status.LastCategory).To(Equal("transport"))
			Expect(status.LastError).To(Equal("connection refused"))

			By("recovering on the next successful update")
			clock.Advance(time.Minute)
			Expect(main.Process(ctx, entity.HeartbeatsRefreshed{Header: entity.Header{Source: "test", ReceivedAt: clock.Now()}})).To(Succeed())
			Expect(main.Snapshot().Diagnostics.Sources["test"].IsDegraded()).To(BeFalse())
		})
	})

	When("insights change", func() {
		It("should add and evict insights", func() {
			Expect(main.Process(ctx, entity.InsightRefreshed{Header: header, Insight: entity.Insight{
				Identity: "a", Severity: entity.SeverityHigh, Analysis: "disk full",
			}})).To(Succeed())

			view, found := main.Snapshot().ForIdentity("a")
			Expect(found).To(BeTrue())
			Expect(view.Insight).NotTo(BeNil())
			Expect(view.Insight.Analysis).To(Equal("disk full"))

			By("listing the identity known only through its insight")
			Expect(main.Snapshot().Identities()).To(Equal([]entity.Identity{"a"}))

			Expect(main.Process(ctx, entity.InsightEvicted{Header: header, Identity: "a"})).To(Succeed())
			Expect(main.Snapshot().Insights).To(BeEmpty())
			Expect(main.Snapshot().Identities()).To(BeEmpty())
		})
	})

	It("should publish complete snapshots to concurrent readers", func() {
		var wg sync.WaitGroup

		stop := make(chan struct{})

		wg.Add(1)

		go func() {
			defer GinkgoRecover()
			defer wg.Done()

			var last uint64

			for {
				select {
				case <-stop:
					return
				default:
				}

				snap := main.Snapshot()
				Expect(snap.Version).To(BeNumerically(">=", last))
				Expect(snap.Heartbeats).To(HaveLen(int(snap.Version)))

				last = snap.Version
			}
		}()

		for i := 0; i < 100; i++ {
			id := entity.Identity(fmt.Sprintf("agent-%d", i))
			Expect(main.Process(ctx, heartbeats(entity.Heartbeat{Identity: id, LastSeen: t0}))).To(Succeed())
		}

		close(stop)
		wg.Wait()
	})
})
