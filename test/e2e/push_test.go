//go:build e2e

package e2e_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/test/e2e"
)

var _ = Describe("Checking the anomaly stream", func() {
	var testContext *e2e.TestContext

	BeforeEach(func(ctx SpecContext) {
		testContext = deploy("push", nil)

		testContext.Backend.SetAgents(agent("checkout", time.Now()))
		testContext.Backend.SetAnomalies(anomaly("checkout", 0.5, "seeded"))

		err := testContext.Deploy(ctx, binary)
		Expect(err).NotTo(HaveOccurred())

		Eventually(testContext.Backend.Subscribers).WithTimeout(20 * time.Second).Should(Equal(1))
	})

	anomalies := func(g Gomega, ctx context.Context, name string) int {
		snapshot, err := testContext.Snapshot(ctx)
		g.Expect(err).NotTo(HaveOccurred())

		for _, app := range snapshot.Applications {
			if app.Name == name {
				return app.Anomalies
			}
		}

		return 0
	}

	It("should replace the anomaly set on every message", func(ctx SpecContext) {
		By("eventually seeding the set on connection")
		Eventually(func(g Gomega, ctx context.Context) {
			g.Expect(anomalies(g, ctx, "checkout")).To(Equal(1))
		}).WithContext(ctx).WithTimeout(20 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		By("replacing it with the pushed set")
		err := testContext.Backend.PushAnomalies(anomaly("checkout", 0.7, "a"), anomaly("checkout", 0.8, "b"), anomaly("search", 0.9, "c"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func(g Gomega, ctx context.Context) {
			g.Expect(anomalies(g, ctx, "checkout")).To(Equal(2))
			g.Expect(anomalies(g, ctx, "search")).To(Equal(1))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		By("clearing it with an empty set")
		err = testContext.Backend.PushAnomalies()
		Expect(err).NotTo(HaveOccurred())

		Eventually(func(g Gomega, ctx context.Context) {
			g.Expect(anomalies(g, ctx, "checkout")).To(Equal(0))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())
	}, SpecTimeout(time.Minute))

	It("should keep the last set when a message is malformed", func(ctx SpecContext) {
		err := testContext.Backend.PushAnomalies(anomaly("checkout", 0.7, "a"), anomaly("checkout", 0.8, "b"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func(g Gomega, ctx context.Context) {
			g.Expect(anomalies(g, ctx, "checkout")).To(Equal(2))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		err = testContext.Backend.Push([]byte(`{"type":"anomalies","data":[{"score":"high"}]}`))
		Expect(err).NotTo(HaveOccurred())

		By("eventually reporting the decode failure")
		Eventually(func(g Gomega, ctx context.Context) {
			value, err := testContext.CounterValue(ctx, "source_error_processing_error_total", map[string]string{"category": "decode"})
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(value).To(BeEquivalentTo(1))

			snapshot, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(snapshot.Sources).To(HaveKey("anomaly_stream"))
			g.Expect(snapshot.Sources["anomaly_stream"].LastCategory).To(Equal("decode"))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		By("keeping the previous set")
		Consistently(func(g Gomega, ctx context.Context) {
			g.Expect(anomalies(g, ctx, "checkout")).To(Equal(2))
		}).WithContext(ctx).WithTimeout(2 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())
	}, SpecTimeout(time.Minute))
})
