//go:build e2e

package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/internal/api"
	"github.com/monx-observability/fleet-telemetry/internal/domain/entity"
	"github.com/monx-observability/fleet-telemetry/test/e2e"
)

var _ = Describe("Checking the happy path", func() {
	var testContext *e2e.TestContext

	BeforeEach(func(ctx SpecContext) {
		testContext = deploy("happy-path", nil)

		now := time.Now()

		testContext.Backend.SetAgents(agent("checkout", now), agent("billing", now.Add(-3*time.Minute)))
		testContext.Backend.SetAnomalies(anomaly("checkout", 0.92, "latency spike"), anomaly("", 0.4, "unknown origin"))
		testContext.Backend.SetLogs(logRecord("checkout", "payment timeout"), logRecord("", "orphan line"))

		err := testContext.Deploy(ctx, binary)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should publish a correlated snapshot", func(ctx SpecContext) {
		By("eventually merging every source")
		Eventually(func(g Gomega, ctx context.Context) {
			snapshot, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())

			g.Expect(snapshot.Applications).To(HaveLen(2))
			g.Expect(snapshot.Applications[0].Name).To(Equal("billing"))
			g.Expect(snapshot.Applications[0].Health).To(Equal(entity.HealthWarning))
			g.Expect(snapshot.Applications[1].Name).To(Equal("checkout"))
			g.Expect(snapshot.Applications[1].Health).To(Equal(entity.HealthHealthy))
			g.Expect(snapshot.Applications[1].Anomalies).To(Equal(1))
			g.Expect(snapshot.Applications[1].Logs).To(Equal(1))
			g.Expect(snapshot.Unassigned).To(Equal(api.UnassignedCounts{Anomalies: 1, Logs: 1}))
		}).WithContext(ctx).WithTimeout(20 * time.Second).WithPolling(500 * time.Millisecond).Should(Succeed())

		By("serving the view of one application")
		var view api.ApplicationResponse

		status, err := testContext.GetJSON(ctx, "/applications/checkout", &view)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(view.Anomalies).To(HaveLen(1))
		Expect(view.Anomalies[0].Reason).To(Equal("latency spike"))
		Expect(view.Logs).To(HaveLen(1))
		Expect(view.Logs[0].Level).To(Equal("ERROR"))
		Expect(view.Capabilities).To(HaveKeyWithValue("logs", true))

		By("incrementing the snapshot version")
		Eventually(func(g Gomega, ctx context.Context) {
			first, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())

			time.Sleep(2 * testContext.Config.PollInterval)

			second, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(second.Version).To(BeNumerically(">", first.Version))
		}).WithContext(ctx).WithTimeout(20 * time.Second).Should(Succeed())
	}, SpecTimeout(time.Minute))
})
