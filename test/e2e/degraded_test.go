//go:build e2e

package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/test/e2e"
)

var _ = Describe("Checking a failing source", func() {
	var testContext *e2e.TestContext

	BeforeEach(func(ctx SpecContext) {
		testContext = deploy("degraded", func(conf *e2e.TestConfig) {
			conf.Push = false
		})

		testContext.Backend.SetAgents(agent("checkout", time.Now()))

		err := testContext.Deploy(ctx, binary)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep the last heartbeats and report the source", func(ctx SpecContext) {
		Eventually(func(g Gomega, ctx context.Context) {
			snapshot, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(snapshot.Applications).To(HaveLen(1))
		}).WithContext(ctx).WithTimeout(20 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		testContext.Backend.FailAgents(http.StatusServiceUnavailable)

		By("eventually flagging the agents source as degraded")
		Eventually(func(g Gomega, ctx context.Context) {
			snapshot, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(snapshot.Sources).To(HaveKey("agents"))
			g.Expect(snapshot.Sources["agents"].Degraded).To(BeTrue())
			g.Expect(snapshot.Sources["agents"].LastCategory).To(Equal("transport"))
			g.Expect(snapshot.Applications).To(HaveLen(1))
			g.Expect(snapshot.Applications[0].Name).To(Equal("checkout"))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())

		By("recovering once the source answers again")
		testContext.Backend.FailAgents(http.StatusOK)

		Eventually(func(g Gomega, ctx context.Context) {
			snapshot, err := testContext.Snapshot(ctx)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(snapshot.Sources["agents"].Degraded).To(BeFalse())
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())
	}, SpecTimeout(time.Minute))
})
