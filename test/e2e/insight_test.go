//go:build e2e

package e2e_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/monx-observability/fleet-telemetry/internal/api"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/test/e2e"
)

var _ = Describe("Checking the insights", func() {
	var testContext *e2e.TestContext

	BeforeEach(func(ctx SpecContext) {
		testContext = deploy("insight", nil)

		testContext.Backend.SetAgents(agent("checkout", time.Now()))
		testContext.Backend.SetInsight("checkout", repo.InsightData{
			Severity:       "high",
			Confidence:     0.85,
			Analysis:       "connection pool exhausted",
			RootCause:      "slow database",
			SuggestedFixes: []string{"raise pool size"},
		})

		err := testContext.Deploy(ctx, binary)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should fetch an insight once and serve it from cache", func(ctx SpecContext) {
		By("eventually serving the analysis")
		Eventually(func(g Gomega, ctx context.Context) {
			var resp api.InsightStateResponse

			status, err := testContext.GetJSON(ctx, "/insights/checkout", &resp)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(status).To(Equal(http.StatusOK))
			g.Expect(resp.Insight).NotTo(BeNil())
			g.Expect(resp.Insight.Analysis).To(Equal("connection pool exhausted"))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(100 * time.Millisecond).Should(Succeed())

		By("not fetching it again while fresh")
		for range 5 {
			var resp api.InsightStateResponse

			status, err := testContext.GetJSON(ctx, "/insights/checkout", &resp)
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(http.StatusOK))
		}

		Expect(testContext.Backend.InsightCalls("checkout")).To(Equal(1))

		By("publishing it in the snapshot")
		Eventually(func(g Gomega, ctx context.Context) {
			var view api.ApplicationResponse

			_, err := testContext.GetJSON(ctx, "/applications/checkout", &view)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(view.Insight).NotTo(BeNil())
			g.Expect(view.Insight.RootCause).To(Equal("slow database"))
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())
	}, SpecTimeout(time.Minute))

	It("should report an application without analysis", func(ctx SpecContext) {
		Eventually(func(g Gomega, ctx context.Context) {
			var resp api.InsightStateResponse

			status, err := testContext.GetJSON(ctx, "/insights/unknown", &resp)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(status).To(Equal(http.StatusBadGateway))
			g.Expect(resp.State).To(Equal("failed"))
			g.Expect(resp.Error).NotTo(BeEmpty())
		}).WithContext(ctx).WithTimeout(10 * time.Second).WithPolling(200 * time.Millisecond).Should(Succeed())
	}, SpecTimeout(time.Minute))
})
