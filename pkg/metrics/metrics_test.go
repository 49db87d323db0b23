package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/propertyhub/lease-planner/internal/store/model"
)

type fakeStats struct {
	stats model.Stats
	err   error
}

func (f fakeStats) Statistics(_ context.Context) (model.Stats, error) {
	return f.stats, f.err
}

var _ = Describe("metrics", func() {
	Context("domain counters", func() {
		It("counts contract transitions by action and result", func() {
			before := testutil.ToFloat64(contractTransitionsTotalMetric.WithLabelValues("sign", TransitionApplied))
			IncreaseContractTransitionsMetric("sign", TransitionApplied)
			IncreaseContractTransitionsMetric("sign", TransitionApplied)
			Expect(testutil.ToFloat64(contractTransitionsTotalMetric.WithLabelValues("sign", TransitionApplied))).To(Equal(before + 2))
		})

		It("counts finished scrape jobs", func() {
			before := testutil.ToFloat64(scrapeJobsTotalMetric.WithLabelValues("failed", "login_rejected"))
			IncreaseScrapeJobsMetric("failed", "login_rejected")
			Expect(testutil.ToFloat64(scrapeJobsTotalMetric.WithLabelValues("failed", "login_rejected"))).To(Equal(before + 1))
		})
	})

	Context("unique users", func() {
		AfterEach(func() {
			UniqueUsersPerWeek.Reset()
		})

		It("counts each user once", func() {
			UniqueUsersPerWeek.Observe("alice")
			UniqueUsersPerWeek.Observe("alice")
			UniqueUsersPerWeek.Observe("bob")
			UniqueUsersPerWeek.Observe("")

			Expect(UniqueUsersPerWeek.Count()).To(Equal(2))
			Expect(testutil.ToFloat64(totalUniqueUsersPerWeekMetric)).To(Equal(float64(2)))
		})

		It("starts over after a reset", func() {
			UniqueUsersPerWeek.Observe("alice")
			UniqueUsersPerWeek.Reset()

			Expect(UniqueUsersPerWeek.Count()).To(Equal(0))
			Expect(testutil.ToFloat64(totalUniqueUsersPerWeekMetric)).To(Equal(float64(0)))
		})
	})

	Context("stats collector", func() {
		It("exposes the store statistics", func() {
			c := NewStatsCollector(fakeStats{stats: model.Stats{
				ContractsByStatus:  map[string]int{"draft": 3, "active": 1},
				ScrapeJobsByStatus: map[string]int{"completed": 2},
				TotalOrganizations: 2,
				TotalInvoices:      7,
			}})

			expected := `
# HELP lease_planner_invoices_total Number of invoices collected by scrape jobs.
# TYPE lease_planner_invoices_total gauge
lease_planner_invoices_total 7
# HELP lease_planner_contracts Number of contracts by status.
# TYPE lease_planner_contracts gauge
lease_planner_contracts{status="active"} 1
lease_planner_contracts{status="draft"} 3
`
			err := testutil.CollectAndCompare(c, strings.NewReader(expected), "lease_planner_invoices_total", "lease_planner_contracts")
			Expect(err).To(BeNil())
			Expect(testutil.CollectAndCount(c)).To(Equal(5))
		})

		It("exposes nothing when the store fails", func() {
			c := NewStatsCollector(fakeStats{err: errors.New("db down")})
			Expect(testutil.CollectAndCount(c)).To(Equal(0))
		})
	})

	Context("http middleware", func() {
		It("records requests by route pattern", func() {
			m := NewMiddleware("test")
			router := chi.NewRouter()
			router.Use(m.Handler)
			router.Get("/api/v1/contracts/{id}", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})

			for _, id := range []string{"a", "b"} {
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/contracts/"+id, nil))
				Expect(rr.Code).To(Equal(http.StatusNotFound))
			}

			Expect(testutil.ToFloat64(m.requests.WithLabelValues("404", "GET", "/api/v1/contracts/{id}"))).To(Equal(float64(2)))
			Expect(m.Collectors()).To(HaveLen(3))
		})

		It("labels requests no route matched", func() {
			m := NewMiddleware("test")
			router := chi.NewRouter()
			router.Use(m.Handler)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
			Expect(rr.Code).To(Equal(http.StatusNotFound))
			Expect(testutil.ToFloat64(m.requests.WithLabelValues("404", "GET", unmatchedRoute))).To(Equal(float64(1)))
		})

		It("reuses the collectors of an earlier middleware", func() {
			reg := prometheus.NewRegistry()
			first := NewMiddleware("api")
			first.MustRegister(reg)
			first.requests.WithLabelValues("200", "GET", "/health").Inc()

			second := NewMiddleware("api")
			Expect(func() { second.MustRegister(reg) }).ToNot(Panic())
			Expect(testutil.ToFloat64(second.requests.WithLabelValues("200", "GET", "/health"))).To(Equal(float64(1)))
		})
	})
})
