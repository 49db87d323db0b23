package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/propertyhub/lease-planner/internal/store/model"
	"go.uber.org/zap"
)

const collectTimeout = 5 * time.Second

// StatsProvider is satisfied by store.Store.
type StatsProvider interface {
	Statistics(ctx context.Context) (model.Stats, error)
}

type statsCollector struct {
	provider           StatsProvider
	contractsByStatus  *prometheus.Desc
	scrapeJobsByStatus *prometheus.Desc
	totalOrganizations *prometheus.Desc
	totalInvoices      *prometheus.Desc
}

// NewStatsCollector exposes the store statistics as gauges computed at scrape time.
func NewStatsCollector(p StatsProvider) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_%s", leasePlanner, name)
	}

	return &statsCollector{
		provider: p,
		contractsByStatus: prometheus.NewDesc(
			fqName("contracts"),
			"Number of contracts by status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
		scrapeJobsByStatus: prometheus.NewDesc(
			fqName("scrape_jobs"),
			"Number of scrape jobs by status.",
			[]string{statusLabel},
			prometheus.Labels{},
		),
		totalOrganizations: prometheus.NewDesc(
			fqName("organizations_total"),
			"Number of organizations owning at least one contract.",
			nil,
			prometheus.Labels{},
		),
		totalInvoices: prometheus.NewDesc(
			fqName("invoices_total"),
			"Number of invoices collected by scrape jobs.",
			nil,
			prometheus.Labels{},
		),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.contractsByStatus
	ch <- c.scrapeJobsByStatus
	ch <- c.totalOrganizations
	ch <- c.totalInvoices
}

// Collect implements Collector.
func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	stats, err := c.provider.Statistics(ctx)
	if err != nil {
		zap.S().Named("stats_collector").Errorf("failed to collect statistics: %s", err)
		return
	}

	for status, total := range stats.ContractsByStatus {
		ch <- prometheus.MustNewConstMetric(c.contractsByStatus, prometheus.GaugeValue, float64(total), status)
	}
	for status, total := range stats.ScrapeJobsByStatus {
		ch <- prometheus.MustNewConstMetric(c.scrapeJobsByStatus, prometheus.GaugeValue, float64(total), status)
	}
	ch <- prometheus.MustNewConstMetric(c.totalOrganizations, prometheus.GaugeValue, float64(stats.TotalOrganizations))
	ch <- prometheus.MustNewConstMetric(c.totalInvoices, prometheus.GaugeValue, float64(stats.TotalInvoices))
}
