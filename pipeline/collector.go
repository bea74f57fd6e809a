package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vmyroslav/ordertrain/stats"
)

// StatsCollector exposes the aggregator as prometheus gauges.
// Values are read from a snapshot at scrape time.
type StatsCollector struct {
	aggregator *stats.Aggregator

	count   *prometheus.Desc
	total   *prometheus.Desc
	average *prometheus.Desc

	overallCount   *prometheus.Desc
	overallTotal   *prometheus.Desc
	overallAverage *prometheus.Desc
}

func NewStatsCollector(aggregator *stats.Aggregator) *StatsCollector {
	labels := []string{"product"}

	return &StatsCollector{
		aggregator: aggregator,
		count: prometheus.NewDesc("ordertrain_orders_processed",
			"Orders processed successfully by product.", labels, nil),
		total: prometheus.NewDesc("ordertrain_orders_price_total",
			"Sum of prices of processed orders by product.", labels, nil),
		average: prometheus.NewDesc("ordertrain_orders_price_average",
			"Average price of processed orders by product.", labels, nil),
		overallCount: prometheus.NewDesc("ordertrain_orders_overall_processed",
			"Orders processed successfully.", nil, nil),
		overallTotal: prometheus.NewDesc("ordertrain_orders_overall_price_total",
			"Sum of prices of all processed orders.", nil, nil),
		overallAverage: prometheus.NewDesc("ordertrain_orders_overall_price_average",
			"Average price of all processed orders.", nil, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.total
	ch <- c.average
	ch <- c.overallCount
	ch <- c.overallTotal
	ch <- c.overallAverage
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.aggregator.Snapshot()

	for product, s := range snapshot.Products {
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(s.Count), product)
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, s.Total, product)
		ch <- prometheus.MustNewConstMetric(c.average, prometheus.GaugeValue, s.Average(), product)
	}

	overall := snapshot.Overall
	ch <- prometheus.MustNewConstMetric(c.overallCount, prometheus.GaugeValue, float64(overall.Count))
	ch <- prometheus.MustNewConstMetric(c.overallTotal, prometheus.GaugeValue, overall.Total)
	ch <- prometheus.MustNewConstMetric(c.overallAverage, prometheus.GaugeValue, overall.Average())
}
