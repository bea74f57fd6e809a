package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vmyroslav/ordertrain/stats"
)

type StatsEntry struct {
	Count   int64   `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

type StatsResponse struct {
	Products map[string]StatsEntry `json:"products"`
	Overall  StatsEntry            `json:"overall"`
}

func newStatsEntry(s stats.ProductStats) StatsEntry {
	return StatsEntry{Count: s.Count, Total: s.Total, Average: s.Average()}
}

// NewConsumerHandler exposes the running averages, prometheus metrics and a health probe.
func NewConsumerHandler(aggregator *stats.Aggregator, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		snapshot := aggregator.Snapshot()

		resp := StatsResponse{
			Products: make(map[string]StatsEntry, len(snapshot.Products)),
			Overall:  newStatsEntry(snapshot.Overall),
		}

		for product, s := range snapshot.Products {
			resp.Products[product] = newStatsEntry(s)
		}

		writeJSON(w, logger, http.StatusOK, resp)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", handleHealth(logger))

	return mux
}
