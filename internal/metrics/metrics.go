package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KumoDrift/BANK-TRANSACTION/internal/domain"
)

// Collector owns its registry so tests can build isolated instances. A nil
// *Collector is a valid no-op, which keeps instrumentation optional in unit
// tests.
type Collector struct {
	registry         *prometheus.Registry
	transfersTotal   *prometheus.CounterVec
	transferDuration prometheus.Histogram
	entriesAppended  prometheus.Counter
	balanceReads     prometheus.Counter
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		transfersTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Transfer submissions by outcome",
		}, []string{"outcome"}),
		transferDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "transfer_duration_seconds",
			Help:    "Time from submission to terminal outcome",
			Buckets: prometheus.DefBuckets,
		}),
		entriesAppended: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_entries_appended_total",
			Help: "Ledger entries durably committed",
		}),
		balanceReads: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "balance_reads_total",
			Help: "Derived balance aggregations served",
		}),
	}
}

func (c *Collector) ObserveTransfer(outcome domain.TransferOutcome, d time.Duration) {
	if c == nil {
		return
	}
	c.transfersTotal.WithLabelValues(string(outcome)).Inc()
	c.transferDuration.Observe(d.Seconds())
}

func (c *Collector) LedgerEntriesAppended(n int) {
	if c == nil {
		return
	}
	c.entriesAppended.Add(float64(n))
}

func (c *Collector) BalanceRead() {
	if c == nil {
		return
	}
	c.balanceReads.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
