package driver

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/switchboard-xyz/sbv2-solana-sub000/crank/api"
)

var (
	cycleCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crank_cycles_total",
			Help: "Number of scheduling cycles by outcome.",
		},
		[]string{"outcome"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crank_cycle_duration_seconds",
			Help:    "Duration of scheduling cycles.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
	rowsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crank_rows_loaded",
			Help: "Number of populated rows in the crank buffer at the last cycle.",
		},
	)
	rowsSelected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crank_rows_selected_total",
			Help: "Number of ready rows selected.",
		},
	)
	rowsAdvanced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crank_rows_advanced_total",
			Help: "Number of rows advanced by landed units.",
		},
	)
	unitCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crank_units_total",
			Help: "Number of submitted execution units by error class.",
		},
		[]string{"class"},
	)
	unitSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crank_unit_size_bytes",
			Help:    "Serialized size of submitted execution units.",
			Buckets: prometheus.LinearBuckets(128, 128, 10),
		},
	)

	driverCollectors = []prometheus.Collector{
		cycleCount,
		cycleDuration,
		rowsLoaded,
		rowsSelected,
		rowsAdvanced,
		unitCount,
		unitSize,
	}

	metricsOnce sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(driverCollectors...)
	})
}

func cycleOutcome(report *api.Report) string {
	switch {
	case report.Error != "":
		return "error"
	case report.IsNoop():
		return "noop"
	default:
		return report.State.String()
	}
}

func updateMetrics(report *api.Report) {
	cycleCount.WithLabelValues(cycleOutcome(report)).Inc()
	cycleDuration.Observe(report.Duration.Seconds())
	rowsLoaded.Set(float64(report.Loaded))
	rowsSelected.Add(float64(report.Selected))
	rowsAdvanced.Add(float64(report.Advanced))
	for _, u := range report.Units {
		unitCount.WithLabelValues(u.Class.String()).Inc()
		unitSize.Observe(float64(u.Size))
	}
}
