package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PriceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_price_fetches_total",
			Help: "Total number of price API fetches by kind (batch or single)",
		},
		[]string{"kind"},
	)

	PriceFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_price_fetch_errors_total",
			Help: "Total number of failed price API fetches by kind",
		},
		[]string{"kind"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_commands_total",
			Help: "Total number of dispatched chat commands per verb",
		},
		[]string{"command"},
	)

	SnapshotSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptofolio_snapshot_saves_total",
			Help: "Total number of snapshot save attempts",
		},
	)

	SnapshotErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_snapshot_errors_total",
			Help: "Total number of snapshot load/save failures per operation",
		},
		[]string{"op"},
	)
)

var (
	RefreshJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptofolio_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	RefreshJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptofolio_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	RefreshJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofolio_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	RefreshJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	RefreshJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		RefreshJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
