package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	transferCounter          *prometheus.CounterVec
	transferDuration         *prometheus.HistogramVec
	idempotencyCounter       *prometheus.CounterVec
	holdSweepCounter         prometheus.Counter
	ledgerImbalanceCounter   *prometheus.CounterVec
	negativeAvailableCounter *prometheus.CounterVec
	workerRunCounter         *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_total",
			Help: "Transfer attempts by outcome",
		}, []string{"outcome"})

		transferDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transfer_duration_seconds",
			Help:    "End-to-end transfer latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency store outcomes",
		}, []string{"outcome"})

		holdSweepCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holds_expired_total",
			Help: "Active holds swept to expired",
		})

		ledgerImbalanceCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_imbalance_total",
			Help: "Number of times double-entry balances diverged",
		}, []string{"currency"})

		negativeAvailableCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "negative_available_balance_total",
			Help: "Derived available balances clamped from negative to zero",
		}, []string{"currency"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferCounter,
			transferDuration,
			idempotencyCounter,
			holdSweepCounter,
			ledgerImbalanceCounter,
			negativeAvailableCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransfer(outcome string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(outcome).Inc()
}

func ObserveTransferDuration(kind string, duration time.Duration) {
	if transferDuration == nil {
		return
	}
	transferDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func AddExpiredHolds(count int64) {
	if holdSweepCounter == nil || count <= 0 {
		return
	}
	holdSweepCounter.Add(float64(count))
}

func IncrementLedgerImbalance(currency string) {
	if ledgerImbalanceCounter == nil {
		return
	}
	ledgerImbalanceCounter.WithLabelValues(currency).Inc()
}

func IncrementNegativeAvailable(currency string) {
	if negativeAvailableCounter == nil {
		return
	}
	negativeAvailableCounter.WithLabelValues(currency).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
