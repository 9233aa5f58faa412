package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gig_marketplace"

var (
	// Registry: собственный реестр приложения, без глобального DefaultRegisterer.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	offersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_submitted_total",
			Help:      "Offers submitted by outcome (created, updated, cooldown).",
		},
		[]string{"outcome"},
	)

	offersResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_resolved_total",
			Help:      "Offers resolved by action (accept, reject, withdraw, direct_apply).",
		},
		[]string{"action"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Completed job settlements by payment method.",
		},
		[]string{"method"},
	)

	settlementAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_amount_total",
			Help:      "Sum of settled job amounts in currency units.",
		},
	)

	commissionAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_amount_total",
			Help:      "Sum of platform commission in currency units.",
		},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests by result (requested, approved, rejected).",
		},
		[]string{"result"},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "reconcile_runs_total",
			Help:      "Gateway reconciliation runs by success.",
		},
		[]string{"success"},
	)

	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of gateway reconciliation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		offersSubmitted,
		offersResolved,
		settlements,
		settlementAmount,
		commissionAmount,
		withdrawals,
		reconcileRuns,
		reconcileDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware собирает метрики HTTP запросов. Путь берётся из шаблона маршрута,
// чтобы идентификаторы не раздували кардинальность.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordOfferSubmitted(outcome string) {
	offersSubmitted.WithLabelValues(outcome).Inc()
}

func RecordOfferResolved(action string) {
	offersResolved.WithLabelValues(action).Inc()
}

// RecordSettlement учитывает завершённый расчёт по заданию.
func RecordSettlement(method string, amount, commission int64) {
	settlements.WithLabelValues(method).Inc()
	settlementAmount.Add(float64(amount))
	commissionAmount.Add(float64(commission))
}

func RecordWithdrawal(result string) {
	withdrawals.WithLabelValues(result).Inc()
}

func RecordReconcile(duration time.Duration, success bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	reconcileRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	reconcileDuration.Observe(duration.Seconds())
}
