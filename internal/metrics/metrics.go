package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "growthmart"

// Dispatch outcomes recorded by the lifecycle engine.
const (
	OutcomeProcessing = "processing"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
	OutcomeError      = "error"
)

// Recorder exposes Prometheus instruments for order fulfillment.
type Recorder struct {
	ordersCreated    prometheus.Counter
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	sweepRuns        *prometheus.CounterVec
	sweepOrders      *prometheus.CounterVec
	broadcastTotal   *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder creates instruments and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created",
		}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatch attempts by outcome",
		}, []string{"outcome"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of fulfillment provider submissions",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Stale order sweeps by result",
		}, []string{"result"}),
		sweepOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_orders_total",
			Help:      "Orders handled by sweeps by outcome",
		}, []string{"outcome"}),
		broadcastTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_total",
			Help:      "Status broadcasts by driver and result",
		}, []string{"driver", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		r.ordersCreated,
		r.dispatchTotal,
		r.dispatchDuration,
		r.sweepRuns,
		r.sweepOrders,
		r.broadcastTotal,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) OrderCreated() {
	r.ordersCreated.Inc()
}

// ObserveDispatch counts a dispatch outcome. A zero elapsed means the provider was not contacted.
func (r *Recorder) ObserveDispatch(outcome string, elapsed time.Duration) {
	r.dispatchTotal.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		r.dispatchDuration.Observe(elapsed.Seconds())
	}
}

func (r *Recorder) ObserveSweep(dispatched, skipped, failed int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sweepRuns.WithLabelValues(result).Inc()
	r.sweepOrders.WithLabelValues("dispatched").Add(float64(dispatched))
	r.sweepOrders.WithLabelValues("skipped").Add(float64(skipped))
	r.sweepOrders.WithLabelValues("failed").Add(float64(failed))
}

func (r *Recorder) ObserveBroadcast(driver string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.broadcastTotal.WithLabelValues(driver, result).Inc()
}

// ObserveRequest records one served HTTP request. Route is the matched pattern, not the raw path.
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
