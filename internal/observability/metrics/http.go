package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics owns the Prometheus registry for the API process:
// transport-level request metrics plus the pipeline metrics recorded by
// the orchestrator.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineRequestsTotal *prometheus.CounterVec
	pipelineDuration      *prometheus.HistogramVec
	retrievedChunks       *prometheus.HistogramVec
	llmCallsTotal         *prometheus.CounterVec
	calculatorCallsTotal  *prometheus.CounterVec
	degradedTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geoqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pipelineRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoqa",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total pipeline executions by decided action.",
		},
		[]string{"service", "action"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoqa",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "action"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geoqa",
			Subsystem: "pipeline",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per pipeline execution.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	llmCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoqa",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total generative model calls by operation and outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	calculatorCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoqa",
			Subsystem: "compute",
			Name:      "calculator_calls_total",
			Help:      "Total calculator invocations by calculator and status.",
		},
		[]string{"service", "calculator", "status"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoqa",
			Subsystem: "pipeline",
			Name:      "degraded_total",
			Help:      "Total degraded responses by stage.",
		},
		[]string{"service", "stage"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineRequestsTotal,
		pipelineDuration,
		retrievedChunks,
		llmCallsTotal,
		calculatorCallsTotal,
		degradedTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		pipelineRequestsTotal: pipelineRequestsTotal,
		pipelineDuration:      pipelineDuration,
		retrievedChunks:       retrievedChunks,
		llmCallsTotal:         llmCallsTotal,
		calculatorCallsTotal:  calculatorCallsTotal,
		degradedTotal:         degradedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordPipeline observes one completed pipeline execution.
func (m *HTTPServerMetrics) RecordPipeline(service, action string, retrieved int, duration time.Duration) {
	if action == "" {
		action = "unknown"
	}
	m.pipelineRequestsTotal.WithLabelValues(service, action).Inc()
	m.pipelineDuration.WithLabelValues(service, action).Observe(duration.Seconds())
	m.retrievedChunks.WithLabelValues(service).Observe(float64(retrieved))
}

func (m *HTTPServerMetrics) RecordLLMCall(service, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.llmCallsTotal.WithLabelValues(service, operation, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordCalculatorCall(service, calculator, status string) {
	if calculator == "" {
		calculator = "unknown"
	}
	m.calculatorCallsTotal.WithLabelValues(service, calculator, status).Inc()
}

func (m *HTTPServerMetrics) RecordDegraded(service, stage string) {
	m.degradedTotal.WithLabelValues(service, stage).Inc()
}
