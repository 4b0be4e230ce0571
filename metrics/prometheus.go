package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/credstorage/go-credential-server/cache"
)

// all metrics and middlewares for the REST API
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Number of optimistic-concurrency conflicts surfaced on reads
	ReadConflictMetricsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credential_read_conflicts_total",
		Help: "The total number of credential reads aborted by a concurrent write",
	})
)

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if isMetricsInit() {
		return
	}
	prometheus.MustRegister(activeRESTConnections)
	prometheus.MustRegister(responseTimeRESTAPI)
	prometheus.MustRegister(RESTRequestMetricsTotal)
	prometheus.MustRegister(ReadConflictMetricsTotal)
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

// RegisterCipherCacheMetrics exposes the cipher cache counters as gauges.
func RegisterCipherCacheMetrics(ciphers *cache.CipherCache) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cipher_cache_hits_total",
		Help: "Cipher context cache hits",
	}, func() float64 { return float64(ciphers.Stats().Hits) }))
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cipher_cache_misses_total",
		Help: "Cipher context cache misses",
	}, func() float64 { return float64(ciphers.Stats().Misses) }))
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cipher_cache_evictions_total",
		Help: "Cipher context cache evictions",
	}, func() float64 { return float64(ciphers.Stats().Evictions) }))
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cipher_cache_entries",
		Help: "Cipher context cache current size",
	}, func() float64 { return float64(ciphers.Stats().Size) }))
}

// MetricsMiddleware counts requests and observes response times per endpoint.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		elapsed := float64(time.Since(start).Milliseconds())
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(elapsed)
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()
	}
}
