package metrics

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var defaultHistogramBucketsSeconds = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so that recording works before Init,
// e.g. in unit tests. Init registers them and starts the metrics server.
var (
	once          sync.Once
	metricsRouter *chi.Mux

	chainClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_client_latency_seconds",
			Help:    "Histogram of chain client durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	jobDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Histogram of background job durations in seconds, pollers and scheduled runs.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"job", "status"},
	)

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of incoming http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "route", "status"},
	)

	faucetOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faucet_operation_count",
			Help: "Number of faucet operations split by operation, status and error code",
		},
		[]string{"operation", "status", "error_code"},
	)

	poolBalanceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faucet_pool_balance_wei",
			Help: "Pool balance tracked by the faucet engine, in wei",
		},
	)

	depositHeightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deposit_watcher_height",
			Help: "Last block height processed by the deposit watcher",
		},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus metrics.
func registerMetrics() {
	prometheus.MustRegister(
		chainClientLatency,
		queueSendErrorCounter,
		jobDurationHistogram,
		httpRequestDurationHistogram,
		faucetOperationCounter,
		poolBalanceGauge,
		depositHeightGauge,
		dbLatency,
	)
}

func RecordChainClientLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	chainClientLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

// RecordFaucetOperation counts an engine operation. An empty errorCode means
// the operation succeeded.
func RecordFaucetOperation(operation, errorCode string) {
	status := Success
	if errorCode != "" {
		status = Error
	}

	faucetOperationCounter.WithLabelValues(operation, status.String(), errorCode).Inc()
}

func RecordPoolBalance(balance *big.Int) {
	f, _ := new(big.Float).SetInt(balance).Float64()
	poolBalanceGauge.Set(f)
}

func RecordDepositHeight(height uint64) {
	depositHeightGauge.Set(float64(height))
}

func RecordHTTPRequestDuration(d time.Duration, method, route string, statusCode int) {
	httpRequestDurationHistogram.WithLabelValues(
		method,
		route,
		strconv.Itoa(statusCode),
	).Observe(d.Seconds())
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
