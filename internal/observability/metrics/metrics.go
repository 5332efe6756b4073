package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashflowpro_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cashflowpro_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashflowpro_analysis_runs_total",
		Help: "Count of affordability engine runs by result",
	}, []string{"result"})

	analysisRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cashflowpro_analysis_run_duration_seconds",
		Help:    "Duration of a full analysis run including persistence",
		Buckets: prometheus.DefBuckets,
	})

	reportExports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashflowpro_report_exports_total",
		Help: "Count of report document exports by result",
	}, []string{"result"})

	businessesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cashflowpro_businesses_total",
		Help: "Number of business records across all users",
	})

	analysesByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cashflowpro_analyses_by_status",
		Help: "Number of analysis records per lifecycle status",
	}, []string{"status"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashflowpro_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAnalysisRun records one engine run with a result label.
func ObserveAnalysisRun(result string, duration time.Duration) {
	analysisRuns.WithLabelValues(result).Inc()
	analysisRunDuration.Observe(duration.Seconds())
}

// ObserveReportExport records a report document export attempt.
func ObserveReportExport(result string) {
	reportExports.WithLabelValues(result).Inc()
}

// SetBusinessesTotal sets the global business gauge.
func SetBusinessesTotal(count int) {
	if count < 0 {
		count = 0
	}
	businessesTotal.Set(float64(count))
}

// SetAnalysesByStatus sets the per-status analysis gauge.
func SetAnalysesByStatus(status string, count int) {
	analysesByStatus.WithLabelValues(status).Set(float64(count))
}

// ObserveLogin records a login attempt result.
func ObserveLogin(result string) {
	logins.WithLabelValues(result).Inc()
}
