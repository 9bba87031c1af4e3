// Package metrics exposes Prometheus instrumentation for recipe runs and
// the dashboard API. Collectors register on the default registry at init.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recipe metrics
	RecipeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retailkit_recipe_duration_seconds",
			Help:    "Duration of recipe executions in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"recipe"},
	)

	RecipeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retailkit_recipe_runs_total",
			Help: "Total number of recipe executions",
		},
		[]string{"recipe"},
	)

	QuarantinedRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retailkit_quarantined_rows",
			Help: "Rows quarantined by the last validation run",
		},
		[]string{"table"},
	)

	GeneratedRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retailkit_generated_rows",
			Help: "Rows produced by the last synthetic generation",
		},
		[]string{"table"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retailkit_notifications_total",
			Help: "Simulated notifications by delivery result",
		},
		[]string{"result"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retailkit_api_requests_total",
			Help: "Total number of dashboard API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retailkit_api_request_duration_seconds",
			Help:    "Dashboard API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRecipe records one recipe execution.
func RecordRecipe(recipe string, duration time.Duration) {
	RecipeRuns.WithLabelValues(recipe).Inc()
	RecipeDuration.WithLabelValues(recipe).Observe(duration.Seconds())
}

// SetQuarantined publishes quarantine sizes per table.
func SetQuarantined(headers, lines int) {
	QuarantinedRows.WithLabelValues("headers").Set(float64(headers))
	QuarantinedRows.WithLabelValues("lines").Set(float64(lines))
}

// SetGenerated publishes a generated table's size.
func SetGenerated(table string, rows int) {
	GeneratedRows.WithLabelValues(table).Set(float64(rows))
}

// RecordNotifications counts a dispatch outcome.
func RecordNotifications(sent, failed int) {
	NotificationsTotal.WithLabelValues("sent").Add(float64(sent))
	NotificationsTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
