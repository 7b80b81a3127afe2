package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sessions
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appforge_sessions_started_total",
			Help: "Total number of generation sessions accepted",
		},
	)
	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_sessions_finished_total",
			Help: "Generation sessions finished by result",
		},
		[]string{"result"}, // deployed|failed
	)
	SessionStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_session_status_changes_total",
			Help: "Number of session status transitions",
		},
		[]string{"from", "to"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "appforge_sessions_active",
			Help: "Current number of in-flight sessions",
		},
	)
	SessionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appforge_session_duration_seconds",
			Help:    "Histogram of session durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s..512s
		},
	)

	// Agent
	AgentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_agent_requests_total",
			Help: "Number of agent invocations by backend",
		},
		[]string{"backend"},
	)
	AgentDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appforge_agent_duration_seconds",
			Help:    "Duration of agent invocations",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"backend"},
	)

	// Workspace
	FilesMaterialized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appforge_files_materialized_total",
			Help: "Generated files written to session workspaces",
		},
	)
	PathEscapes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_path_escapes_total",
			Help: "Generated paths resolving outside the workspace, by policy action",
		},
		[]string{"action"}, // written|rejected
	)

	// Deployer
	Deployments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_deployments_total",
			Help: "Deployment attempts by entry mode and result",
		},
		[]string{"mode", "result"},
	)

	// Notifier
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_notifications_total",
			Help: "Notification attempts by result",
		},
		[]string{"result"}, // sent|skipped|failed
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appforge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appforge_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Sessions
		SessionsStarted,
		SessionsFinished,
		SessionStatusChanges,
		ActiveSessions,
		SessionDurationSeconds,
		// Agent
		AgentRequests,
		AgentDurationSeconds,
		// Workspace
		FilesMaterialized,
		PathEscapes,
		// Deploy
		Deployments,
		// Notify
		Notifications,
		// HTTP
		HTTPRequests,
		HTTPRequestDuration,
		HTTPErrors,
		// Errors
		Errors,
	)
}

// StartMetricsServer serves /metrics on a dedicated listener.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Sessions
func IncSessionsStarted() {
	SessionsStarted.Inc()
	ActiveSessions.Inc()
}

func ObserveSessionFinished(result string, d time.Duration) {
	SessionsFinished.WithLabelValues(result).Inc()
	SessionDurationSeconds.Observe(d.Seconds())
	ActiveSessions.Dec()
}

func IncSessionStatusChange(from, to string) {
	SessionStatusChanges.WithLabelValues(from, to).Inc()
}

// Agent
func IncAgentRequest(backend string) {
	AgentRequests.WithLabelValues(backend).Inc()
}

func ObserveAgentDuration(backend string, d time.Duration) {
	AgentDurationSeconds.WithLabelValues(backend).Observe(d.Seconds())
}

// Workspace
func AddFilesMaterialized(n int) {
	FilesMaterialized.Add(float64(n))
}

func IncPathEscape(action string) {
	PathEscapes.WithLabelValues(action).Inc()
}

// Deployer
func IncDeployment(mode, result string) {
	Deployments.WithLabelValues(mode, result).Inc()
}

// Notifier
func IncNotification(result string) {
	Notifications.WithLabelValues(result).Inc()
}

// HTTP
func ObserveHTTPRequest(method, path, status string, d time.Duration, isErr bool) {
	HTTPRequests.WithLabelValues(method, path).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
	if isErr {
		HTTPErrors.WithLabelValues(method, path, status).Inc()
	}
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
