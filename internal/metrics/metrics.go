package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garagem/internal/garagem"
)

var (
	// Reminder metrics
	ReminderChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garagem_reminder_checks_total",
			Help: "Total number of reminder evaluation cycles by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	RemindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garagem_reminders_sent_total",
			Help: "Total number of reminder emails accepted by the provider",
		},
		[]string{"kind"},
	)

	ReminderSendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garagem_reminder_send_failures_total",
			Help: "Total number of reminder emails that failed to send",
		},
		[]string{"kind"},
	)

	ReminderCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "garagem_reminder_check_duration_seconds",
			Help:    "Reminder evaluation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "garagem_scheduler_running",
			Help: "Whether the reminder scheduler is running (1 = running, 0 = stopped)",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garagem_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "garagem_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(ReminderChecksTotal)
	prometheus.MustRegister(RemindersSentTotal)
	prometheus.MustRegister(ReminderSendFailuresTotal)
	prometheus.MustRegister(ReminderCheckDuration)
	prometheus.MustRegister(SchedulerRunning)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds reminder engine and scheduler events into the collectors.
type Recorder struct{}

var _ garagem.Recorder = Recorder{}

func (Recorder) CheckFinished(trigger garagem.Trigger, result string, seconds float64) {
	ReminderChecksTotal.WithLabelValues(string(trigger), result).Inc()
	ReminderCheckDuration.Observe(seconds)
}

func (Recorder) ReminderSent(kind garagem.ReminderKind) {
	RemindersSentTotal.WithLabelValues(string(kind)).Inc()
}

func (Recorder) ReminderFailed(kind garagem.ReminderKind) {
	ReminderSendFailuresTotal.WithLabelValues(string(kind)).Inc()
}

func (Recorder) SchedulerRunning(running bool) {
	if running {
		SchedulerRunning.Set(1)
		return
	}
	SchedulerRunning.Set(0)
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time in the labelled histogram.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
