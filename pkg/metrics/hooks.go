package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HookMetrics records metadata for CRM hook event processing.
type HookMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewHookMetrics registers the hook metrics on the provided registerer.
func NewHookMetrics(reg prometheus.Registerer) *HookMetrics {
	if reg == nil {
		return &HookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hook_event_duration_seconds",
		Help:    "Duration of hook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_event_success",
		Help: "Successfully handled hook events.",
	}, []string{"event"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_event_failure",
		Help: "Failed hook events.",
	}, []string{"event"})
	reg.MustRegister(duration, success, failure)
	return &HookMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the handling duration for the named event.
func (h *HookMetrics) ObserveDuration(event string, duration time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	h.duration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named event.
func (h *HookMetrics) IncSuccess(event string) {
	if h == nil || h.success == nil {
		return
	}
	h.success.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncFailure increments the failure counter for the named event.
func (h *HookMetrics) IncFailure(event string) {
	if h == nil || h.failure == nil {
		return
	}
	h.failure.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(event string) string {
	if event == "" {
		return "unknown"
	}
	return event
}
