// Package metrics содержит счётчики Prometheus для трекера, фокус-сессий и HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrackingActive - сколько задач сейчас трекается
var TrackingActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "matrix",
	Name:      "tracking_active",
	Help:      "Number of tasks with an active timer.",
})

// TrackingFlushes - записи накопленного времени в хранилище, result=ok|error
var TrackingFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "tracking_flushes_total",
	Help:      "Accumulated time writes to the task store.",
}, []string{"result"})

// TrackedSeconds - секунды, учтённые трекером
var TrackedSeconds = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "tracked_seconds_total",
	Help:      "Seconds accumulated by task timers.",
})

var TasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "tasks_completed_total",
	Help:      "Completed tasks by quadrant.",
}, []string{"priority"})

var FocusSessions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "focus_sessions_total",
	Help:      "Finished focus sessions.",
}, []string{"completed"})

var ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "chat_requests_total",
	Help:      "Morpheus chat requests by result.",
}, []string{"result"})

// HTTPDuration - длительность запросов по маршруту chi
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "matrix",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// ReconciledTasks - задачи, у которых воркер снял зависший флаг трекинга
var ReconciledTasks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "matrix",
	Name:      "reconciled_tasks_total",
	Help:      "Tasks whose orphaned tracking flag was cleared.",
})
