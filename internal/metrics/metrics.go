// Package metrics регистрирует коллекторы Prometheus сервиса:
// счетчики HTTP-запросов и метрики запусков задач агентов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter счетчик HTTP-запросов по методу, шаблону пути и статусу.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDurationHistogram длительность HTTP-запросов в секундах.
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TaskRunsTotal счетчик запусков задач агентов по результату
	// (completed / failed / rejected).
	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_task_runs_total",
			Help: "Total number of agent task runs by outcome",
		},
		[]string{"outcome"},
	)

	// ToolInvocationsTotal счетчик вызовов инструментов по имени и результату.
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_tool_invocations_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	// TaskRunDuration длительность полного запуска задачи в секундах.
	TaskRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_task_run_duration_seconds",
			Help:    "Duration of a full agent task run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
