package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка и планировщика.
var (
	// ExecutionsTotal — количество запусков workflow по итоговому статусу.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowline_executions_total",
		Help: "Total workflow executions by final status",
	}, []string{"status"})

	// ExecutionDuration — продолжительность запусков workflow.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowline_execution_duration_seconds",
		Help:    "Workflow execution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// NodesExecuted — количество выполненных узлов по типу и статусу.
	NodesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowline_nodes_executed_total",
		Help: "Total nodes executed by node type and status",
	}, []string{"node_type", "status"})

	// ActiveWorkflows — количество зарегистрированных активных workflows.
	ActiveWorkflows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowline_active_workflows",
		Help: "Number of workflows currently registered in the scheduler",
	})

	// TestSessions — количество живых test-mode сессий.
	TestSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowline_test_sessions",
		Help: "Number of live test mode sessions",
	})

	// SchedulerTicks — количество срабатываний cron-триггеров.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowline_scheduler_ticks_total",
		Help: "Total cron trigger firings handled by the scheduler",
	})
)
