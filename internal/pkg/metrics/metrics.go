package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 识别结果
const (
	ResolutionMatched   = "matched"
	ResolutionUnmatched = "unmatched"
	ResolutionMock      = "mock"
	ResolutionError     = "error"
)

var (
	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postdisaster_resolutions_total",
			Help: "Total number of satellite image resolutions by outcome",
		},
		[]string{"outcome"},
	)
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postdisaster_analysis_runs_total",
			Help: "Total number of disaster analysis runs by status",
		},
		[]string{"status"},
	)
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postdisaster_analysis_duration_seconds",
			Help:    "Disaster analysis duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180, 300},
		},
		[]string{"status"},
	)
	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postdisaster_tool_invocations_total",
			Help: "Total number of agent tool invocations",
		},
		[]string{"tool", "status"},
	)
	TaskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postdisaster_agent_tasks_total",
			Help: "Total number of agent tasks executed by role",
		},
		[]string{"role", "status"},
	)
)

func init() {
	prometheus.MustRegister(Resolutions)
	prometheus.MustRegister(AnalysisRuns)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(ToolInvocations)
	prometheus.MustRegister(TaskRuns)
}
