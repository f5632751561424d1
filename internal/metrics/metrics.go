package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls счетчик вызовов инструментов
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Общее количество вызовов инструментов",
		},
		[]string{"tool_name", "status"},
	)

	// PreviewFallbacks счетчик расчетов, вернувших нулевые проценты
	PreviewFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_fallbacks_total",
			Help: "Предварительные расчеты с нулевыми процентами по причине",
		},
		[]string{"reason"},
	)

	// BackendCalls счетчик запросов к бэкенду кредитов
	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_calls_total",
			Help: "Запросы к бэкенду кредитов",
		},
		[]string{"endpoint", "status"},
	)

	// LoanCacheLookups попадания и промахи кэша кредитов
	LoanCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_cache_lookups_total",
			Help: "Обращения к кэшу кредитов",
		},
		[]string{"result"},
	)
)
