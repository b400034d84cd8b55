// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsTotal 按处理结果统计预留请求。
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mercury",
		Subsystem: "inventory",
		Name:      "reservations_total",
		Help:      "Total number of stock reservation requests by outcome.",
	}, []string{"outcome"})

	// ReleasesTotal 按处理结果统计释放请求。
	ReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mercury",
		Subsystem: "inventory",
		Name:      "releases_total",
		Help:      "Total number of stock release requests by outcome.",
	}, []string{"outcome"})

	// OrdersPlacedTotal 按最终状态统计下单请求。
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mercury",
		Subsystem: "order",
		Name:      "orders_placed_total",
		Help:      "Total number of order placement attempts by final status.",
	}, []string{"status"})

	// ReserveRetriesTotal 统计对库存服务的传输层重试次数。
	ReserveRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mercury",
		Subsystem: "order",
		Name:      "reserve_retries_total",
		Help:      "Total number of transport level retries against the inventory service.",
	})

	// CompensationsTotal 统计触发的补偿动作次数。
	CompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mercury",
		Subsystem: "order",
		Name:      "compensations_total",
		Help:      "Total number of compensation actions executed.",
	})

	// OrderProcessingSeconds 观测一次下单编排的端到端耗时。
	OrderProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mercury",
		Subsystem: "order",
		Name:      "processing_duration_seconds",
		Help:      "End to end latency of order placement.",
		Buckets:   prometheus.DefBuckets,
	})
)
