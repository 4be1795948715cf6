package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mess_responses_total",
			Help: "Meal responses by slot, response and outcome",
		},
		[]string{"slot", "response", "outcome"},
	)

	PointsCreditedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mess_points_credited_total",
			Help: "Reward points credited across all students",
		},
	)

	AutoResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mess_auto_resolve_total",
			Help: "Students defaulted to YES by the scheduled resolver",
		},
		[]string{"slot"},
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mess_token_refresh_total",
			Help: "Tokens re-issued by the serving-time refresh job",
		},
		[]string{"slot"},
	)

	QRRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mess_qr_renders_total",
			Help: "QR images rendered, by cache outcome",
		},
		[]string{"source"},
	)
)
