// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warzone_actions_total",
			Help: "Player actions dispatched, by kind and result code",
		},
		[]string{"action", "result"},
	)
	Attacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warzone_attacks_total",
			Help: "Resolved attacks by type",
		},
		[]string{"type"},
	)
	Loot = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warzone_loot_total",
			Help: "Resources moved from targets to attackers",
		},
		[]string{"resource"},
	)
	Collected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warzone_points_collected_total",
			Help: "Points credited by idle miner collections",
		},
	)
	Updates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warzone_update_duration_seconds",
			Help:    "Time spent handling Telegram updates, by update type and outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type", "outcome"},
	)
	RLRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warzone_rate_limiter_requests_total",
			Help: "Updates seen by the rate limiter",
		},
	)
	RLBlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warzone_rate_limiter_blocked_total",
			Help: "Updates dropped by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(Actions)
	prometheus.MustRegister(Attacks)
	prometheus.MustRegister(Loot)
	prometheus.MustRegister(Collected)
	prometheus.MustRegister(Updates)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
}

// AttackType labels an attack for the Attacks counter.
func AttackType(retaliation, combo bool) string {
	switch {
	case retaliation:
		return "retaliation"
	case combo:
		return "combo"
	}
	return "first_strike"
}
