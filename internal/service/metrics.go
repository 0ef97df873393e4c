package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taprealm_taps_total",
			Help: "Taps applied to player balances",
		},
	)
	TapRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taprealm_tap_rejections_total",
			Help: "Tap requests rejected by the engine",
		},
		[]string{"reason"},
	)
	UpgradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taprealm_upgrades_total",
			Help: "Upgrades bought",
		},
		[]string{"type"},
	)
	BoostClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taprealm_boost_claims_total",
			Help: "Boosts claimed",
		},
		[]string{"type"},
	)
	RewardsPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taprealm_rewards_paid_total",
			Help: "Currency paid outside taps, by source",
		},
		[]string{"source"},
	)
	Restrictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taprealm_restrictions_total",
			Help: "Players restricted after crossing the fraud threshold",
		},
	)
)

func init() {
	prometheus.MustRegister(TapsTotal, TapRejections, UpgradesTotal, BoostClaims, RewardsPaid, Restrictions)
}
