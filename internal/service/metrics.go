package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	listingsProjected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roozterface_listings_projected_total",
		Help: "Showcase listings written by the projector.",
	})

	listingsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roozterface_listings_removed_total",
		Help: "Showcase listing deletes issued by the projector.",
	})

	cascadeUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roozterface_name_cascade_updates_total",
		Help: "Listings rewritten by the rename cascade.",
	})
)
