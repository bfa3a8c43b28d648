package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roozterface_events_handled_total",
		Help: "Change events dispatched, by collection.",
	}, []string{"collection"})

	handlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roozterface_event_handler_panics_total",
		Help: "Recovered panics in change event handlers, by collection.",
	}, []string{"collection"})
)
