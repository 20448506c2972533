package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/saransh1220/ev-notify/pkg/eventbus"
)

// Event names published by the notification service.
const (
	EventCreated = "notification.created"
	EventPulled  = "notification.pulled"
)

// Created is the payload of EventCreated.
type Created struct {
	Source     string
	Suppressed bool
	LiveSent   int
}

// Pulled is the payload of EventPulled.
type Pulled struct {
	Personal  int
	Broadcast int
}

var (
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Notifications persisted, by source and suppression.",
	}, []string{"source", "suppressed"})

	NotificationsPulled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_pulled_total",
		Help: "Notifications returned by pull, by origin.",
	}, []string{"origin"})

	LiveSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_live_sends_total",
		Help: "Live channel deliveries attempted, by event and result.",
	}, []string{"event", "result"})

	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifications_live_sessions",
		Help: "Open live channel sessions on this instance.",
	})
)

// Subscribe feeds service events from bus into the counters.
func Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(ev eventbus.Event) {
		switch p := ev.Payload.(type) {
		case Created:
			suppressed := "false"
			if p.Suppressed {
				suppressed = "true"
			}
			NotificationsCreated.WithLabelValues(p.Source, suppressed).Inc()
		case Pulled:
			NotificationsPulled.WithLabelValues("personal").Add(float64(p.Personal))
			NotificationsPulled.WithLabelValues("broadcast").Add(float64(p.Broadcast))
		}
	})
}
