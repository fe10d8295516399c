package shadow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var shadowUpdates = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_shadow_updates",
	Help: "Number of overlay update calls",
})

var shadowTombstones = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_shadow_tombstones",
	Help: "Number of updates leaving a post locally deleted",
})

var shadowNotifications = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_shadow_notifications",
	Help: "Number of subscriber callbacks fanned out by updates",
})
