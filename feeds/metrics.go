package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var entriesMalformed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_entries_malformed",
	Help: "Number of raw feed entries dropped for failing validation",
})

var entriesFiltered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_entries_filtered",
	Help: "Number of raw feed entries removed by tuner rules",
})

var entriesDeduped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_entries_deduped",
	Help: "Number of feed entries suppressed as duplicates within a session",
})

var slicesEmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_slices_emitted",
	Help: "Number of slices committed to pagination sessions",
})

var pollChecks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_poll_checks",
	Help: "Number of completed peek-latest checks",
})

var pollChecksSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_poll_checks_skipped",
	Help: "Number of peek-latest checks skipped by the rate limiter",
})

var pollChecksStale = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_feed_poll_checks_stale",
	Help: "Number of peek-latest results discarded after a session reset",
})
