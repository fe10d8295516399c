package threads

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var threadNodesMalformed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_thread_nodes_malformed",
	Help: "Number of thread nodes dropped for failing validation",
})

var flattenRows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "skyview_thread_rows_emitted",
	Help: "Number of rows emitted by thread flattening",
})
