package avatar

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_cache_hits_total",
			Help: "Total number of avatar requests served from the disk cache",
		},
	)
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_cache_misses_total",
			Help: "Total number of avatar requests requiring a remote fetch",
		},
	)
	fetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_fetch_failures_total",
			Help: "Total number of failed remote avatar fetches",
		},
	)
)
