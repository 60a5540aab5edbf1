package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolverCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_query_resolver_calls_total",
			Help: "Total number of upstream fetches started by the request cache",
		},
		[]string{"kind"},
	)

	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_query_cache_hits_total",
			Help: "Total number of Get calls answered by an existing entry, pending or settled",
		},
		[]string{"kind"},
	)

	settledEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_query_settled_total",
			Help: "Total number of cache entries settled, by outcome",
		},
		[]string{"kind", "status"},
	)

	storeHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_query_store_hits_total",
			Help: "Total number of entries resolved from the second-tier store",
		},
		[]string{"kind"},
	)
)
