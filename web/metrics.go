package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marquee_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	renderedSections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_rendered_sections_total",
			Help: "Total number of sections rendered, by screen and state at render time",
		},
		[]string{"screen", "state"},
	)

	themeToggles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_theme_toggles_total",
			Help: "Total number of theme switches",
		},
	)
)
