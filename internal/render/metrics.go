package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_posts_rendered_total",
			Help: "Total number of forum posts rendered, by kind",
		},
		[]string{"kind"},
	)

	listRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forum_discussion_list_render_seconds",
			Help:    "Discussion list render duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"format"},
	)
)
