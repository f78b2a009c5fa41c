package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meme_renders_total",
			Help: "Total number of meme renders by outcome",
		},
		[]string{"outcome"},
	)
	renderDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "meme_render_duration_seconds",
			Help: "Duration of meme renders",
		},
	)
	fontFitSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meme_font_fit_size",
			Help:    "Caption font size chosen by the fit search",
			Buckets: prometheus.LinearBuckets(14, 20, 11),
		},
	)
)
