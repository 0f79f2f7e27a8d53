package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FixesAccepted counts fixes delivered to the caller
	FixesAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pothole",
			Name:      "fixes_accepted_total",
			Help:      "Total number of location fixes delivered to the tracker",
		},
		[]string{"provider"},
	)

	// FixesDropped counts fixes rejected before delivery
	FixesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pothole",
			Name:      "fixes_dropped_total",
			Help:      "Total number of location fixes dropped",
		},
		[]string{"provider", "reason"},
	)

	// LocationErrors counts errors surfaced to the caller
	LocationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pothole",
			Name:      "location_errors_total",
			Help:      "Total number of location errors reported to the tracker",
		},
		[]string{"provider", "kind"},
	)

	// ProviderFallbacks counts starts that moved past a failing provider
	ProviderFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pothole",
			Name:      "provider_fallbacks_total",
			Help:      "Total number of watch starts that fell back from a failing provider",
		},
		[]string{"from"},
	)

	// AlertsEmitted counts proximity alerts
	AlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pothole",
			Name:      "alerts_total",
			Help:      "Total number of pothole proximity alerts emitted",
		},
		[]string{"severity"},
	)

	once sync.Once
)

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			FixesAccepted,
			FixesDropped,
			LocationErrors,
			ProviderFallbacks,
			AlertsEmitted,
		)
	})
}
