package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every store collector. It is separate from the default
// registry so the CLI can dump exactly these series and tests can read them.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// SaveDuration measures commit time from flush to rename.
	SaveDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "brillouin",
		Subsystem: "store",
		Name:      "save_duration_seconds",
		Help:      "Time to copy the working copy into a new committed snapshot",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// DirtyCheckDuration measures the working copy versus snapshot walk.
	DirtyCheckDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "brillouin",
		Subsystem: "store",
		Name:      "dirty_check_duration_seconds",
		Help:      "Time to diff the working copy against the committed snapshot",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// Mutations counts committed working-copy transactions.
	// Labels: op (entity operation name)
	Mutations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brillouin",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Committed working-copy mutations by operation",
	}, []string{"op"})

	// SaveFailures counts Save calls that left the old snapshot in place.
	SaveFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "brillouin",
		Subsystem: "store",
		Name:      "save_failures_total",
		Help:      "Save attempts that failed before replacing the snapshot",
	})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
