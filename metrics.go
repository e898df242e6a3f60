package orbits

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus metrics of a Simulation.
type Metrics struct {
	gatherer prometheus.Gatherer

	Ticks            prometheus.Counter
	TickDuration     prometheus.Histogram
	ManeuversApplied prometheus.Counter
	BodyErrors       *prometheus.CounterVec
	TransfersPlanned *prometheus.CounterVec
	Bodies           prometheus.Gauge
}

// NewMetrics registers the simulation metrics against the provided registerer, defaulting to the
// global Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	m := &Metrics{gatherer: gatherer}
	var err error
	if m.Ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbits_ticks_total",
		Help: "Total number of simulation ticks.",
	}), "orbits_ticks_total"); err != nil {
		return nil, err
	}
	if m.TickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbits_tick_duration_seconds",
		Help:    "Wall clock duration of a simulation tick in seconds.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1},
	}), "orbits_tick_duration_seconds"); err != nil {
		return nil, err
	}
	if m.ManeuversApplied, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbits_maneuvers_applied_total",
		Help: "Total number of maneuvers executed by transfer schedules.",
	}), "orbits_maneuvers_applied_total"); err != nil {
		return nil, err
	}
	if m.BodyErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbits_body_errors_total",
		Help: "Total number of per body computation failures, labeled by kind.",
	}, []string{"kind"}), "orbits_body_errors_total"); err != nil {
		return nil, err
	}
	if m.TransfersPlanned, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orbits_transfers_planned_total",
		Help: "Total number of transfer plans, labeled by algorithm and result.",
	}, []string{"case", "result"}), "orbits_transfers_planned_total"); err != nil {
		return nil, err
	}
	if m.Bodies, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbits_bodies",
		Help: "Current number of bodies in the simulation.",
	}), "orbits_bodies"); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler returns the Prometheus HTTP handler for the gatherer these metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) bodyError(err error) {
	if m == nil {
		return
	}
	m.BodyErrors.WithLabelValues(errorKind(err)).Inc()
}

func (m *Metrics) planned(c TransferCase, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errorKind(err)
	}
	m.TransfersPlanned.WithLabelValues(c.String(), result).Inc()
}

// errorKind maps an error to a low cardinality label.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOrbit):
		return "invalid_orbit"
	case errors.Is(err, ErrNotConverged):
		return "not_converged"
	case errors.Is(err, ErrTransferInfeasible):
		return "infeasible"
	case errors.Is(err, ErrUnknownBody):
		return "unknown_body"
	}
	return "other"
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
