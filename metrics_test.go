package orbits

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsSimulation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	sim, _, planet, moon := solarSystem(t, WithMetrics(m))
	if v := testutil.ToFloat64(m.Bodies); v != 3 {
		t.Fatalf("bodies gauge %f", v)
	}
	if _, err := sim.AddBody("Satellite", Orbit{SemiMajorAxis: 0.01}, moon, 0); err != nil {
		t.Fatal(err)
	}
	tr, err := sim.PlanTransfer(planet, Orbit{SemiMajorAxis: 4}, 0)
	if err != nil {
		t.Fatal(err)
	}
	sim.PushTransfer(planet, tr)
	if _, err := sim.PlanTransfer(planet, Orbit{SemiMajorAxis: 6}, -1); err == nil {
		t.Fatal("expected an infeasible transfer")
	}
	for i := 0; i < 3; i++ {
		sim.Tick(float64(i))
	}
	if v := testutil.ToFloat64(m.Ticks); v != 3 {
		t.Fatalf("ticks %f", v)
	}
	if v := testutil.ToFloat64(m.ManeuversApplied); v != 1 {
		t.Fatalf("maneuvers %f", v)
	}
	if v := testutil.ToFloat64(m.BodyErrors.WithLabelValues("invalid_orbit")); v != 3 {
		t.Fatalf("body errors %f", v)
	}
	if v := testutil.ToFloat64(m.TransfersPlanned.WithLabelValues("hohmann", "ok")); v != 1 {
		t.Fatalf("planned transfers %f", v)
	}
	if v := testutil.ToFloat64(m.TransfersPlanned.WithLabelValues("hohmann", "infeasible")); v != 1 {
		t.Fatalf("infeasible transfers %f", v)
	}
	if n := testutil.CollectAndCount(m.TickDuration); n != 1 {
		t.Fatalf("tick duration has %d series", n)
	}
}

func TestMetricsRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	m1.Ticks.Inc()
	if v := testutil.ToFloat64(m2.Ticks); v != 1 {
		t.Fatal("second registration does not share the collectors")
	}
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	m.Ticks.Add(5)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "orbits_ticks_total 5") {
		t.Fatalf("metrics output:\n%s", body)
	}
}

func TestErrorKind(t *testing.T) {
	for err, exp := range map[error]string{
		fmt.Errorf("x: %w", ErrInvalidOrbit):       "invalid_orbit",
		fmt.Errorf("x: %w", ErrNotConverged):       "not_converged",
		fmt.Errorf("x: %w", ErrTransferInfeasible): "infeasible",
		fmt.Errorf("x: %w", ErrUnknownBody):        "unknown_body",
		errors.New("boom"):                         "other",
	} {
		if kind := errorKind(err); kind != exp {
			t.Fatalf("%s: kind %s expected %s", err, kind, exp)
		}
	}
	// Metrics are optional.
	var m *Metrics
	m.bodyError(ErrInvalidOrbit)
	m.planned(Tangential, nil)
}
