package orbits

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-kit/kit/log/level"
)

// StatusEvery is the wall clock period of the status reports during a run.
const StatusEvery = 10 * time.Second

// State stores the state of a body at a tick.
type State struct {
	T     float64 // simulation time in seconds
	Body  string
	Orbit Orbit
	R, V  []float64 // relative to the parent
}

// Run ticks the simulation from zero to the scenario duration, every scenario step, and sends the state
// of every body after each tick to the states channel (if not nil), which is closed when Run returns.
// Per body failures are logged by the simulation and do not stop the run; the last of them is returned.
// If the scenario is realtime, ticks are paced on the wall clock. Run stops early when ctx is done.
func (sc *Scenario) Run(ctx context.Context, sim *Simulation, states chan<- State) (err error) {
	if states != nil {
		defer close(states)
	}
	var pace <-chan time.Time
	if sc.Realtime > 0 {
		ticker := time.NewTicker(time.Duration(sc.Step / sc.Realtime * float64(time.Second)))
		defer ticker.Stop()
		pace = ticker.C
	}
	status := time.NewTicker(StatusEvery)
	defer status.Stop()

	steps := int(math.Floor(sc.Duration/sc.Step + 1e-9))
	for i := 0; i <= steps; i++ {
		t := float64(i) * sc.Step
		if tickErr := sim.Tick(t); tickErr != nil {
			err = tickErr
		}
		if states != nil {
			for id := 0; id < sim.Len(); id++ {
				b := sim.bodies[id]
				select {
				case states <- State{T: t, Body: b.Name, Orbit: b.Orbit, R: append([]float64(nil), b.R...), V: append([]float64(nil), b.V...)}:
				case <-ctx.Done():
					return errors.Join(err, ctx.Err())
				}
			}
		}
		select {
		case <-status.C:
			sim.LogStatus()
		default:
		}
		if pace != nil && i < steps {
			select {
			case <-pace:
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			}
		} else if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
	}
	level.Info(sim.logger).Log("subsys", "sim", "status", "finished", "t", sim.Time(), "ticks", steps+1)
	return err
}
