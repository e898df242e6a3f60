package orbits

import (
	"errors"
	"fmt"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// BodyID identifies a body of a Simulation.
type BodyID int

// NoParent is the parent of root bodies.
const NoParent BodyID = -1

// Body is a snapshot of a body of the simulation.
type Body struct {
	Name   string
	Orbit  Orbit
	Parent BodyID
	Mu     float64 // Gravitational parameter of this body for its children, zero if none.
}

type body struct {
	Body
	schedule TransferSchedule
	R, V     []float64 // relative to the parent, as of the last tick
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger of the simulation.
func WithLogger(logger kitlog.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics the simulation reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Simulation) {
		s.metrics = m
	}
}

// WithFrame sets the plane of the parent frame the orbits lie in.
func WithFrame(f Frame) Option {
	return func(s *Simulation) {
		s.frame = f
	}
}

// Simulation owns a hierarchy of bodies, applies their maneuvers and computes their positions.
// Bodies are stored in insertion order and a parent must exist before its children, hence the
// body list is always in topological (parent before child) order.
// A Simulation is not safe for concurrent use.
type Simulation struct {
	bodies  []*body
	byName  map[string]BodyID
	frame   Frame
	logger  kitlog.Logger
	metrics *Metrics
	t       float64
	ticked  bool
}

// NewSimulation returns an empty simulation.
func NewSimulation(opts ...Option) *Simulation {
	s := &Simulation{byName: make(map[string]BodyID), logger: kitlog.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddBody adds a body on the provided orbit about the parent (NoParent for a root body).
// μ is the gravitational parameter this body exerts on its own children (zero if none).
func (s *Simulation) AddBody(name string, o Orbit, parent BodyID, μ float64) (BodyID, error) {
	if _, exists := s.byName[name]; exists && name != "" {
		return NoParent, fmt.Errorf("body `%s` already exists", name)
	}
	if parent != NoParent {
		if _, err := s.get(parent); err != nil {
			return NoParent, err
		}
	}
	if err := o.Validate(); err != nil {
		return NoParent, fmt.Errorf("body `%s`: %w", name, err)
	}
	if parent == NoParent && !o.Fixed() {
		return NoParent, fmt.Errorf("body `%s`: %w: orbit without a parent", name, ErrInvalidOrbit)
	}
	if !finite(μ) || μ < 0 {
		return NoParent, fmt.Errorf("body `%s`: %w: gravitational parameter %g", name, ErrInvalidOrbit, μ)
	}
	id := BodyID(len(s.bodies))
	s.bodies = append(s.bodies, &body{Body: Body{Name: name, Orbit: o, Parent: parent, Mu: μ}, R: []float64{0, 0, 0}, V: []float64{0, 0, 0}})
	if name != "" {
		s.byName[name] = id
	}
	if s.metrics != nil {
		s.metrics.Bodies.Set(float64(len(s.bodies)))
	}
	level.Debug(s.logger).Log("subsys", "sim", "added", name, "id", id, "parent", parent, "orbit", o)
	return id, nil
}

func (s *Simulation) get(id BodyID) (*body, error) {
	if id < 0 || int(id) >= len(s.bodies) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownBody, id)
	}
	return s.bodies[id], nil
}

// mu returns the gravitational parameter the body moves under, i.e. its parent's.
func (s *Simulation) mu(b *body) float64 {
	if b.Parent == NoParent {
		return 0
	}
	return s.bodies[b.Parent].Mu
}

// Tick advances the simulation to the absolute time t: first every due maneuver is applied, then the
// position of every body is computed in parent before child order.
// A failure for one body does not prevent the others from updating; such a body keeps its
// previous position and all failures are returned joined.
func (s *Simulation) Tick(t float64) error {
	start := time.Now()
	if s.ticked && t < s.t {
		level.Warn(s.logger).Log("subsys", "sim", "message", "time went backward", "from", s.t, "to", t)
	}

	for _, b := range s.bodies {
		if m, ok := b.schedule.Apply(&b.Orbit, t); ok {
			level.Info(s.logger).Log("subsys", "astro", "body", b.Name, "t", t, "maneuver", m.ExecutionTime, "orbit", b.Orbit)
			if s.metrics != nil {
				s.metrics.ManeuversApplied.Inc()
			}
		}
	}

	var errs []error
	for _, b := range s.bodies {
		R, V, err := b.Orbit.RV(s.mu(b), t, s.frame)
		if err != nil {
			level.Error(s.logger).Log("subsys", "astro", "body", b.Name, "t", t, "err", err)
			s.metrics.bodyError(err)
			errs = append(errs, fmt.Errorf("body `%s`: %w", b.Name, err))
			continue
		}
		b.R, b.V = R, V
	}

	s.t, s.ticked = t, true
	if s.metrics != nil {
		s.metrics.Ticks.Inc()
		s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}
	return errors.Join(errs...)
}

// LogStatus logs the orbit and pending maneuvers of every body.
func (s *Simulation) LogStatus() {
	for _, b := range s.bodies {
		level.Info(s.logger).Log("subsys", "sim", "t", s.t, "body", b.Name, "orbit", b.Orbit, "pending", b.schedule.Pending())
	}
}

// Time returns the time of the last tick.
func (s *Simulation) Time() float64 {
	return s.t
}

// Frame returns the plane of the parent frame the orbits lie in.
func (s *Simulation) Frame() Frame {
	return s.frame
}

// Len returns the number of bodies.
func (s *Simulation) Len() int {
	return len(s.bodies)
}

// Lookup returns the id of the body with that name.
func (s *Simulation) Lookup(name string) (BodyID, error) {
	id, ok := s.byName[name]
	if !ok {
		return NoParent, fmt.Errorf("%w: `%s`", ErrUnknownBody, name)
	}
	return id, nil
}

// Body returns a snapshot of the body.
func (s *Simulation) Body(id BodyID) (Body, error) {
	b, err := s.get(id)
	if err != nil {
		return Body{}, err
	}
	return b.Body, nil
}

// Orbit returns the current orbit of the body.
func (s *Simulation) Orbit(id BodyID) (Orbit, error) {
	b, err := s.get(id)
	if err != nil {
		return Orbit{}, err
	}
	return b.Orbit, nil
}

// GravitationalParameter returns the gravitational parameter the body moves under.
func (s *Simulation) GravitationalParameter(id BodyID) (float64, error) {
	b, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return s.mu(b), nil
}

// Schedule returns the transfer schedule of the body.
func (s *Simulation) Schedule(id BodyID) (*TransferSchedule, error) {
	b, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return &b.schedule, nil
}

// Position returns the position of the body relative to its parent as of the last tick.
func (s *Simulation) Position(id BodyID) ([]float64, error) {
	b, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), b.R...), nil
}

// Velocity returns the velocity of the body relative to its parent as of the last tick.
func (s *Simulation) Velocity(id BodyID) ([]float64, error) {
	b, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), b.V...), nil
}

// WorldPositions composes the relative positions of the last tick into positions relative to the
// roots, indexed by BodyID. This is a separate pass: Tick never needs it.
func (s *Simulation) WorldPositions() [][]float64 {
	world := make([][]float64, len(s.bodies))
	for id, b := range s.bodies {
		if b.Parent == NoParent {
			world[id] = append([]float64(nil), b.R...)
			continue
		}
		world[id] = add(world[b.Parent], b.R)
	}
	return world
}

// PlanTransfer plans a transfer of the body onto the target orbit departing at the absolute time at.
// The transfer departs from the orbit the body will be on once its queued transfers have executed.
// The transfer is not queued (cf. PushTransfer).
func (s *Simulation) PlanTransfer(id BodyID, target Orbit, at float64) (Transfer, error) {
	b, err := s.get(id)
	if err != nil {
		return Transfer{}, err
	}
	start := b.Orbit
	if last, ok := b.schedule.Last(); ok {
		start = last
		lastTr := b.schedule.transfers[b.schedule.Len()-1]
		if end := lastTr.Maneuvers[lastTr.Len()-1].ExecutionTime; at < end {
			err = fmt.Errorf("%w: departure at %g before the queued transfers end at %g", ErrTransferInfeasible, at, end)
			s.metrics.planned(Classify(start, target), err)
			return Transfer{}, err
		}
	}
	tr, err := PlanTransfer(start, target, s.mu(b), at)
	s.metrics.planned(Classify(start, target), err)
	if err != nil {
		level.Warn(s.logger).Log("subsys", "plan", "body", b.Name, "at", at, "target", target, "err", err)
		return Transfer{}, fmt.Errorf("body `%s`: %w", b.Name, err)
	}
	level.Debug(s.logger).Log("subsys", "plan", "body", b.Name, "at", at, "maneuvers", tr.Len(), "duration", tr.Duration())
	return tr, nil
}

// PushTransfer queues the transfer on the body's schedule.
func (s *Simulation) PushTransfer(id BodyID, tr Transfer) error {
	b, err := s.get(id)
	if err != nil {
		return err
	}
	b.schedule.PushTransfer(tr)
	level.Info(s.logger).Log("subsys", "plan", "body", b.Name, "queued", tr.Len(), "pending", b.schedule.Pending())
	return nil
}

// SetOrbit replaces the orbit of the body at time t. The new orbit is rephased so that the body does not
// jump along its orbit (cf. Rephased).
func (s *Simulation) SetOrbit(id BodyID, o Orbit, t float64) error {
	b, err := s.get(id)
	if err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	if b.Parent == NoParent && !o.Fixed() {
		return fmt.Errorf("body `%s`: %w: orbit without a parent", b.Name, ErrInvalidOrbit)
	}
	if !b.schedule.Idle() {
		level.Warn(s.logger).Log("subsys", "sim", "body", b.Name, "message", "orbit edited with transfers queued", "pending", b.schedule.Pending())
	}
	μ := s.mu(b)
	b.Orbit = Rephased(b.Orbit, μ, o, μ, t)
	return nil
}

// SetGravitationalParameter changes the gravitational parameter of the body at time t. The orbits of
// its children are rephased so that they do not jump along their orbits.
func (s *Simulation) SetGravitationalParameter(id BodyID, μ, t float64) error {
	b, err := s.get(id)
	if err != nil {
		return err
	}
	if !finite(μ) || μ < 0 {
		return fmt.Errorf("%w: gravitational parameter %g", ErrInvalidOrbit, μ)
	}
	old := b.Mu
	b.Mu = μ
	for _, c := range s.bodies {
		if c.Parent != id {
			continue
		}
		if old > 0 && μ > 0 {
			c.Orbit = c.Orbit.Rephase(old, μ, t)
		}
		if !c.schedule.Idle() {
			level.Warn(s.logger).Log("subsys", "sim", "body", c.Name, "message", "parent gravitational parameter changed with transfers queued")
		}
	}
	return nil
}
