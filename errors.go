package orbits

import "errors"

var (
	// ErrInvalidOrbit is returned when orbital elements or the gravitational parameter are out of domain
	// (e.g. eccentricity outside [0, 1), negative semi major axis, non positive μ).
	ErrInvalidOrbit = errors.New("invalid orbit")
	// ErrNotConverged is returned when an iterative solver exhausts its budget.
	ErrNotConverged = errors.New("did not converge")
	// ErrTransferInfeasible is returned when no finite transfer orbit exists for the requested inputs.
	ErrTransferInfeasible = errors.New("transfer infeasible")
	// ErrUnknownBody is returned by Simulation lookups on an id or name that was never added.
	ErrUnknownBody = errors.New("unknown body")
)
