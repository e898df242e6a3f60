package orbits

// TransferSchedule is the queue of transfers of a body.
// Only the front transfer is active: the maneuvers of a transfer are never inspected until every
// maneuver of the transfers before it has executed. Executed maneuvers are dropped for good.
// The zero value is an empty schedule ready to use.
type TransferSchedule struct {
	transfers []Transfer
}

// PushTransfer appends a transfer to the back of the queue. Empty transfers are ignored.
// There is no check that the transfer starts from the orbit the body will be on: that's up to the caller
// (cf. Last).
func (s *TransferSchedule) PushTransfer(tr Transfer) {
	if len(tr.Maneuvers) == 0 {
		return
	}
	// Copy so that the caller's slice is never consumed.
	mnvrs := make([]Maneuver, len(tr.Maneuvers))
	copy(mnvrs, tr.Maneuvers)
	s.transfers = append(s.transfers, Transfer{Maneuvers: mnvrs})
}

// Advance pops and returns the front maneuver if it is due at time t.
// At most one maneuver is returned per call, even if several are overdue: the next one is only
// considered on the following call.
func (s *TransferSchedule) Advance(t float64) (Maneuver, bool) {
	m, ok := s.Next()
	if !ok || !(t >= m.ExecutionTime) {
		return Maneuver{}, false
	}
	front := &s.transfers[0]
	front.Maneuvers = front.Maneuvers[1:]
	if len(front.Maneuvers) == 0 {
		s.transfers[0] = Transfer{}
		s.transfers = s.transfers[1:]
	}
	return m, true
}

// Apply advances the schedule and, if a maneuver executed, overwrites the orbit with its target.
func (s *TransferSchedule) Apply(o *Orbit, t float64) (Maneuver, bool) {
	m, ok := s.Advance(t)
	if ok {
		*o = m.Target
	}
	return m, ok
}

// Next returns the maneuver which will execute next without removing it.
func (s *TransferSchedule) Next() (Maneuver, bool) {
	if len(s.transfers) == 0 {
		return Maneuver{}, false
	}
	return s.transfers[0].Maneuvers[0], true
}

// Last returns the orbit the body ends on once every queued maneuver has executed.
func (s *TransferSchedule) Last() (Orbit, bool) {
	if len(s.transfers) == 0 {
		return Orbit{}, false
	}
	return s.transfers[len(s.transfers)-1].Final()
}

// Idle returns whether no transfer is queued.
func (s *TransferSchedule) Idle() bool {
	return len(s.transfers) == 0
}

// Len returns the number of queued transfers.
func (s *TransferSchedule) Len() int {
	return len(s.transfers)
}

// Pending returns the number of maneuvers yet to execute.
func (s *TransferSchedule) Pending() (n int) {
	for _, tr := range s.transfers {
		n += len(tr.Maneuvers)
	}
	return
}

// Clear drops every queued transfer, including the rest of a transfer under way.
func (s *TransferSchedule) Clear() {
	s.transfers = nil
}
