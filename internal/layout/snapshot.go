package layout

// Body is a read-only copy of one node's kinematic state.
type Body struct {
	ID     string
	X, Y   float64
	VX, VY float64
	Pinned bool
}

// Snapshot is a copy of the simulator state at one tick. Mutating it has no
// effect on the simulation.
type Snapshot struct {
	Tick   uint64
	Alpha  float64
	State  State
	Bodies []Body
}

// Snapshot copies the current positions in accumulator insertion order.
func (s *Simulator) Snapshot() Snapshot {
	nodes := s.g.LiveNodes()
	bodies := make([]Body, len(nodes))
	for i, n := range nodes {
		bodies[i] = Body{
			ID:     n.ID,
			X:      n.X,
			Y:      n.Y,
			VX:     n.VX,
			VY:     n.VY,
			Pinned: n.Pinned(),
		}
	}
	return Snapshot{
		Tick:   s.ticks,
		Alpha:  s.alpha,
		State:  s.state,
		Bodies: bodies,
	}
}
