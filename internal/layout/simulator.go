// Package layout implements the force-directed simulation that positions the
// nodes of a graph.Accumulator.
//
// Each tick sums link, repulsion and centering forces into node velocities,
// all scaled by alpha, integrates velocity into position, damps velocity and
// finally resolves disk overlaps. Alpha decays geometrically toward its
// target; once it drops below AlphaMin the simulator is Settled and Tick
// becomes a no-op until something reheats it.
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lazypower/graphwalk/internal/graph"
)

// ErrUnknownNode is returned when a pin or move names a node that is not in
// the accumulator.
var ErrUnknownNode = errors.New("unknown node")

// State is the simulator's cooling phase.
type State uint8

const (
	Settled State = iota
	Active
	Cooling
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Cooling:
		return "cooling"
	default:
		return "settled"
	}
}

// TransitionFunc observes state changes. It runs synchronously on the
// goroutine that caused the change.
type TransitionFunc func(from, to State)

// Simulator owns the kinematic fields of every node in its accumulator.
// It is not safe for concurrent use.
type Simulator struct {
	cfg Config
	g   *graph.Accumulator
	rng *rand.Rand

	alpha       float64
	alphaTarget float64
	state       State
	ticks       uint64
	reheats     uint64
	placed      int
	fresh       bool
	dragging    int

	onTransition []TransitionFunc
}

// New builds a simulator over g and registers it as g's observer so merges
// seed new nodes and reheat the layout.
func New(g *graph.Accumulator, cfg Config) *Simulator {
	cfg = cfg.withDefaults()
	s := &Simulator{
		cfg:   cfg,
		g:     g,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		fresh: true,
	}
	g.Observe(s)
	return s
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config { return s.cfg }

// Alpha returns the current temperature.
func (s *Simulator) Alpha() float64 { return s.alpha }

// AlphaTarget returns the value alpha decays toward.
func (s *Simulator) AlphaTarget() float64 { return s.alphaTarget }

// State returns the current cooling phase.
func (s *Simulator) State() State { return s.state }

// Ticks returns the number of ticks run since construction or the last clear.
func (s *Simulator) Ticks() uint64 { return s.ticks }

// Reheats returns how many times the layout was reheated.
func (s *Simulator) Reheats() uint64 { return s.reheats }

// OnTransition registers fn to be called on every state change.
func (s *Simulator) OnTransition(fn TransitionFunc) {
	s.onTransition = append(s.onTransition, fn)
}

// NodesAdded seeds positions for freshly merged nodes and reheats when at
// least one was added. It implements graph.Observer.
func (s *Simulator) NodesAdded(ids []string) {
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		s.place(id)
	}
	if s.fresh {
		s.fresh = false
		s.alpha = s.cfg.AlphaStart
		s.reheats++
		s.setState(Active)
		return
	}
	s.Reheat()
}

// Cleared restarts the simulator from empty. It implements graph.Observer.
func (s *Simulator) Cleared() {
	s.alpha = 0
	s.alphaTarget = 0
	s.ticks = 0
	s.placed = 0
	s.dragging = 0
	s.fresh = true
	s.setState(Settled)
}

// Reheat raises alpha to at least AlphaRestart and re-enters Active.
func (s *Simulator) Reheat() {
	if s.alpha < s.cfg.AlphaRestart {
		s.alpha = s.cfg.AlphaRestart
	}
	s.reheats++
	s.setState(Active)
}

// Tick advances the simulation by one step. It returns false without doing
// anything when the simulator is Settled.
func (s *Simulator) Tick() bool {
	if s.state == Settled {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	nodes := s.g.LiveNodes()
	s.applyLinks()
	s.applyCharge(nodes)
	s.applyCenter(nodes)
	s.integrate(nodes)
	s.resolveCollisions(nodes, s.cfg.CollideRounds)
	s.ticks++

	switch {
	case s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin:
		s.resolveCollisions(nodes, settleRounds)
		s.setState(Settled)
	case s.alpha < s.cfg.CoolingAlpha:
		s.setState(Cooling)
	default:
		s.setState(Active)
	}
	return true
}

// RunUntilSettled ticks until the simulator settles or maxTicks is reached,
// returning the number of ticks run.
func (s *Simulator) RunUntilSettled(maxTicks int) int {
	n := 0
	for n < maxTicks && s.Tick() {
		n++
	}
	return n
}

// Pin takes a node out of integration for a drag and reheats the layout.
// Alpha is held at AlphaRestart until every pinned node is released.
func (s *Simulator) Pin(id string) error {
	n, ok := s.g.Node(id)
	if !ok {
		return fmt.Errorf("pin %s: %w", id, ErrUnknownNode)
	}
	if n.State != graph.Pinned {
		n.State = graph.Pinned
		s.dragging++
	}
	n.VX, n.VY = 0, 0
	s.alphaTarget = s.cfg.AlphaRestart
	s.Reheat()
	return nil
}

// MoveTo places a node at (x, y) in simulation space.
func (s *Simulator) MoveTo(id string, x, y float64) error {
	n, ok := s.g.Node(id)
	if !ok {
		return fmt.Errorf("move %s: %w", id, ErrUnknownNode)
	}
	n.X, n.Y = x, y
	n.Placed = true
	return nil
}

// Release returns a pinned node to the simulation. Once no node is pinned
// alpha resumes decaying toward zero.
func (s *Simulator) Release(id string) error {
	n, ok := s.g.Node(id)
	if !ok {
		return fmt.Errorf("release %s: %w", id, ErrUnknownNode)
	}
	if n.State == graph.Pinned {
		n.State = graph.Free
		s.dragging--
	}
	if s.dragging <= 0 {
		s.dragging = 0
		s.alphaTarget = 0
	}
	return nil
}

func (s *Simulator) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	for _, fn := range s.onTransition {
		fn(from, to)
	}
}

// place seeds an initial position: near an already placed neighbor when one
// exists, otherwise on a phyllotaxis spiral around the center.
func (s *Simulator) place(id string) {
	n, ok := s.g.Node(id)
	if !ok || n.Placed {
		return
	}
	defer func() {
		n.VX, n.VY = 0, 0
		n.Placed = true
		s.placed++
	}()

	for _, adj := range s.g.Adjacent(id) {
		p, ok := s.g.Node(adj)
		if !ok || !p.Placed {
			continue
		}
		angle := s.rng.Float64() * 2 * math.Pi
		dist := s.cfg.LinkDistance * (0.4 + 0.2*s.rng.Float64())
		n.X = p.X + dist*math.Cos(angle)
		n.Y = p.Y + dist*math.Sin(angle)
		return
	}

	i := float64(s.placed)
	radius := 10 * math.Sqrt(0.5+i)
	angle := i * math.Pi * (3 - math.Sqrt(5))
	n.X = s.cfg.CenterX + radius*math.Cos(angle)
	n.Y = s.cfg.CenterY + radius*math.Sin(angle)
}

func (s *Simulator) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
