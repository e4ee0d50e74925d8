package layout

import (
	"math"

	"github.com/lazypower/graphwalk/internal/graph"
)

// applyLinks pulls each edge's endpoints toward LinkDistance. The correction
// is split by degree so the less connected endpoint moves more.
func (s *Simulator) applyLinks() {
	for _, e := range s.g.LiveEdges() {
		if e.Source == e.Target {
			continue
		}
		src, ok1 := s.g.Node(e.Source)
		dst, ok2 := s.g.Node(e.Target)
		if !ok1 || !ok2 {
			continue
		}

		dx := dst.X + dst.VX - src.X - src.VX
		dy := dst.Y + dst.VY - src.Y - src.VY
		if dx == 0 {
			dx = s.jiggle()
		}
		if dy == 0 {
			dy = s.jiggle()
		}
		l := math.Sqrt(dx*dx + dy*dy)

		ds := float64(len(s.g.Adjacent(e.Source)))
		dt := float64(len(s.g.Adjacent(e.Target)))
		strength := s.cfg.LinkStrength
		if strength <= 0 {
			strength = 1 / math.Max(1, math.Min(ds, dt))
		}
		bias := 0.5
		if ds+dt > 0 {
			bias = ds / (ds + dt)
		}

		k := (l - s.cfg.LinkDistance) / l * s.alpha * strength
		dx *= k
		dy *= k
		dst.VX -= dx * bias
		dst.VY -= dy * bias
		src.VX += dx * (1 - bias)
		src.VY += dy * (1 - bias)
	}
}

// applyCharge is the brute-force many-body force: every pair pushes apart
// with strength inversely proportional to distance.
func (s *Simulator) applyCharge(nodes []*graph.Node) {
	minSq := s.cfg.ChargeDistMin * s.cfg.ChargeDistMin
	maxSq := math.Inf(1)
	if s.cfg.ChargeDistMax > 0 {
		maxSq = s.cfg.ChargeDistMax * s.cfg.ChargeDistMax
	}

	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			l := dx*dx + dy*dy
			if l == 0 {
				dx, dy = s.jiggle(), s.jiggle()
				l = dx*dx + dy*dy
			}
			if l >= maxSq {
				continue
			}
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			w := s.cfg.Charge * s.alpha / l
			a.VX += dx * w
			a.VY += dy * w
			b.VX -= dx * w
			b.VY -= dy * w
		}
	}
}

// applyCenter nudges free nodes so the centroid drifts toward the center.
func (s *Simulator) applyCenter(nodes []*graph.Node) {
	if len(nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	k := s.cfg.CenterStrength * s.alpha
	cx := (sx/float64(len(nodes)) - s.cfg.CenterX) * k
	cy := (sy/float64(len(nodes)) - s.cfg.CenterY) * k
	for _, n := range nodes {
		if n.Pinned() {
			continue
		}
		n.VX -= cx
		n.VY -= cy
	}
}

// integrate moves free nodes by their velocity, then damps it. Pinned nodes
// keep the position the drag gave them.
func (s *Simulator) integrate(nodes []*graph.Node) {
	keep := 1 - s.cfg.VelocityDecay
	for _, n := range nodes {
		if n.Pinned() {
			n.VX, n.VY = 0, 0
			continue
		}
		n.X += n.VX
		n.Y += n.VY
		n.VX *= keep
		n.VY *= keep
	}
}

// settleRounds bounds the overlap relaxation run on the tick that settles the
// layout. Per-tick rounds leave small residues in dense clusters.
const settleRounds = 32

// resolveCollisions separates overlapping disks directly in position space,
// for at most rounds passes. A pinned disk does not move; its partner takes
// the whole correction.
func (s *Simulator) resolveCollisions(nodes []*graph.Node, rounds int) {
	minDist := 2 * s.cfg.CollideRadius()
	minSq := minDist * minDist

	for round := 0; round < rounds; round++ {
		moved := false
		for i := 0; i < len(nodes); i++ {
			a := nodes[i]
			for j := i + 1; j < len(nodes); j++ {
				b := nodes[j]
				dx := b.X - a.X
				dy := b.Y - a.Y
				l := dx*dx + dy*dy
				if l >= minSq {
					continue
				}
				wa, wb := 0.5, 0.5
				switch {
				case a.Pinned() && b.Pinned():
					continue
				case a.Pinned():
					wa, wb = 0, 1
				case b.Pinned():
					wa, wb = 1, 0
				}
				if l == 0 {
					dx, dy = s.jiggle(), s.jiggle()
					l = dx*dx + dy*dy
				}
				d := math.Sqrt(l)
				k := (minDist - d) / d * s.cfg.CollideStrength
				a.X -= dx * k * wa
				a.Y -= dy * k * wa
				b.X += dx * k * wb
				b.Y += dy * k * wb
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}
