package layout

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/lazypower/graphwalk/internal/graph"
)

func chainBatch(ids ...string) graph.Batch {
	b := graph.Batch{Focal: graph.Entity{ID: ids[0], Category: "person", Name: ids[0]}}
	for i, id := range ids[1:] {
		b.Related = append(b.Related, graph.Entity{ID: id, Category: "person", Name: id})
		b.Relationships = append(b.Relationships, graph.Relationship{
			ID:             "r-" + id,
			SourceEntityID: ids[i],
			TargetEntityID: id,
			Category:       "related_to",
		})
	}
	return b
}

func looseBatch(ids ...string) graph.Batch {
	b := graph.Batch{Focal: graph.Entity{ID: ids[0], Category: "person", Name: ids[0]}}
	for _, id := range ids[1:] {
		b.Related = append(b.Related, graph.Entity{ID: id, Category: "person", Name: id})
	}
	return b
}

func newSim(t *testing.T, cfg Config) (*graph.Accumulator, *Simulator) {
	t.Helper()
	acc := graph.NewAccumulator()
	return acc, New(acc, cfg)
}

func mustMerge(t *testing.T, acc *graph.Accumulator, b graph.Batch) {
	t.Helper()
	if _, err := acc.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
}

func dist(a, b *graph.Node) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func TestNewSimulatorIsSettled(t *testing.T) {
	_, sim := newSim(t, DefaultConfig())
	if sim.State() != Settled {
		t.Errorf("State = %v, want settled", sim.State())
	}
	if sim.Tick() {
		t.Error("Tick on empty simulator should be a no-op")
	}
}

func TestAlphaDecayTerminates(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b", "c", "d"))

	if sim.State() != Active {
		t.Fatalf("State after merge = %v, want active", sim.State())
	}
	if sim.Alpha() != 1 {
		t.Errorf("Alpha after first merge = %v, want 1", sim.Alpha())
	}

	n := sim.RunUntilSettled(10000)
	if n == 0 || n >= 10000 {
		t.Fatalf("RunUntilSettled = %d ticks, want a finite positive count", n)
	}
	if sim.State() != Settled {
		t.Fatalf("State = %v, want settled", sim.State())
	}
	if sim.Alpha() >= sim.Config().AlphaMin {
		t.Errorf("Alpha = %v, want below %v", sim.Alpha(), sim.Config().AlphaMin)
	}

	plateau := sim.Ticks()
	for i := 0; i < 50; i++ {
		if sim.Tick() {
			t.Fatal("Tick after settling reported progress")
		}
	}
	if sim.Ticks() != plateau {
		t.Errorf("Ticks = %d after settling, want %d", sim.Ticks(), plateau)
	}
}

func TestStateTransitions(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	var seen []State
	sim.OnTransition(func(from, to State) { seen = append(seen, to) })

	mustMerge(t, acc, chainBatch("a", "b"))
	sim.RunUntilSettled(10000)

	want := []State{Active, Cooling, Settled}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestMergeReheatsOnlyForNewNodes(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b"))
	sim.RunUntilSettled(10000)

	// Re-merging known nodes adds nothing and must not wake the layout.
	mustMerge(t, acc, chainBatch("a", "b"))
	if sim.State() != Settled {
		t.Errorf("State after no-op merge = %v, want settled", sim.State())
	}

	mustMerge(t, acc, chainBatch("b", "c"))
	if sim.State() != Active {
		t.Errorf("State after growing merge = %v, want active", sim.State())
	}
	if got, want := sim.Alpha(), sim.Config().AlphaRestart; got != want {
		t.Errorf("Alpha = %v, want %v", got, want)
	}
}

func TestNewNodesSeededNearNeighbor(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b"))
	sim.RunUntilSettled(10000)

	b, _ := acc.Node("b")
	b.X, b.Y = 5000, 5000
	mustMerge(t, acc, chainBatch("b", "c"))

	c, _ := acc.Node("c")
	if !c.Placed {
		t.Fatal("new node was not placed")
	}
	if d := dist(b, c); d > sim.Config().LinkDistance {
		t.Errorf("c seeded %v away from b, want within %v", d, sim.Config().LinkDistance)
	}
}

func TestLinkPullsTowardRestLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Charge = -1e-9
	acc, sim := newSim(t, cfg)
	mustMerge(t, acc, chainBatch("a", "b"))

	a, _ := acc.Node("a")
	b, _ := acc.Node("b")
	a.X, a.Y = -400, 0
	b.X, b.Y = 400, 0

	sim.RunUntilSettled(10000)

	if d := dist(a, b); math.Abs(d-cfg.LinkDistance) > 10 {
		t.Errorf("distance = %v, want about %v", d, cfg.LinkDistance)
	}
}

func TestRepulsionPushesApart(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, looseBatch("a", "b"))

	a, _ := acc.Node("a")
	b, _ := acc.Node("b")
	a.X, a.Y = -30, 0
	b.X, b.Y = 30, 0

	sim.Tick()
	if d := dist(a, b); d <= 60 {
		t.Errorf("distance after tick = %v, want > 60", d)
	}
}

func TestCollisionSeparatesDisks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Charge = -1e-9
	acc, sim := newSim(t, cfg)
	mustMerge(t, acc, looseBatch("a", "b"))

	a, _ := acc.Node("a")
	b, _ := acc.Node("b")
	a.X, a.Y = 0, 0
	b.X, b.Y = 3, 4

	sim.Tick()

	min := 2 * cfg.CollideRadius()
	if d := dist(a, b); d < min-1e-9 {
		t.Errorf("distance = %v, want >= %v", d, min)
	}
}

func TestCollisionKeepsPinnedDiskInPlace(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, looseBatch("a", "b"))

	if err := sim.Pin("a"); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	sim.MoveTo("a", 10, 10)
	b, _ := acc.Node("b")
	b.X, b.Y = 12, 10

	sim.Tick()

	a, _ := acc.Node("a")
	if a.X != 10 || a.Y != 10 {
		t.Errorf("pinned a moved to (%v,%v)", a.X, a.Y)
	}
	if d := dist(a, b); d < 2*sim.Config().CollideRadius()-1e-9 {
		t.Errorf("distance = %v, want disks separated", d)
	}
}

func starBatch(hub string, leaves int) graph.Batch {
	b := graph.Batch{Focal: graph.Entity{ID: hub, Category: "organization", Name: hub}}
	for i := 0; i < leaves; i++ {
		id := fmt.Sprintf("leaf-%03d", i)
		b.Related = append(b.Related, graph.Entity{ID: id, Category: "person", Name: id})
		b.Relationships = append(b.Relationships, graph.Relationship{
			ID:             "r-" + id,
			SourceEntityID: hub,
			TargetEntityID: id,
			Category:       "employee_of",
		})
	}
	return b
}

func TestSettledStarHasNoVisualOverlap(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, starBatch("hub", 200))

	sim.RunUntilSettled(10000)
	if sim.State() != Settled {
		t.Fatalf("State = %v, want settled", sim.State())
	}

	visual := 2 * sim.Config().NodeRadius
	nodes := acc.LiveNodes()
	closest := math.Inf(1)
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			closest = math.Min(closest, dist(nodes[i], nodes[j]))
		}
	}
	if closest < visual {
		t.Errorf("closest pair = %.2f apart, want >= %.2f", closest, visual)
	}
}

func TestCenteringPullsCentroid(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, looseBatch("a", "b", "c"))
	offsets := [][2]float64{{900, 1000}, {1100, 1000}, {1000, 1150}}
	for i, n := range acc.LiveNodes() {
		n.X, n.Y = offsets[i][0], offsets[i][1]
	}

	centroid := func() float64 {
		var sx, sy float64
		for _, n := range acc.LiveNodes() {
			sx += n.X
			sy += n.Y
		}
		return math.Hypot(sx/3, sy/3)
	}

	before := centroid()
	for i := 0; i < 50; i++ {
		sim.Tick()
	}
	if after := centroid(); after >= before {
		t.Errorf("centroid distance %v -> %v, want it to shrink", before, after)
	}
}

func TestPinnedNodeTracksExternalPosition(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b", "c"))
	sim.RunUntilSettled(10000)

	if err := sim.Pin("b"); err != nil {
		t.Fatalf("Pin: %v", err)
	}
	if sim.State() != Active {
		t.Errorf("State after pin = %v, want active", sim.State())
	}

	b, _ := acc.Node("b")
	for i := 0; i < 30; i++ {
		x, y := float64(1000+i*3), float64(-200-i)
		sim.MoveTo("b", x, y)
		sim.Tick()
		if b.X != x || b.Y != y {
			t.Fatalf("tick %d: b at (%v,%v), want (%v,%v)", i, b.X, b.Y, x, y)
		}
		if !b.Pinned() {
			t.Fatalf("tick %d: b not pinned", i)
		}
	}

	// A held drag keeps the layout warm.
	for i := 0; i < 1000; i++ {
		sim.Tick()
	}
	if sim.State() == Settled {
		t.Error("simulator settled while a node was pinned")
	}

	if err := sim.Release("b"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if b.Pinned() {
		t.Error("b still pinned after release")
	}
	if sim.AlphaTarget() != 0 {
		t.Errorf("AlphaTarget = %v, want 0", sim.AlphaTarget())
	}

	x, y := b.X, b.Y
	sim.Tick()
	if b.X == x && b.Y == y {
		t.Error("released node did not move")
	}
	if n := sim.RunUntilSettled(10000); n >= 10000 {
		t.Error("simulator did not settle after release")
	}
}

func TestPinUnknownNode(t *testing.T) {
	_, sim := newSim(t, DefaultConfig())
	if err := sim.Pin("nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Pin err = %v, want ErrUnknownNode", err)
	}
	if err := sim.MoveTo("nope", 1, 1); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("MoveTo err = %v, want ErrUnknownNode", err)
	}
	if err := sim.Release("nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Release err = %v, want ErrUnknownNode", err)
	}
}

func TestClearedRestartsFromEmpty(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b"))
	sim.Tick()

	acc.Reset()
	if sim.State() != Settled || sim.Ticks() != 0 || sim.Alpha() != 0 {
		t.Errorf("after reset: state=%v ticks=%d alpha=%v", sim.State(), sim.Ticks(), sim.Alpha())
	}

	mustMerge(t, acc, chainBatch("x", "y"))
	if sim.Alpha() != sim.Config().AlphaStart {
		t.Errorf("Alpha after first merge post-reset = %v, want %v", sim.Alpha(), sim.Config().AlphaStart)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	acc, sim := newSim(t, DefaultConfig())
	mustMerge(t, acc, chainBatch("a", "b"))

	snap := sim.Snapshot()
	if len(snap.Bodies) != 2 {
		t.Fatalf("len(Bodies) = %d, want 2", len(snap.Bodies))
	}
	a, _ := acc.Node("a")
	x := a.X
	snap.Bodies[0].X += 999

	if a.X != x {
		t.Error("mutating a snapshot changed the node")
	}
}
