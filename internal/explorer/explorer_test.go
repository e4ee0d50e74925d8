package explorer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/graph"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/layout"
)

func fastLayout() layout.Config {
	cfg := layout.DefaultConfig()
	cfg.AlphaDecay = 0.2
	return cfg
}

func newExplorer(t *testing.T) *Explorer {
	t.Helper()
	return New(Options{Layout: fastLayout(), SearchLimit: 5})
}

func expand(t *testing.T, e *Explorer, nb fetch.Neighbors) graph.MergeResult {
	t.Helper()
	res, err := e.FinishExpand(e.BeginExpand(nb.Entity.ID), nb, nil)
	if err != nil {
		t.Fatalf("FinishExpand(%s): %v", nb.Entity.ID, err)
	}
	return res
}

type nodeSummary struct {
	Label    string
	Category graph.NodeCategory
}

type edgeSummary struct {
	Source, Target string
	Category       graph.EdgeCategory
}

func summarize(g *graph.Accumulator) (map[string]nodeSummary, map[string]edgeSummary) {
	nodes := map[string]nodeSummary{}
	for _, n := range g.Nodes() {
		nodes[n.ID] = nodeSummary{Label: n.Label, Category: n.Category}
	}
	edges := map[string]edgeSummary{}
	for _, e := range g.Edges() {
		edges[e.ID] = edgeSummary{Source: e.Source, Target: e.Target, Category: e.Category}
	}
	return nodes, edges
}

func TestSearchThenExpandScenario(t *testing.T) {
	e := newExplorer(t)
	f := newFakeFetcher()

	st := e.BeginSearch("Acme", "")
	if st.Limit != 5 {
		t.Errorf("Limit = %d, want 5", st.Limit)
	}
	res, _ := f.SearchByQuery(context.Background(), "Acme", st.Limit, "")
	if err := e.FinishSearch(st, res, nil); err != nil {
		t.Fatalf("FinishSearch: %v", err)
	}
	search := e.Search()
	if search.Pending || search.Total != 1 || len(search.Entities) != 1 || search.Entities[0].ID != "e1" {
		t.Fatalf("search = %+v", search)
	}
	if e.Graph().Len() != 0 {
		t.Errorf("search merged %d nodes, want 0", e.Graph().Len())
	}

	expand(t, e, acmeNeighbors())
	nodes, edges := summarize(e.Graph())
	if len(nodes) != 2 || len(edges) != 1 {
		t.Fatalf("after first expand: %d nodes, %d edges, want 2, 1", len(nodes), len(edges))
	}

	e.Simulator().RunUntilSettled(1000)
	before := map[string]graph.Node{}
	for _, n := range e.Graph().Nodes() {
		before[n.ID] = n
	}

	expand(t, e, johnNeighbors())
	nodes, edges = summarize(e.Graph())
	wantNodes := map[string]nodeSummary{
		"e1": {"Acme Corp", graph.CategoryOrganization},
		"e2": {"John Doe", graph.CategoryPerson},
		"e3": {"Jane Roe", graph.CategoryPerson},
	}
	if diff := cmp.Diff(wantNodes, nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if _, ok := edges["r2"]; !ok || len(edges) != 2 {
		t.Errorf("edges = %v, want r1 and r2", edges)
	}
	for _, id := range []string{"e1", "e2"} {
		n, _ := e.Graph().Node(id)
		b := before[id]
		if n.X != b.X || n.Y != b.Y || n.VX != b.VX || n.VY != b.VY {
			t.Errorf("%s moved during merge: (%v,%v) -> (%v,%v)", id, b.X, b.Y, n.X, n.Y)
		}
	}
}

func TestSearchSupersession(t *testing.T) {
	resA := fetch.SearchResult{Entities: []graph.Entity{{ID: "a", Category: "person", Name: "A"}}, Total: 1}
	resB := fetch.SearchResult{Entities: []graph.Entity{{ID: "b", Category: "person", Name: "B"}}, Total: 1}

	for _, order := range []string{"AB", "BA"} {
		t.Run(order, func(t *testing.T) {
			e := newExplorer(t)
			ta := e.BeginSearch("A", "")
			tb := e.BeginSearch("B", "")

			deliver := map[byte]func() error{
				'A': func() error { return e.FinishSearch(ta, resA, nil) },
				'B': func() error { return e.FinishSearch(tb, resB, nil) },
			}
			for i := range order {
				err := deliver[order[i]]()
				if order[i] == 'A' && !errors.Is(err, ErrStale) {
					t.Errorf("FinishSearch(A) = %v, want ErrStale", err)
				}
				if order[i] == 'B' && err != nil {
					t.Errorf("FinishSearch(B) = %v", err)
				}
			}

			got := e.Search()
			if got.Query != "B" || len(got.Entities) != 1 || got.Entities[0].ID != "b" {
				t.Errorf("search = %+v, want B's results", got)
			}
		})
	}
}

func TestEmptySearchRaisesNotice(t *testing.T) {
	e := newExplorer(t)

	st := e.BeginSearch("nothing", "")
	if err := e.FinishSearch(st, fetch.SearchResult{}, nil); err != nil {
		t.Fatalf("FinishSearch: %v", err)
	}
	notes := e.Notices()
	if len(notes) != 1 || notes[0].Kind != NoticeEmpty {
		t.Fatalf("notices = %+v, want one empty notice", notes)
	}
	if e.Graph().Len() != 0 {
		t.Error("empty search changed the graph")
	}
}

func TestExpandNetworkErrorLeavesStateUnchanged(t *testing.T) {
	e := newExplorer(t)
	expand(t, e, acmeNeighbors())
	e.Simulator().RunUntilSettled(1000)
	beforeNodes := e.Graph().Nodes()
	alpha := e.Simulator().Alpha()

	netErr := &fetch.NetworkError{Op: "neighbors", Err: errors.New("connection refused")}
	_, err := e.FinishExpand(e.BeginExpand("e2"), fetch.Neighbors{}, netErr)
	if !errors.Is(err, netErr) {
		t.Fatalf("err = %v, want network error", err)
	}
	if diff := cmp.Diff(beforeNodes, e.Graph().Nodes()); diff != "" {
		t.Errorf("nodes changed (-before +after):\n%s", diff)
	}
	if e.Simulator().Alpha() != alpha || e.Simulator().State() != layout.Settled {
		t.Error("failed expansion disturbed the simulator")
	}

	notes := e.Notices()
	if len(notes) != 1 || notes[0].Kind != NoticeNetwork {
		t.Fatalf("notices = %+v, want one network notice", notes)
	}
	if !e.Dismiss(notes[0].ID) {
		t.Error("Dismiss returned false")
	}
	if e.Dismiss(notes[0].ID) {
		t.Error("second Dismiss returned true")
	}
	if len(e.Notices()) != 0 {
		t.Error("notice not dismissed")
	}
}

func TestExpandMalformedSurfacesError(t *testing.T) {
	e := newExplorer(t)
	expand(t, e, acmeNeighbors())

	bad := fetch.Neighbors{
		Entity:    graph.Entity{ID: "e2", Category: "person", Name: "John Doe"},
		Neighbors: []graph.Entity{{ID: "e2", Category: "vessel", Name: "John Doe"}},
	}
	_, err := e.FinishExpand(e.BeginExpand("e2"), bad, nil)
	if !errors.Is(err, graph.ErrMalformedMerge) {
		t.Fatalf("err = %v, want ErrMalformedMerge", err)
	}
	if e.Graph().Len() != 2 {
		t.Errorf("Len = %d, want 2", e.Graph().Len())
	}
	notes := e.Notices()
	if len(notes) != 1 || notes[0].Kind != NoticeMalformed {
		t.Errorf("notices = %+v, want one malformed notice", notes)
	}
}

func TestExpandAfterResetIsDiscarded(t *testing.T) {
	e := newExplorer(t)
	ticket := e.BeginExpand("e1")
	if e.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", e.Pending())
	}

	e.Reset()
	_, err := e.FinishExpand(ticket, acmeNeighbors(), nil)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	if e.Graph().Len() != 0 {
		t.Errorf("stale expansion merged %d nodes", e.Graph().Len())
	}
	if e.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", e.Pending())
	}

	// A request issued after the reset still applies.
	expand(t, e, acmeNeighbors())
	if e.Graph().Len() != 2 {
		t.Errorf("Len = %d, want 2", e.Graph().Len())
	}
}

func TestConcurrentExpansionsOrderIndependent(t *testing.T) {
	batches := []fetch.Neighbors{acmeNeighbors(), johnNeighbors(), {
		Entity:    graph.Entity{ID: "e3", Category: "person", Name: "Jane Roe"},
		Neighbors: []graph.Entity{{ID: "e1", Category: "organization", Name: "Acme Corp"}},
		Relationships: []graph.Relationship{
			{ID: "r3", SourceEntityID: "e3", TargetEntityID: "e1", Category: "employee_of"},
		},
	}}

	run := func(order []int) (map[string]nodeSummary, map[string]edgeSummary) {
		e := newExplorer(t)
		tickets := make([]Ticket, len(batches))
		for i, b := range batches {
			tickets[i] = e.BeginExpand(b.Entity.ID)
		}
		for _, i := range order {
			if _, err := e.FinishExpand(tickets[i], batches[i], nil); err != nil {
				t.Fatalf("FinishExpand: %v", err)
			}
		}
		return summarize(e.Graph())
	}

	wantNodes, wantEdges := run([]int{0, 1, 2})
	for _, order := range [][]int{{2, 1, 0}, {1, 0, 2}, {1, 2, 0}} {
		nodes, edges := run(order)
		if diff := cmp.Diff(wantNodes, nodes); diff != "" {
			t.Errorf("order %v nodes (-want +got):\n%s", order, diff)
		}
		if diff := cmp.Diff(wantEdges, edges); diff != "" {
			t.Errorf("order %v edges (-want +got):\n%s", order, diff)
		}
	}
}

func TestStepStopsWhenSettled(t *testing.T) {
	e := newExplorer(t)
	if _, ok := e.Step(); !ok {
		t.Fatal("first Step should draw the initial view")
	}
	if _, ok := e.Step(); ok {
		t.Fatal("Step on an empty settled graph drew a frame")
	}

	expand(t, e, acmeNeighbors())
	frames := 0
	for i := 0; i < 1000; i++ {
		if _, ok := e.Step(); !ok {
			break
		}
		frames++
	}
	if frames == 0 || frames == 1000 {
		t.Fatalf("frames = %d, want a finite positive count", frames)
	}
	ticks := e.Simulator().Ticks()
	for i := 0; i < 10; i++ {
		if _, ok := e.Step(); ok {
			t.Fatal("settled Step drew a frame")
		}
	}
	if e.Simulator().Ticks() != ticks {
		t.Errorf("ticks moved from %d to %d after settling", ticks, e.Simulator().Ticks())
	}

	// A view change redraws once without ticking.
	e.Controller().Key("+")
	scene, ok := e.Step()
	if !ok {
		t.Fatal("zoom did not redraw")
	}
	if scene.View.K <= 1 {
		t.Errorf("scene zoom = %v, want > 1", scene.View.K)
	}
	if _, ok := e.Step(); ok {
		t.Error("second Step after zoom drew a frame")
	}
	if e.Simulator().Ticks() != ticks {
		t.Error("redraw ticked the simulator")
	}
}

func TestClickOnNodeRequestsExpansion(t *testing.T) {
	e := newExplorer(t)
	var got []Ticket
	e.OnExpand(func(tk Ticket) { got = append(got, tk) })

	expand(t, e, acmeNeighbors())
	e.Simulator().RunUntilSettled(1000)

	n, _ := e.Graph().Node("e2")
	p := e.Controller().View().Apply(interact.Point{X: n.X, Y: n.Y})
	e.Controller().PointerDown(p)
	e.Controller().PointerUp(p)

	if len(got) != 1 || got[0].ID != "e2" || got[0].Epoch != e.Graph().Epoch() {
		t.Fatalf("expansions = %+v, want one for e2", got)
	}
	if e.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", e.Pending())
	}
	if e.Status().Selected != "e2" {
		t.Errorf("Selected = %q, want e2", e.Status().Selected)
	}
}
