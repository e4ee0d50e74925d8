// Package explorer ties the accumulator, simulator, controller and render
// adapter into one exploration session.
//
// Explorer holds all session state and is driven synchronously; it is not
// safe for concurrent use. Session wraps an Explorer in an event loop that
// owns it, runs fetches in the background and feeds their results back in as
// events, so merges never interleave with ticks.
package explorer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/graph"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/layout"
	"github.com/lazypower/graphwalk/internal/logging"
	"github.com/lazypower/graphwalk/internal/metrics"
	"github.com/lazypower/graphwalk/internal/render"
)

// ErrStale is returned when a fetch result arrives after it was superseded:
// a newer search was issued, or the graph was reset since the expansion was
// requested. Stale results are discarded.
var ErrStale = errors.New("stale result")

// DefaultSearchLimit caps search results when Options.SearchLimit is zero.
const DefaultSearchLimit = 10

// Options configures an Explorer.
type Options struct {
	Layout      layout.Config
	View        interact.Config
	Render      render.Config
	SearchLimit int
	Logger      *zap.Logger
}

// SearchTicket identifies one issued search.
type SearchTicket struct {
	Generation uint64
	Query      string
	Category   string
	Limit      int
}

// Ticket identifies one issued neighbor expansion. Epoch is the accumulator
// epoch at issue time.
type Ticket struct {
	Seq   uint64 `json:"seq"`
	ID    string `json:"id"`
	Epoch uint64 `json:"epoch"`
}

// SearchState is the latest search as the user sees it.
type SearchState struct {
	Generation uint64         `json:"generation"`
	Query      string         `json:"query"`
	Category   string         `json:"category,omitempty"`
	Pending    bool           `json:"pending"`
	Entities   []graph.Entity `json:"entities"`
	Total      int            `json:"total"`
}

// Status summarizes everything outside the scene that a client displays.
type Status struct {
	Search   SearchState `json:"search"`
	Notices  []Notice    `json:"notices"`
	Nodes    int         `json:"nodes"`
	Edges    int         `json:"edges"`
	Epoch    uint64      `json:"epoch"`
	State    string      `json:"state"`
	Pending  int         `json:"pending_expansions"`
	Selected string      `json:"selected,omitempty"`
}

// Explorer is the state of one exploration session.
type Explorer struct {
	log   *zap.Logger
	limit int

	acc     *graph.Accumulator
	sim     *layout.Simulator
	ctl     *interact.Controller
	adapter *render.Adapter

	search      SearchState
	notices     notices
	pending     map[uint64]Ticket
	expandSeq   uint64
	onExpand    func(Ticket)
	frame       uint64
	dirty       bool
	statusDirty bool
}

// New returns an empty explorer.
func New(opts Options) *Explorer {
	e := &Explorer{
		log:     logging.OrNop(opts.Logger),
		limit:   opts.SearchLimit,
		acc:     graph.NewAccumulator(),
		adapter: render.NewAdapter(opts.Render),
		pending: make(map[uint64]Ticket),
	}
	if e.limit <= 0 {
		e.limit = DefaultSearchLimit
	}
	e.sim = layout.New(e.acc, opts.Layout)
	e.ctl = interact.NewController(e.acc, e.sim, opts.View, e.requestExpand)
	return e
}

// Graph returns the accumulator.
func (e *Explorer) Graph() *graph.Accumulator { return e.acc }

// Simulator returns the layout simulator.
func (e *Explorer) Simulator() *layout.Simulator { return e.sim }

// Controller returns the interaction controller.
func (e *Explorer) Controller() *interact.Controller { return e.ctl }

// Search returns the current search state.
func (e *Explorer) Search() SearchState { return e.search }

// Notices returns the undismissed notices, oldest first.
func (e *Explorer) Notices() []Notice { return e.notices.list() }

// OnExpand registers fn to receive expansions requested through the
// controller (a click on a node).
func (e *Explorer) OnExpand(fn func(Ticket)) { e.onExpand = fn }

// Status returns a summary of the session.
func (e *Explorer) Status() Status {
	return Status{
		Search:   e.search,
		Notices:  e.notices.list(),
		Nodes:    e.acc.Len(),
		Edges:    e.acc.EdgeLen(),
		Epoch:    e.acc.Epoch(),
		State:    e.sim.State().String(),
		Pending:  len(e.pending),
		Selected: e.ctl.Selected(),
	}
}

// TakeStatusChanged reports whether Status changed since the last call.
func (e *Explorer) TakeStatusChanged() bool {
	d := e.statusDirty
	e.statusDirty = false
	return d
}

// BeginSearch supersedes any outstanding search and returns the ticket the
// result must be delivered with.
func (e *Explorer) BeginSearch(query, category string) SearchTicket {
	e.search = SearchState{
		Generation: e.search.Generation + 1,
		Query:      query,
		Category:   category,
		Pending:    true,
	}
	e.statusDirty = true
	metrics.Searches.WithLabelValues("issued").Inc()
	return SearchTicket{
		Generation: e.search.Generation,
		Query:      query,
		Category:   category,
		Limit:      e.limit,
	}
}

// FinishSearch applies a search result. Results for a superseded generation
// return ErrStale and change nothing. A failed or empty search raises a
// notice and leaves the graph untouched.
func (e *Explorer) FinishSearch(t SearchTicket, res fetch.SearchResult, err error) error {
	if t.Generation != e.search.Generation {
		metrics.Searches.WithLabelValues("stale").Inc()
		return fmt.Errorf("search %d %q: %w", t.Generation, t.Query, ErrStale)
	}
	e.search.Pending = false
	e.statusDirty = true

	if err != nil {
		metrics.Searches.WithLabelValues("failed").Inc()
		e.notices.add(NoticeNetwork, fmt.Sprintf("Search for %q failed: %v", t.Query, err))
		return err
	}
	if len(res.Entities) == 0 {
		metrics.Searches.WithLabelValues("empty").Inc()
		e.search.Entities = nil
		e.search.Total = 0
		e.notices.add(NoticeEmpty, fmt.Sprintf("No entities match %q", t.Query))
		return nil
	}

	metrics.Searches.WithLabelValues("applied").Inc()
	e.search.Entities = res.Entities
	e.search.Total = res.Total
	return nil
}

// BeginExpand records a neighbor expansion for id. Any number may be
// outstanding at once.
func (e *Explorer) BeginExpand(id string) Ticket {
	e.expandSeq++
	t := Ticket{Seq: e.expandSeq, ID: id, Epoch: e.acc.Epoch()}
	e.pending[t.Seq] = t
	e.statusDirty = true
	metrics.Expansions.WithLabelValues("issued").Inc()
	return t
}

// FinishExpand merges an expansion result. Results issued before the last
// reset return ErrStale. A fetch error raises a network notice; a malformed
// batch raises a notice and returns the merge error. Neither changes the
// graph.
func (e *Explorer) FinishExpand(t Ticket, nb fetch.Neighbors, err error) (graph.MergeResult, error) {
	delete(e.pending, t.Seq)
	e.statusDirty = true

	if t.Epoch != e.acc.Epoch() {
		metrics.Expansions.WithLabelValues("stale").Inc()
		return graph.MergeResult{}, fmt.Errorf("expand %s (epoch %d): %w", t.ID, t.Epoch, ErrStale)
	}
	if err != nil {
		metrics.Expansions.WithLabelValues("failed").Inc()
		e.notices.add(NoticeNetwork, fmt.Sprintf("Expanding %s failed: %v", t.ID, err))
		return graph.MergeResult{}, err
	}

	res, err := e.acc.Merge(nb.Batch())
	if err != nil {
		metrics.Merges.WithLabelValues("malformed").Inc()
		metrics.Expansions.WithLabelValues("failed").Inc()
		e.notices.add(NoticeMalformed, fmt.Sprintf("Expanding %s returned inconsistent data: %v", t.ID, err))
		return graph.MergeResult{}, err
	}

	metrics.Merges.WithLabelValues("applied").Inc()
	metrics.Expansions.WithLabelValues("applied").Inc()
	metrics.NodesAdded.Add(float64(len(res.AddedNodes)))
	metrics.EdgesDropped.Add(float64(len(res.DroppedEdges)))
	e.dirty = true
	e.log.Debug("merged expansion",
		zap.String("id", t.ID),
		zap.Int("added_nodes", len(res.AddedNodes)),
		zap.Int("added_edges", len(res.AddedEdges)),
		zap.Int("dropped_edges", len(res.DroppedEdges)),
	)
	return res, nil
}

// Pending returns the number of expansions awaiting a result.
func (e *Explorer) Pending() int { return len(e.pending) }

// Dismiss removes a notice. It reports whether the notice existed.
func (e *Explorer) Dismiss(id uint64) bool {
	if !e.notices.dismiss(id) {
		return false
	}
	e.statusDirty = true
	return true
}

// Reset clears the graph and restarts the layout. Expansions still in flight
// become stale.
func (e *Explorer) Reset() {
	e.ctl.Forget()
	e.acc.Reset()
	e.dirty = true
	e.statusDirty = true
	e.log.Debug("graph reset", zap.Uint64("epoch", e.acc.Epoch()))
}

// Step advances the layout by one tick and builds the frame to draw. When
// the layout is settled it only builds a frame if something visible changed
// since the last one. ok is false when there is nothing to draw.
func (e *Explorer) Step() (scene render.Scene, ok bool) {
	ticked := e.sim.Tick()
	if ticked {
		metrics.Ticks.Inc()
	}
	viewChanged := e.ctl.TakeDirty()
	if !ticked && !viewChanged && !e.dirty {
		return render.Scene{}, false
	}
	e.dirty = false
	return e.Scene(), true
}

// Scene builds a frame from the current state without ticking.
func (e *Explorer) Scene() render.Scene {
	e.frame++
	deco := render.Decoration{Hover: e.ctl.Hover(), Selected: e.ctl.Selected()}
	return e.adapter.Build(e.frame, e.sim.Snapshot(), e.acc, e.ctl.View(), deco)
}

func (e *Explorer) requestExpand(id string) {
	t := e.BeginExpand(id)
	if e.onExpand != nil {
		e.onExpand(t)
	}
}
