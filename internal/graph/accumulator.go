package graph

// Observer is told about structural changes to an Accumulator. Callbacks run
// synchronously inside Merge and Reset, before they return.
type Observer interface {
	// NodesAdded receives only the ids created by a merge, possibly none.
	NodesAdded(ids []string)
	// Cleared is called after Reset wiped the accumulator.
	Cleared()
}

// MergeResult reports what a merge changed and the full collections after it.
type MergeResult struct {
	AddedNodes   []string
	UpdatedNodes []string
	AddedEdges   []string
	UpdatedEdges []string
	// DroppedEdges names relationships whose endpoints were not known.
	DroppedEdges []string

	Nodes []Node
	Edges []Edge
}

// Accumulator is a deduplicating arena of nodes and edges built up across
// successive fetches. Nodes are keyed by id; edges hold only id pairs.
//
// An Accumulator is not safe for concurrent use. It is owned by a single
// execution context (see explorer.Session).
type Accumulator struct {
	nodes     map[string]*Node
	nodeOrder []*Node
	edges     map[string]*Edge
	edgeOrder []*Edge
	adjacent  map[string][]string

	epoch     uint64
	observers []Observer
}

// NewAccumulator returns an empty accumulator at epoch 0.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	a.clear()
	return a
}

func (a *Accumulator) clear() {
	a.nodes = make(map[string]*Node)
	a.nodeOrder = nil
	a.edges = make(map[string]*Edge)
	a.edgeOrder = nil
	a.adjacent = make(map[string][]string)
}

// Observe registers o for change notifications.
func (a *Accumulator) Observe(o Observer) {
	a.observers = append(a.observers, o)
}

// Epoch counts resets. Work tagged with an older epoch belongs to a cleared
// exploration.
func (a *Accumulator) Epoch() uint64 { return a.epoch }

// Len returns the number of nodes.
func (a *Accumulator) Len() int { return len(a.nodeOrder) }

// EdgeLen returns the number of edges.
func (a *Accumulator) EdgeLen() int { return len(a.edgeOrder) }

// Has reports whether a node with id exists.
func (a *Accumulator) Has(id string) bool {
	_, ok := a.nodes[id]
	return ok
}

// Node returns the live record for id. The pointer stays valid until Reset.
func (a *Accumulator) Node(id string) (*Node, bool) {
	n, ok := a.nodes[id]
	return n, ok
}

// LiveNodes returns the arena's node records in insertion order. Callers may
// mutate kinematic fields but must not retain or reorder the slice.
func (a *Accumulator) LiveNodes() []*Node { return a.nodeOrder }

// LiveEdges returns the arena's edge records in insertion order.
func (a *Accumulator) LiveEdges() []*Edge { return a.edgeOrder }

// Adjacent returns the ids of nodes sharing an edge with id.
func (a *Accumulator) Adjacent(id string) []string { return a.adjacent[id] }

// Nodes returns a copy of every node in insertion order.
func (a *Accumulator) Nodes() []Node {
	out := make([]Node, len(a.nodeOrder))
	for i, n := range a.nodeOrder {
		out[i] = n.clone()
	}
	return out
}

// Edges returns a copy of every edge in insertion order.
func (a *Accumulator) Edges() []Edge {
	out := make([]Edge, len(a.edgeOrder))
	for i, e := range a.edgeOrder {
		out[i] = e.clone()
	}
	return out
}

// Merge folds a fetch batch into the arena. New entities become nodes, known
// ones have label, category and attributes refreshed while keeping position,
// velocity and pin state. Relationships whose endpoints are neither in the
// arena nor in the batch are dropped. An inconsistent batch is rejected with
// an error wrapping ErrMalformedMerge and nothing is applied.
func (a *Accumulator) Merge(b Batch) (MergeResult, error) {
	entities, err := a.stageEntities(b)
	if err != nil {
		return MergeResult{}, err
	}
	rels, err := a.stageRelationships(b.Relationships)
	if err != nil {
		return MergeResult{}, err
	}

	var res MergeResult
	for _, s := range entities {
		if n, ok := a.nodes[s.id]; ok {
			n.Label = s.label
			n.Category = s.category
			n.Attributes = s.attrs
			res.UpdatedNodes = append(res.UpdatedNodes, s.id)
			continue
		}
		n := &Node{
			ID:         s.id,
			Label:      s.label,
			Category:   s.category,
			Attributes: s.attrs,
		}
		a.nodes[s.id] = n
		a.nodeOrder = append(a.nodeOrder, n)
		res.AddedNodes = append(res.AddedNodes, s.id)
	}

	for _, r := range rels {
		if !a.Has(r.Source) || !a.Has(r.Target) {
			res.DroppedEdges = append(res.DroppedEdges, r.ID)
			continue
		}
		if e, ok := a.edges[r.ID]; ok {
			e.Category = r.Category
			e.Attributes = r.Attributes
			res.UpdatedEdges = append(res.UpdatedEdges, r.ID)
			continue
		}
		e := r
		a.edges[e.ID] = &e
		a.edgeOrder = append(a.edgeOrder, &e)
		a.adjacent[e.Source] = append(a.adjacent[e.Source], e.Target)
		if e.Source != e.Target {
			a.adjacent[e.Target] = append(a.adjacent[e.Target], e.Source)
		}
		res.AddedEdges = append(res.AddedEdges, e.ID)
	}

	res.Nodes = a.Nodes()
	res.Edges = a.Edges()

	for _, o := range a.observers {
		o.NodesAdded(res.AddedNodes)
	}
	return res, nil
}

// Reset clears every node and edge and advances the epoch.
func (a *Accumulator) Reset() {
	a.clear()
	a.epoch++
	for _, o := range a.observers {
		o.Cleared()
	}
}

type stagedEntity struct {
	id       string
	label    string
	category NodeCategory
	attrs    map[string]any
}

// stageEntities validates the batch's entities and returns them in first
// mention order, deduplicated by id (the last mention's fields win).
func (a *Accumulator) stageEntities(b Batch) ([]stagedEntity, error) {
	if b.Focal.ID == "" {
		return nil, malformed("", "batch has no focal entity")
	}

	all := make([]Entity, 0, len(b.Related)+1)
	all = append(all, b.Focal)
	all = append(all, b.Related...)

	index := make(map[string]int, len(all))
	staged := make([]stagedEntity, 0, len(all))
	for _, e := range all {
		if e.ID == "" {
			return nil, malformed("", "entity %q has no id", e.Name)
		}
		cat, _ := ParseNodeCategory(e.Category)
		label := e.Name
		if label == "" {
			label = e.ID
		}
		s := stagedEntity{id: e.ID, label: label, category: cat, attrs: e.attributes()}
		if i, ok := index[e.ID]; ok {
			if staged[i].category != cat {
				return nil, malformed(e.ID, "conflicting categories %q and %q", staged[i].category, cat)
			}
			staged[i] = s
			continue
		}
		index[e.ID] = len(staged)
		staged = append(staged, s)
	}
	return staged, nil
}

// stageRelationships validates relationships against each other and against
// edges already stored. Endpoint existence is checked later, at apply time.
func (a *Accumulator) stageRelationships(rels []Relationship) ([]Edge, error) {
	index := make(map[string]int, len(rels))
	staged := make([]Edge, 0, len(rels))
	for _, r := range rels {
		if r.ID == "" {
			return nil, malformed("", "relationship %s->%s has no id", r.SourceEntityID, r.TargetEntityID)
		}
		cat, _ := ParseEdgeCategory(r.Category)
		e := Edge{
			ID:         r.ID,
			Source:     r.SourceEntityID,
			Target:     r.TargetEntityID,
			Category:   cat,
			Attributes: r.attributes(),
		}
		if prev, ok := a.edges[r.ID]; ok && (prev.Source != e.Source || prev.Target != e.Target) {
			return nil, malformed(r.ID, "endpoints %s->%s conflict with stored %s->%s",
				e.Source, e.Target, prev.Source, prev.Target)
		}
		if i, ok := index[r.ID]; ok {
			p := staged[i]
			if p.Source != e.Source || p.Target != e.Target || p.Category != e.Category {
				return nil, malformed(r.ID, "duplicate relationship with conflicting identity")
			}
			staged[i] = e
			continue
		}
		index[r.ID] = len(staged)
		staged = append(staged, e)
	}
	return staged, nil
}
