package graph

// PinState is the drag state of a node.
type PinState uint8

const (
	// Free nodes are moved by the layout simulator.
	Free PinState = iota
	// Pinned nodes are positioned externally and skipped by integration.
	Pinned
)

func (p PinState) String() string {
	if p == Pinned {
		return "pinned"
	}
	return "free"
}

// Node is a vertex record in the accumulator arena. Label, Category and
// Attributes are refreshed by merges; the kinematic fields (X, Y, VX, VY) and
// State are owned by the layout and interaction layers and survive merges.
type Node struct {
	ID         string
	Label      string
	Category   NodeCategory
	Attributes map[string]any

	X, Y   float64
	VX, VY float64
	State  PinState

	// Placed is false until the simulator has assigned an initial position.
	Placed bool
}

// Pinned reports whether the node is currently held by a drag.
func (n *Node) Pinned() bool { return n.State == Pinned }

// Edge is a directed, typed connection stored by id pair.
type Edge struct {
	ID         string
	Source     string
	Target     string
	Category   EdgeCategory
	Attributes map[string]any
}

func (n Node) clone() Node {
	n.Attributes = cloneAttrs(n.Attributes)
	return n
}

func (e Edge) clone() Edge {
	e.Attributes = cloneAttrs(e.Attributes)
	return e
}

func cloneAttrs(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
