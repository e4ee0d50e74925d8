package render

import (
	"github.com/lazypower/graphwalk/internal/graph"
	"github.com/lazypower/graphwalk/internal/interact"
	"github.com/lazypower/graphwalk/internal/layout"
)

// Config controls scene decoration.
type Config struct {
	NodeRadius float64 `toml:"node_radius"`
	// LabelZoom is the zoom level from which every label is drawn. Below it
	// only hovered and selected nodes are labelled.
	LabelZoom float64 `toml:"label_zoom"`
}

// DefaultConfig matches layout.DefaultConfig's node radius.
func DefaultConfig() Config {
	return Config{NodeRadius: 20, LabelZoom: 0.6}
}

var palette = map[graph.NodeCategory]string{
	graph.CategoryPerson:       "#4e79a7",
	graph.CategoryOrganization: "#f28e2b",
	graph.CategoryVessel:       "#76b7b2",
	graph.CategoryAircraft:     "#59a14f",
	graph.CategoryLocation:     "#edc948",
	graph.CategoryEvent:        "#e15759",
	graph.CategoryDocument:     "#9c755f",
	graph.CategoryTransaction:  "#b07aa1",
	graph.CategorySanction:     "#ff9da7",
	graph.CategoryOther:        "#bab0ac",
}

// Fill returns the display color for a category.
func Fill(c graph.NodeCategory) string {
	if f, ok := palette[c]; ok {
		return f
	}
	return palette[graph.CategoryOther]
}

// Decoration is the purely visual state layered over a frame.
type Decoration struct {
	Hover    string
	Selected string
}

// Graph is the read-only view of the accumulator the adapter needs for
// labels, categories and edge endpoints.
type Graph interface {
	Node(id string) (*graph.Node, bool)
	LiveEdges() []*graph.Edge
}

// Adapter builds scenes. It reads positions only from layout snapshots.
type Adapter struct {
	cfg Config
}

// NewAdapter returns an adapter, filling zero config values with defaults.
func NewAdapter(cfg Config) *Adapter {
	d := DefaultConfig()
	if cfg.NodeRadius <= 0 {
		cfg.NodeRadius = d.NodeRadius
	}
	if cfg.LabelZoom <= 0 {
		cfg.LabelZoom = d.LabelZoom
	}
	return &Adapter{cfg: cfg}
}

// Build projects snap through view. Edges whose endpoints are missing from
// the snapshot are skipped.
func (a *Adapter) Build(frame uint64, snap layout.Snapshot, g Graph, view interact.Transform, deco Decoration) Scene {
	scene := Scene{
		Frame: frame,
		Tick:  snap.Tick,
		Alpha: snap.Alpha,
		State: snap.State.String(),
		View:  view,
		Nodes: make([]NodeShape, 0, len(snap.Bodies)),
	}

	screen := make(map[string]interact.Point, len(snap.Bodies))
	allLabels := view.K >= a.cfg.LabelZoom
	for _, b := range snap.Bodies {
		p := view.Apply(interact.Point{X: b.X, Y: b.Y})
		screen[b.ID] = p

		shape := NodeShape{
			ID:       b.ID,
			Label:    b.ID,
			X:        p.X,
			Y:        p.Y,
			Radius:   a.cfg.NodeRadius * view.K,
			Pinned:   b.Pinned,
			Hovered:  b.ID == deco.Hover,
			Selected: b.ID == deco.Selected,
		}
		cat := graph.CategoryOther
		if n, ok := g.Node(b.ID); ok {
			shape.Label = n.Label
			cat = n.Category
		}
		shape.Category = string(cat)
		shape.Fill = Fill(cat)
		shape.ShowLabel = allLabels || shape.Hovered || shape.Selected
		scene.Nodes = append(scene.Nodes, shape)
	}

	focus := deco.Hover
	if focus == "" {
		focus = deco.Selected
	}
	edges := g.LiveEdges()
	scene.Edges = make([]EdgeLine, 0, len(edges))
	for _, e := range edges {
		p1, ok1 := screen[e.Source]
		p2, ok2 := screen[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		scene.Edges = append(scene.Edges, EdgeLine{
			ID:          e.ID,
			Source:      e.Source,
			Target:      e.Target,
			Category:    string(e.Category),
			X1:          p1.X,
			Y1:          p1.Y,
			X2:          p2.X,
			Y2:          p2.Y,
			Highlighted: focus != "" && (e.Source == focus || e.Target == focus),
		})
	}
	return scene
}
