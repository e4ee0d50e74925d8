// Package render projects simulator state through the view transform into a
// drawable Scene. Drawing itself belongs to a Surface.
package render

import "github.com/lazypower/graphwalk/internal/interact"

// NodeShape is a node disk in screen space.
type NodeShape struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"r"`
	Fill      string  `json:"fill"`
	ShowLabel bool    `json:"show_label,omitempty"`
	Hovered   bool    `json:"hovered,omitempty"`
	Selected  bool    `json:"selected,omitempty"`
	Pinned    bool    `json:"pinned,omitempty"`
}

// EdgeLine is an edge segment in screen space.
type EdgeLine struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Category    string  `json:"category"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Highlighted bool    `json:"highlighted,omitempty"`
}

// Scene is everything a surface needs to draw one frame.
type Scene struct {
	Frame uint64             `json:"frame"`
	Tick  uint64             `json:"tick"`
	Alpha float64            `json:"alpha"`
	State string             `json:"state"`
	View  interact.Transform `json:"view"`
	Nodes []NodeShape        `json:"nodes"`
	Edges []EdgeLine         `json:"edges"`
}

// Surface draws scenes. Draw is called from the session's loop goroutine and
// must not block for long.
type Surface interface {
	Draw(Scene) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Scene) error

func (f SurfaceFunc) Draw(s Scene) error { return f(s) }

// Discard is a Surface that drops every frame.
var Discard Surface = SurfaceFunc(func(Scene) error { return nil })
