// Package interact turns pointer and keyboard input into simulator
// perturbations (pin and drag), view changes (zoom and pan) and expansion
// requests (click on a node).
package interact

import (
	"math"

	"github.com/lazypower/graphwalk/internal/graph"
	"github.com/lazypower/graphwalk/internal/layout"
)

// Config tunes input handling.
type Config struct {
	Width          float64 `toml:"width"`
	Height         float64 `toml:"height"`
	MinZoom        float64 `toml:"min_zoom"`
	MaxZoom        float64 `toml:"max_zoom"`
	HitRadius      float64 `toml:"hit_radius"`      // simulation units
	ClickTolerance float64 `toml:"click_tolerance"` // screen pixels
	WheelScale     float64 `toml:"wheel_scale"`
	KeyZoomStep    float64 `toml:"key_zoom_step"`
	KeyPanStep     float64 `toml:"key_pan_step"`
}

// DefaultConfig returns the stock input tuning for a 1280x800 viewport.
func DefaultConfig() Config {
	return Config{
		Width:          1280,
		Height:         800,
		MinZoom:        MinZoom,
		MaxZoom:        MaxZoom,
		HitRadius:      20,
		ClickTolerance: 3,
		WheelScale:     0.002,
		KeyZoomStep:    1.25,
		KeyPanStep:     60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.MinZoom < MinZoom || c.MinZoom > MaxZoom {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom > MaxZoom || c.MaxZoom < c.MinZoom {
		c.MaxZoom = d.MaxZoom
	}
	if c.HitRadius <= 0 {
		c.HitRadius = d.HitRadius
	}
	if c.ClickTolerance <= 0 {
		c.ClickTolerance = d.ClickTolerance
	}
	if c.WheelScale <= 0 {
		c.WheelScale = d.WheelScale
	}
	if c.KeyZoomStep <= 1 {
		c.KeyZoomStep = d.KeyZoomStep
	}
	if c.KeyPanStep <= 0 {
		c.KeyPanStep = d.KeyPanStep
	}
	return c
}

// ExpandFunc issues a neighbor fetch for a node id.
type ExpandFunc func(id string)

type dragState struct {
	id    string
	start Point
	moved bool
}

type panState struct {
	last Point
}

// Controller holds the view transform and the transient pointer state. Like
// the simulator it drives, it must only be used from one goroutine.
type Controller struct {
	cfg    Config
	g      *graph.Accumulator
	sim    *layout.Simulator
	expand ExpandFunc

	view     Transform
	drag     *dragState
	pan      *panState
	hover    string
	selected string
	dirty    bool
}

// NewController returns a controller whose view centers simulation origin in
// the viewport. expand may be nil.
func NewController(g *graph.Accumulator, sim *layout.Simulator, cfg Config, expand ExpandFunc) *Controller {
	c := &Controller{
		cfg:    cfg.withDefaults(),
		g:      g,
		sim:    sim,
		expand: expand,
	}
	c.ResetView()
	return c
}

// View returns the current view transform.
func (c *Controller) View() Transform { return c.view }

// Hover returns the id of the node under the pointer, if any.
func (c *Controller) Hover() string { return c.hover }

// Selected returns the id of the last clicked node, if any.
func (c *Controller) Selected() string { return c.selected }

// Dragging returns the id of the node being dragged.
func (c *Controller) Dragging() (string, bool) {
	if c.drag == nil {
		return "", false
	}
	return c.drag.id, true
}

// Viewport returns the viewport size in screen pixels.
func (c *Controller) Viewport() (w, h float64) { return c.cfg.Width, c.cfg.Height }

// TakeDirty reports whether view-only state changed since the last call.
func (c *Controller) TakeDirty() bool {
	d := c.dirty
	c.dirty = false
	return d
}

// ResetView restores unit zoom with the simulation origin centered.
func (c *Controller) ResetView() {
	c.view = Transform{K: 1, X: c.cfg.Width / 2, Y: c.cfg.Height / 2}
	c.dirty = true
}

// Resize changes the viewport, keeping the simulation point at the old
// center in the middle of the new viewport.
func (c *Controller) Resize(w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	center := c.view.Invert(Point{X: c.cfg.Width / 2, Y: c.cfg.Height / 2})
	c.cfg.Width, c.cfg.Height = w, h
	c.view.X = w/2 - center.X*c.view.K
	c.view.Y = h/2 - center.Y*c.view.K
	c.dirty = true
}

// HitTest returns the topmost node under screen point p.
func (c *Controller) HitTest(p Point) (string, bool) {
	sp := c.view.Invert(p)
	nodes := c.g.LiveNodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if math.Hypot(n.X-sp.X, n.Y-sp.Y) <= c.cfg.HitRadius {
			return n.ID, true
		}
	}
	return "", false
}

// PointerDown starts a drag over a node or a pan over the background.
func (c *Controller) PointerDown(p Point) {
	c.endGesture()
	if id, ok := c.HitTest(p); ok {
		if err := c.sim.Pin(id); err != nil {
			return
		}
		c.drag = &dragState{id: id, start: p}
		return
	}
	c.pan = &panState{last: p}
}

// PointerMove moves the dragged node to the pointer, pans the view, or
// updates hover, depending on the gesture in progress.
func (c *Controller) PointerMove(p Point) {
	switch {
	case c.drag != nil:
		if math.Hypot(p.X-c.drag.start.X, p.Y-c.drag.start.Y) > c.cfg.ClickTolerance {
			c.drag.moved = true
		}
		sp := c.view.Invert(p)
		if err := c.sim.MoveTo(c.drag.id, sp.X, sp.Y); err != nil {
			// The node left the graph mid-drag.
			c.drag = nil
		}
	case c.pan != nil:
		c.view = c.view.Translate(p.X-c.pan.last.X, p.Y-c.pan.last.Y)
		c.pan.last = p
		c.dirty = true
	default:
		id, _ := c.HitTest(p)
		if id != c.hover {
			c.hover = id
			c.dirty = true
		}
	}
}

// PointerUp ends the current gesture. A drag that never left the click
// tolerance counts as a click on the node.
func (c *Controller) PointerUp(p Point) {
	if c.drag != nil {
		d := c.drag
		c.drag = nil
		if err := c.sim.Release(d.id); err != nil {
			return
		}
		if !d.moved {
			c.activate(d.id)
		}
		return
	}
	c.pan = nil
}

// Click handles a discrete click. Clicks arriving mid-drag are ignored.
func (c *Controller) Click(p Point) {
	if c.drag != nil {
		return
	}
	if id, ok := c.HitTest(p); ok {
		c.activate(id)
	}
}

// Wheel zooms about the pointer. Positive deltaY zooms out.
func (c *Controller) Wheel(p Point, deltaY float64) {
	c.zoomAt(math.Pow(2, -deltaY*c.cfg.WheelScale), p)
}

// Key handles keyboard shortcuts: + and - zoom about the viewport center,
// arrows pan, 0 resets the view and Escape clears selection and gestures.
func (c *Controller) Key(key string) {
	center := Point{X: c.cfg.Width / 2, Y: c.cfg.Height / 2}
	step := c.cfg.KeyPanStep
	switch key {
	case "+", "=":
		c.zoomAt(c.cfg.KeyZoomStep, center)
	case "-", "_":
		c.zoomAt(1/c.cfg.KeyZoomStep, center)
	case "0":
		c.ResetView()
	case "ArrowLeft":
		c.panBy(step, 0)
	case "ArrowRight":
		c.panBy(-step, 0)
	case "ArrowUp":
		c.panBy(0, step)
	case "ArrowDown":
		c.panBy(0, -step)
	case "Escape":
		c.endGesture()
		c.selected = ""
		c.hover = ""
		c.dirty = true
	}
}

// Forget drops every reference to accumulated nodes without touching the
// simulator. Used after the accumulator has been reset.
func (c *Controller) Forget() {
	c.drag = nil
	c.pan = nil
	c.hover = ""
	c.selected = ""
	c.dirty = true
}

func (c *Controller) activate(id string) {
	c.selected = id
	c.dirty = true
	if c.expand != nil {
		c.expand(id)
	}
}

func (c *Controller) endGesture() {
	if c.drag != nil {
		// Release only fails for a node that is gone, which leaves nothing pinned.
		_ = c.sim.Release(c.drag.id)
		c.drag = nil
	}
	c.pan = nil
}

func (c *Controller) zoomAt(factor float64, p Point) {
	c.view = c.view.ScaleAt(factor, p, c.cfg.MinZoom, c.cfg.MaxZoom)
	c.dirty = true
}

func (c *Controller) panBy(dx, dy float64) {
	c.view = c.view.Translate(dx, dy)
	c.dirty = true
}
