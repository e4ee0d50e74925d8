package layout

import "math"

// Config holds the simulator's force and cooling constants.
type Config struct {
	// Link force
	LinkDistance float64 `toml:"link_distance"`
	// LinkStrength scales the per-edge spring. Zero means 1/min(degree) of the
	// two endpoints, which keeps hubs from being yanked around.
	LinkStrength float64 `toml:"link_strength"`

	// Repulsion (many-body). Negative pushes nodes apart.
	Charge        float64 `toml:"charge"`
	ChargeDistMin float64 `toml:"charge_distance_min"`
	ChargeDistMax float64 `toml:"charge_distance_max"` // 0 = unbounded

	// Centering pulls the centroid toward (CenterX, CenterY).
	CenterX        float64 `toml:"center_x"`
	CenterY        float64 `toml:"center_y"`
	CenterStrength float64 `toml:"center_strength"`

	// Collision keeps disks of radius NodeRadius+CollidePadding apart.
	NodeRadius      float64 `toml:"node_radius"`
	CollidePadding  float64 `toml:"collide_padding"`
	CollideStrength float64 `toml:"collide_strength"`
	CollideRounds   int     `toml:"collide_rounds"`

	// Integration and cooling
	VelocityDecay float64 `toml:"velocity_decay"` // fraction of velocity lost per tick
	AlphaStart    float64 `toml:"alpha_start"`
	AlphaMin      float64 `toml:"alpha_min"`
	AlphaDecay    float64 `toml:"alpha_decay"`
	AlphaRestart  float64 `toml:"alpha_restart"`
	CoolingAlpha  float64 `toml:"cooling_alpha"`

	Seed uint64 `toml:"seed"`
}

// DefaultConfig mirrors the usual d3-force tuning for knowledge graphs of a
// few hundred nodes: alpha cools from 1 to AlphaMin in about 300 ticks.
func DefaultConfig() Config {
	return Config{
		LinkDistance:    150,
		Charge:          -400,
		ChargeDistMin:   1,
		CenterX:         0,
		CenterY:         0,
		CenterStrength:  0.05,
		NodeRadius:      20,
		CollidePadding:  4,
		CollideStrength: 1,
		CollideRounds:   2,
		VelocityDecay:   0.4,
		AlphaStart:      1,
		AlphaMin:        0.001,
		AlphaDecay:      1 - math.Pow(0.001, 1.0/300),
		AlphaRestart:    0.3,
		CoolingAlpha:    0.1,
		Seed:            1,
	}
}

// withDefaults fills zero values from DefaultConfig so partially specified
// TOML sections still produce a usable simulator.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LinkDistance <= 0 {
		c.LinkDistance = d.LinkDistance
	}
	if c.Charge == 0 {
		c.Charge = d.Charge
	}
	if c.ChargeDistMin <= 0 {
		c.ChargeDistMin = d.ChargeDistMin
	}
	if c.CenterStrength <= 0 {
		c.CenterStrength = d.CenterStrength
	}
	if c.NodeRadius <= 0 {
		c.NodeRadius = d.NodeRadius
	}
	if c.CollideStrength <= 0 {
		c.CollideStrength = d.CollideStrength
	}
	if c.CollideRounds <= 0 {
		c.CollideRounds = d.CollideRounds
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay >= 1 {
		c.VelocityDecay = d.VelocityDecay
	}
	if c.AlphaStart <= 0 || c.AlphaStart > 1 {
		c.AlphaStart = d.AlphaStart
	}
	if c.AlphaMin <= 0 {
		c.AlphaMin = d.AlphaMin
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay >= 1 {
		c.AlphaDecay = d.AlphaDecay
	}
	if c.AlphaRestart <= 0 || c.AlphaRestart > 1 {
		c.AlphaRestart = d.AlphaRestart
	}
	if c.CoolingAlpha <= c.AlphaMin {
		c.CoolingAlpha = d.CoolingAlpha
	}
	return c
}

// CollideRadius is the disk radius used for overlap resolution.
func (c Config) CollideRadius() float64 { return c.NodeRadius + c.CollidePadding }
