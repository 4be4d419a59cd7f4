// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Color holds three channels in [0, 1].
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// Pulse is one transient ring drawn by the renderer.
type Pulse struct {
	Active       bool    `json:"active"`
	Radius       float64 `json:"radius"`
	Color        Color   `json:"color"`
	StrokeWeight float64 `json:"stroke_weight"`
	DepthOffset  float64 `json:"depth_offset"`
}

// Visible reports whether the renderer should draw the pulse: it must be
// active and no color channel may have decayed to exactly zero.
func (p *Pulse) Visible() bool {
	return p.Active && p.Color.Red != 0 && p.Color.Green != 0 && p.Color.Blue != 0
}

// defaultPulse is the state of a slot that has never been triggered.
var defaultPulse = Pulse{Color: Color{Red: 0.5, Green: 0.5, Blue: 1.0}}

// ColorRange draws a channel as Base + n/100 with n uniform in [0, Steps).
type ColorRange struct {
	Base  float64
	Steps int
}

func (r ColorRange) draw(rng *rand.Rand) float64 {
	return r.Base + float64(rng.IntN(r.Steps))/100
}

// PulseParams configures one pool.
type PulseParams struct {
	Name     string
	Capacity int

	// Radius at trigger is RadiusScale*base + RadiusOffset, where base is the
	// waveform radius passed to Trigger.
	RadiusScale  float64
	RadiusOffset float64

	Red, Green, Blue ColorRange
	StrokeWeight     float64
	DepthOffset      float64

	RadiusStep float64 // added per frame while below RadiusCap
	RadiusCap  float64
	ColorDecay float64 // fraction removed from each channel per frame
	StrokeStep float64
	DepthStep  float64
}

// BassPulseParams returns the bass pool: wide blue rings born at twice the
// waveform radius.
func BassPulseParams() PulseParams {
	return PulseParams{
		Name:         "bass",
		Capacity:     40,
		RadiusScale:  2,
		Red:          ColorRange{Base: 0.3, Steps: 30},
		Green:        ColorRange{Base: 0.2, Steps: 30},
		Blue:         ColorRange{Base: 0.9, Steps: 10},
		StrokeWeight: 30.0,
		DepthOffset:  -1e-10,
		RadiusStep:   0.075,
		RadiusCap:    10.0,
		ColorDecay:   0.005,
		StrokeStep:   0.01,
		DepthStep:    0.03,
	}
}

// MidPulseParams returns the mid pool: thin red semicircles born at a fixed
// radius.
func MidPulseParams() PulseParams {
	return PulseParams{
		Name:         "mid",
		Capacity:     50,
		RadiusOffset: 0.25,
		Red:          ColorRange{Base: 0.9, Steps: 10},
		Green:        ColorRange{Base: 0.2, Steps: 30},
		Blue:         ColorRange{Base: 0.3, Steps: 30},
		StrokeWeight: 5.0,
		DepthOffset:  0,
		RadiusStep:   0.075,
		RadiusCap:    10.0,
		ColorDecay:   0.005,
		StrokeStep:   0.01,
		DepthStep:    0.04,
	}
}

// Policy decides whether faded pulses are ever switched off.
type Policy int

const (
	// Persist keeps pulses active forever; they fade toward invisibility.
	Persist Policy = iota
	// Reclaim clears Active once a pulse has faded out.
	Reclaim
)

func (p Policy) String() string {
	if p == Reclaim {
		return "reclaim"
	}
	return "persist"
}

// ParsePolicy converts "persist" or "reclaim" (case-insensitive).
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "persist", "":
		return Persist, nil
	case "reclaim":
		return Reclaim, nil
	default:
		return Persist, fmt.Errorf("unknown pulse policy '%s'", name)
	}
}

// DecayPolicy applies to both pools. With Reclaim a pulse is deactivated when
// its brightest channel drops below MinColor or its stroke reaches zero.
type DecayPolicy struct {
	Mode     Policy
	MinColor float64
}

func (d DecayPolicy) faded(p *Pulse) bool {
	if d.Mode != Reclaim {
		return false
	}
	brightest := max(p.Color.Red, p.Color.Green, p.Color.Blue)
	return brightest < d.MinColor || p.StrokeWeight <= 0
}

// PulsePool is a fixed ring of pulses reused in circular order.
type PulsePool struct {
	params PulseParams
	decay  DecayPolicy
	rng    *rand.Rand
	pulses []Pulse
	next   int
}

// NewPulsePool allocates params.Capacity slots in their default state.
func NewPulsePool(params PulseParams, decay DecayPolicy, rng *rand.Rand) (*PulsePool, error) {
	if params.Capacity < 1 {
		return nil, fmt.Errorf("pulse pool %q capacity must be positive, got %d", params.Name, params.Capacity)
	}
	if rng == nil {
		return nil, fmt.Errorf("pulse pool %q needs a random source", params.Name)
	}
	pool := &PulsePool{
		params: params,
		decay:  decay,
		rng:    rng,
		pulses: make([]Pulse, params.Capacity),
	}
	for i := range pool.pulses {
		pool.pulses[i] = defaultPulse
	}
	return pool, nil
}

// Trigger starts a pulse in the slot at the allocation index and advances
// the index modulo capacity. The slot's previous pulse, if any, is replaced.
func (pp *PulsePool) Trigger(baseRadius float64) int {
	slot := pp.next
	p := &pp.pulses[slot]
	p.Active = true
	p.Radius = pp.params.RadiusScale*baseRadius + pp.params.RadiusOffset
	p.Color.Green = pp.params.Green.draw(pp.rng)
	p.Color.Blue = pp.params.Blue.draw(pp.rng)
	p.Color.Red = pp.params.Red.draw(pp.rng)
	p.StrokeWeight = pp.params.StrokeWeight
	p.DepthOffset = pp.params.DepthOffset
	pp.next = (pp.next + 1) % len(pp.pulses)
	return slot
}

// Update advances every active pulse by one frame.
func (pp *PulsePool) Update() {
	prm := &pp.params
	for i := range pp.pulses {
		p := &pp.pulses[i]
		if !p.Active {
			continue
		}
		if p.Radius < prm.RadiusCap {
			p.Radius = min(p.Radius+prm.RadiusStep, prm.RadiusCap)
		}
		p.Color.Red -= p.Color.Red * prm.ColorDecay
		p.Color.Green -= p.Color.Green * prm.ColorDecay
		p.Color.Blue -= p.Color.Blue * prm.ColorDecay
		p.StrokeWeight -= prm.StrokeStep
		p.DepthOffset -= prm.DepthStep
		if pp.decay.faded(p) {
			p.Active = false
		}
	}
}

// Next returns the slot the next Trigger will write.
func (pp *PulsePool) Next() int { return pp.next }

// Pulses returns the pool's slots. The slice is owned by the pool and is
// rewritten by the next Trigger or Update.
func (pp *PulsePool) Pulses() []Pulse { return pp.pulses }

// Name returns the pool's name.
func (pp *PulsePool) Name() string { return pp.params.Name }

// ActiveCount returns the number of active slots.
func (pp *PulsePool) ActiveCount() int {
	n := 0
	for i := range pp.pulses {
		if pp.pulses[i].Active {
			n++
		}
	}
	return n
}
