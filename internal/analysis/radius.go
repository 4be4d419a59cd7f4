// SPDX-License-Identifier: MIT
package analysis

import "math"

// Breather bounces the waveform circle's radius between MinRadius and
// MaxRadius at a speed set by the frame's average amplitude. Bass pulses are
// born at twice this radius.
type Breather struct {
	radius float64
	delta  float64
}

const (
	MinRadius          = 1.2
	MaxRadius          = 1.4
	initialRadiusDelta = 0.1
)

// NewBreather starts at MinRadius.
func NewBreather() *Breather {
	return &Breather{radius: MinRadius, delta: initialRadiusDelta}
}

// Step turns around at either bound, then moves by avg^0.4/25. The speed is
// only refreshed at the bounds, so a radius between them keeps its last
// direction and speed. Overshooting a bound by one step is expected.
func (b *Breather) Step(avgAmplitude float64) float64 {
	speed := math.Pow(avgAmplitude, 0.4) / 25.0
	if b.radius >= MaxRadius {
		b.delta = -speed
	} else if b.radius <= MinRadius {
		b.delta = speed
	}
	b.radius += b.delta
	return b.radius
}

// Radius returns the current radius.
func (b *Breather) Radius() float64 { return b.radius }

// AverageAmplitude returns mean(|x|) over frame, 0 for an empty frame.
func AverageAmplitude(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += math.Abs(v)
	}
	return sum / float64(len(frame))
}
