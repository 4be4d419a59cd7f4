// SPDX-License-Identifier: MIT
package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

// springBars smooths a row of log-spaced spectrum bars with one critically
// damped spring per bar.
type springBars struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringBars(fps, n int) *springBars {
	return &springBars{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 1.0),
		pos:    make([]float64, n),
		vel:    make([]float64, n),
	}
}

// update moves every bar toward the band level of mags.
func (s *springBars) update(mags []float64) {
	n := len(s.pos)
	maxBin := len(mags)
	for b := range n {
		lo := int(math.Pow(float64(maxBin), float64(b)/float64(n)))
		hi := int(math.Pow(float64(maxBin), float64(b+1)/float64(n)))
		lo = max(lo, 1)
		hi = min(max(hi, lo+1), maxBin)

		sum := 0.0
		for i := lo; i < hi; i++ {
			sum += mags[i]
		}
		target := 0.0
		if hi > lo {
			target = level(sum / float64(hi-lo))
		}
		s.pos[b], s.vel[b] = s.spring.Update(s.pos[b], s.vel[b], target)
	}
}

// level maps a magnitude onto [0, 1] on a 60 dB scale.
func level(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	return min(max((db+60)/60, 0), 1)
}

// render draws the bars height rows tall.
func (s *springBars) render(height int) string {
	height = max(height, 1)
	steps := len(barChars) - 1
	var sb strings.Builder
	for row := height - 1; row >= 0; row-- {
		for _, p := range s.pos {
			fill := min(max(p, 0), 1)*float64(height) - float64(row)
			idx := int(math.Round(min(max(fill, 0), 1) * float64(steps)))
			sb.WriteRune(barChars[idx])
		}
		if row > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
