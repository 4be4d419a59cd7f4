// SPDX-License-Identifier: MIT
package tui

import "math"

// AutoRaveLevel is the average amplitude above which auto-rave engages.
const AutoRaveLevel = 0.015

// Flasher toggles the rave background. Louder frames shorten the toggle
// period: the flash flips once the frame counter exceeds
// floor(sqrt(5000*avg)*2).
type Flasher struct {
	frame int
	flash bool

	Rave     bool // forced on by the user
	AutoRave bool // allow loud passages to turn rave on
	forced   bool
}

// Step advances one frame with the frame's average amplitude.
func (f *Flasher) Step(avg float64) {
	if f.frame > Threshold(avg) {
		f.frame = 0
		f.flash = !f.flash
	}
	f.frame++
	f.forced = avg > AutoRaveLevel
}

// Threshold returns the toggle period for avg.
func Threshold(avg float64) int {
	return int(math.Floor(math.Sqrt(5000*avg) * 2))
}

// Raving reports whether rave mode is on, by hand or by loudness.
func (f *Flasher) Raving() bool {
	return f.Rave || (f.forced && f.AutoRave)
}

// Lit reports whether the background should flash this frame.
func (f *Flasher) Lit() bool {
	return f.Raving() && f.flash
}
