// SPDX-License-Identifier: MIT
package analysis

// History keeps the most recent spectra, newest first. Storage for every
// slot is allocated up front so Push never allocates.
type History struct {
	slots []Spectrum
	n     int
}

// NewHistory allocates depth slots of bins complex values each.
func NewHistory(depth, bins int) *History {
	slots := make([]Spectrum, depth)
	for i := range slots {
		slots[i] = make(Spectrum, bins)
	}
	return &History{slots: slots}
}

// Push shifts every entry one slot toward the tail, drops whatever falls off
// the end and copies spec into slot 0.
func (h *History) Push(spec Spectrum) {
	if h.n < len(h.slots) {
		h.n++
	}
	for i := h.n - 1; i > 0; i-- {
		copy(h.slots[i], h.slots[i-1])
	}
	copy(h.slots[0], spec)
}

// Len returns the number of valid entries, at most Cap().
func (h *History) Len() int { return h.n }

// Cap returns the configured depth.
func (h *History) Cap() int { return len(h.slots) }

// At returns entry i, 0 being the newest. The slice is overwritten by the
// next Push.
func (h *History) At(i int) Spectrum { return h.slots[i] }
