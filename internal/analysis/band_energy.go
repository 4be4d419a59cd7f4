// SPDX-License-Identifier: MIT
package analysis

import "fmt"

// BandSpec describes a detection band in terms of percentages of the N/2
// spectrum bins. Bounds are computed with integer arithmetic,
// ((N/2)/100)*percent, so N=1024 gives a bass band of bins [0, 20) and a mid
// band of [21, 400).
type BandSpec struct {
	Name        string
	LowPercent  int
	HighPercent int
	SkipFirst   bool    // Start one bin above the low bound.
	Threshold   float64 // Magnitude a bin must exceed to count.
	Stagger     int     // Counted bins per trigger.
}

// DefaultBassBand and DefaultMidBand are the empirically tuned bands.
func DefaultBassBand() BandSpec {
	return BandSpec{Name: "bass", LowPercent: 0, HighPercent: 4, Threshold: 0.001, Stagger: 200}
}

func DefaultMidBand() BandSpec {
	return BandSpec{Name: "mid", LowPercent: 4, HighPercent: 80, SkipFirst: true, Threshold: 0.0004, Stagger: 400}
}

// Band is a resolved BandSpec with its stagger counter.
type Band struct {
	Name      string
	Low, High int // bins [Low, High)
	Threshold float64
	Stagger   int

	counter int
	Fired   bool // A trigger was emitted by the last Scan.
	Wraps   int  // Counter wraps during the last Scan, including absorbed ones.
	Total   uint64
}

// Counter returns the current stagger counter, in [0, Stagger).
func (b *Band) Counter() int { return b.counter }

// Bins returns the number of bins the band scans.
func (b *Band) Bins() int { return b.High - b.Low }

func newBand(spec BandSpec, bins int) (*Band, error) {
	unit := bins / 100
	low := unit * spec.LowPercent
	if spec.SkipFirst {
		low++
	}
	high := unit * spec.HighPercent
	if high > bins {
		high = bins
	}
	if low >= high {
		return nil, fmt.Errorf("band %q is empty for %d bins", spec.Name, bins)
	}
	if spec.Stagger < 1 {
		return nil, fmt.Errorf("band %q stagger must be positive, got %d", spec.Name, spec.Stagger)
	}
	return &Band{
		Name:      spec.Name,
		Low:       low,
		High:      high,
		Threshold: spec.Threshold,
		Stagger:   spec.Stagger,
	}, nil
}

// scan counts threshold crossings into the stagger counter. Each crossing
// advances the counter by one; a wrap to zero is a trigger, but a band fires
// at most once per frame.
func (b *Band) scan(spec Spectrum) {
	b.Fired = false
	b.Wraps = 0
	for k := b.Low; k < b.High; k++ {
		if spec.Magnitude(k) <= b.Threshold {
			continue
		}
		b.counter = (b.counter + 1) % b.Stagger
		if b.counter == 0 {
			b.Wraps++
		}
	}
	if b.Wraps > 0 {
		b.Fired = true
		b.Total++
	}
}

// BandMonitor scans the bass and mid bands of every spectrum.
type BandMonitor struct {
	Bass *Band
	Mid  *Band
}

// NewBandMonitor resolves both bands for a spectrum of bins values.
func NewBandMonitor(bass, mid BandSpec, bins int) (*BandMonitor, error) {
	b, err := newBand(bass, bins)
	if err != nil {
		return nil, err
	}
	m, err := newBand(mid, bins)
	if err != nil {
		return nil, err
	}
	if b.High > m.Low && m.High > b.Low {
		return nil, fmt.Errorf("bands %q [%d,%d) and %q [%d,%d) overlap", b.Name, b.Low, b.High, m.Name, m.Low, m.High)
	}
	return &BandMonitor{Bass: b, Mid: m}, nil
}

// Scan updates both bands from spec. Check Band.Fired afterwards.
func (m *BandMonitor) Scan(spec Spectrum) {
	m.Bass.scan(spec)
	m.Mid.scan(spec)
}
