// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrFrameSizeMismatch is returned by New when the capture buffer and the
// pipeline disagree on N.
var ErrFrameSizeMismatch = errors.New("capture frame size does not match pipeline frame size")

// DefaultHistoryDepth is the number of spectra kept for the trail.
const DefaultHistoryDepth = 61

// Options fixes every pipeline parameter for the life of the process.
type Options struct {
	FrameSize    int
	Window       WindowFunc
	HistoryDepth int
	Bass, Mid    BandSpec
	BassPulses   PulseParams
	MidPulses    PulseParams
	Decay        DecayPolicy
}

// DefaultOptions returns the tuned configuration for frames of n samples.
func DefaultOptions(n int) Options {
	return Options{
		FrameSize:    n,
		Window:       Hann,
		HistoryDepth: DefaultHistoryDepth,
		Bass:         DefaultBassBand(),
		Mid:          DefaultMidBand(),
		BassPulses:   BassPulseParams(),
		MidPulses:    MidPulseParams(),
		Decay:        DecayPolicy{Mode: Persist},
	}
}

// Frame is the read-only view handed to renderers after each Step. Every
// slice and pointer in it is reused by the next Step.
type Frame struct {
	Index          uint64
	Raw            []float64 // frame as captured
	Windowed       []float64 // Raw times the window, the FFT input
	Spectrum       Spectrum
	History        *History
	BassBand       *Band
	MidBand        *Band
	BassPulses     *PulsePool
	MidPulses      *PulsePool
	AvgAmplitude   float64
	WaveformRadius float64
}

// Pipeline owns all analysis state. Step must only be called from one
// goroutine (the frame loop); the capture side is reached through the
// FrameReader.
type Pipeline struct {
	src       FrameReader
	window    []float64
	raw       []float64
	windowed  []float64
	transform *Transform
	spectrum  Spectrum
	history   *History
	monitor   *BandMonitor
	bass      *PulsePool
	mid       *PulsePool
	breather  *Breather
	frame     Frame
}

// New builds a pipeline reading from src. rng drives pulse colors; pass a
// seeded source for reproducible output.
func New(opts Options, src FrameReader, rng *rand.Rand) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline needs a frame source")
	}
	if src.Size() != opts.FrameSize {
		return nil, fmt.Errorf("%w: capture %d, pipeline %d", ErrFrameSizeMismatch, src.Size(), opts.FrameSize)
	}
	if opts.HistoryDepth < 1 {
		return nil, fmt.Errorf("history depth must be positive, got %d", opts.HistoryDepth)
	}

	transform, err := NewTransform(opts.FrameSize)
	if err != nil {
		return nil, err
	}
	bins := opts.FrameSize / 2
	monitor, err := NewBandMonitor(opts.Bass, opts.Mid, bins)
	if err != nil {
		return nil, err
	}
	bass, err := NewPulsePool(opts.BassPulses, opts.Decay, rng)
	if err != nil {
		return nil, err
	}
	mid, err := NewPulsePool(opts.MidPulses, opts.Decay, rng)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		src:       src,
		window:    NewWindow(opts.Window, opts.FrameSize),
		raw:       make([]float64, opts.FrameSize),
		windowed:  make([]float64, opts.FrameSize),
		transform: transform,
		spectrum:  make(Spectrum, bins),
		history:   NewHistory(opts.HistoryDepth, bins),
		monitor:   monitor,
		bass:      bass,
		mid:       mid,
		breather:  NewBreather(),
	}
	p.frame = Frame{
		Raw:            p.raw,
		Windowed:       p.windowed,
		Spectrum:       p.spectrum,
		History:        p.history,
		BassBand:       monitor.Bass,
		MidBand:        monitor.Mid,
		BassPulses:     bass,
		MidPulses:      mid,
		WaveformRadius: p.breather.Radius(),
	}
	return p, nil
}

// Step analyses the newest captured frame and returns the updated view.
// It does not allocate.
func (p *Pipeline) Step() *Frame {
	in := p.src.Read()
	for i := range p.raw {
		p.raw[i] = float64(in[i])
	}

	avg := AverageAmplitude(p.raw)
	radius := p.breather.Step(avg)

	ApplyWindow(p.windowed, p.raw, p.window)
	p.transform.Forward(p.spectrum, p.windowed)

	p.monitor.Scan(p.spectrum)
	if p.monitor.Bass.Fired {
		p.bass.Trigger(radius)
	}
	if p.monitor.Mid.Fired {
		p.mid.Trigger(radius)
	}
	p.bass.Update()
	p.mid.Update()

	p.history.Push(p.spectrum)

	p.frame.Index++
	p.frame.AvgAmplitude = avg
	p.frame.WaveformRadius = radius
	return &p.frame
}

// FrameSize returns N.
func (p *Pipeline) FrameSize() int { return len(p.raw) }
