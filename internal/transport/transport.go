// SPDX-License-Identifier: MIT
package transport

import "breakfast/internal/analysis"

// Sink is a renderer feed. Publish runs on the frame loop goroutine and must
// not keep references into the frame; Close releases network resources.
type Sink interface {
	analysis.FrameSink
	Close() error
}

// BandState is the exported view of one detection band.
type BandState struct {
	Low     int    `json:"low"`
	High    int    `json:"high"`
	Counter int    `json:"counter"`
	Fired   bool   `json:"fired"`
	Total   uint64 `json:"total"`
}

// Snapshot is a self-contained copy of a frame, safe to hand to another
// goroutine or serialize.
type Snapshot struct {
	Index          uint64           `json:"index"`
	AvgAmplitude   float64          `json:"avg_amplitude"`
	WaveformRadius float64          `json:"waveform_radius"`
	Waveform       []float64        `json:"waveform"`
	Magnitudes     []float64        `json:"magnitudes"`
	Bass           BandState        `json:"bass"`
	Mid            BandState        `json:"mid"`
	BassPulses     []analysis.Pulse `json:"bass_pulses"`
	MidPulses      []analysis.Pulse `json:"mid_pulses"`
	History        [][]float64      `json:"history,omitempty"`
}

// Fill copies f into s, reusing s's slices when they are large enough.
// History magnitudes are only copied when withHistory is set.
func (s *Snapshot) Fill(f *analysis.Frame, withHistory bool) {
	s.Index = f.Index
	s.AvgAmplitude = f.AvgAmplitude
	s.WaveformRadius = f.WaveformRadius
	s.Waveform = append(s.Waveform[:0], f.Raw...)
	s.Magnitudes = resize(s.Magnitudes, len(f.Spectrum))
	f.Spectrum.MagnitudesInto(s.Magnitudes)
	s.Bass = bandState(f.BassBand)
	s.Mid = bandState(f.MidBand)
	s.BassPulses = append(s.BassPulses[:0], f.BassPulses.Pulses()...)
	s.MidPulses = append(s.MidPulses[:0], f.MidPulses.Pulses()...)

	if !withHistory {
		s.History = s.History[:0]
		return
	}
	n := f.History.Len()
	if cap(s.History) < n {
		s.History = append(s.History[:cap(s.History)], make([][]float64, n-cap(s.History))...)
	}
	s.History = s.History[:n]
	for i := range n {
		spec := f.History.At(i)
		s.History[i] = resize(s.History[i], len(spec))
		spec.MagnitudesInto(s.History[i])
	}
}

// NewSnapshot returns a fresh copy of f.
func NewSnapshot(f *analysis.Frame, withHistory bool) *Snapshot {
	s := &Snapshot{}
	s.Fill(f, withHistory)
	return s
}

func bandState(b *analysis.Band) BandState {
	return BandState{
		Low:     b.Low,
		High:    b.High,
		Counter: b.Counter(),
		Fired:   b.Fired,
		Total:   b.Total,
	}
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}
