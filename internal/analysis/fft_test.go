// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"breakfast/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 44100
)

func TestNewTransformRejectsBadSize(t *testing.T) {
	for _, n := range []int{0, 2, 1000} {
		if _, err := NewTransform(n); err == nil {
			t.Errorf("NewTransform(%d): expected error", n)
		}
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	tr, err := NewTransform(testFFTSize)
	if err != nil {
		t.Fatal(err)
	}
	wave := utils.GenerateComplexWave(testFFTSize, testSampleRate, 0.8)
	coeffs := NewWindow(Hann, testFFTSize)
	windowed := make([]float64, testFFTSize)
	for i := range windowed {
		windowed[i] = float64(wave[i]) * coeffs[i]
	}

	spec := make(Spectrum, testFFTSize/2)
	tr.Forward(spec, windowed)
	back := make([]float64, testFFTSize)
	tr.Inverse(back, spec)

	for i := range windowed {
		if math.Abs(back[i]-windowed[i]) > 1e-9 {
			t.Fatalf("sample %d: got %v, want %v", i, back[i], windowed[i])
		}
	}
}

func TestForwardPacksDCAndNyquist(t *testing.T) {
	tr, _ := NewTransform(8)
	spec := make(Spectrum, 4)

	tr.Forward(spec, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5})
	if math.Abs(real(spec[0])-0.5) > 1e-12 || math.Abs(imag(spec[0])) > 1e-12 {
		t.Errorf("DC frame: bin 0 = %v, want (0.5+0i)", spec[0])
	}

	tr.Forward(spec, []float64{0.25, -0.25, 0.25, -0.25, 0.25, -0.25, 0.25, -0.25})
	if math.Abs(real(spec[0])) > 1e-12 || math.Abs(imag(spec[0])-0.25) > 1e-12 {
		t.Errorf("Nyquist frame: bin 0 = %v, want (0+0.25i)", spec[0])
	}
	for k := 1; k < 4; k++ {
		if spec.Magnitude(k) > 1e-12 {
			t.Errorf("Nyquist frame: bin %d = %v, want 0", k, spec[k])
		}
	}
}

func TestForwardSinePeak(t *testing.T) {
	tr, _ := NewTransform(testFFTSize)
	const bin = 40
	freq := float64(bin) * testSampleRate / testFFTSize
	wave := utils.GenerateSineWave(testFFTSize, testSampleRate, freq, 0.5)
	coeffs := NewWindow(Hann, testFFTSize)
	windowed := make([]float64, testFFTSize)
	ApplyWindow(windowed, toFloat64(wave), coeffs)

	spec := make(Spectrum, testFFTSize/2)
	tr.Forward(spec, windowed)
	mags := make([]float64, len(spec))
	spec.MagnitudesInto(mags)

	if got := utils.FindPeakBin(mags, 1, len(mags)-1); got != bin {
		t.Errorf("peak bin = %d, want %d", got, bin)
	}
	// A Hann-windowed sine of amplitude A peaks near A/4 after 1/N scaling.
	if math.Abs(mags[bin]-0.125) > 0.005 {
		t.Errorf("peak magnitude = %v, want ~0.125", mags[bin])
	}
}

func TestForwardHotPath(t *testing.T) {
	tr, _ := NewTransform(testFFTSize)
	windowed := toFloat64(utils.GenerateComplexWave(testFFTSize, testSampleRate, 0.5))
	spec := make(Spectrum, testFFTSize/2)

	tr.Forward(spec, windowed)
	allocs := testing.AllocsPerRun(100, func() {
		tr.Forward(spec, windowed)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Forward, got %.1f", allocs)
	}
}

func BenchmarkForward(b *testing.B) {
	tr, _ := NewTransform(testFFTSize)
	windowed := toFloat64(utils.GenerateComplexWave(testFFTSize, testSampleRate, 0.9))
	spec := make(Spectrum, testFFTSize/2)
	b.ReportAllocs()
	for b.Loop() {
		tr.Forward(spec, windowed)
	}
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
