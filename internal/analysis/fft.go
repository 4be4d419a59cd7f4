// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"breakfast/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum is the one-sided transform of a frame: N/2 complex bins. Bin 0
// carries DC in its real part and the Nyquist term in its imaginary part.
// Every bin is scaled by 1/N, which is the scale the band thresholds assume.
type Spectrum []complex128

// Magnitude returns |bin k|.
func (s Spectrum) Magnitude(k int) float64 {
	return math.Hypot(real(s[k]), imag(s[k]))
}

// MagnitudesInto writes |bin k| for every bin into dst, which must hold at
// least len(s) values.
func (s Spectrum) MagnitudesInto(dst []float64) {
	for k := range s {
		dst[k] = math.Hypot(real(s[k]), imag(s[k]))
	}
}

// Transform is a reusable real-input FFT of a fixed size.
type Transform struct {
	fft    *fourier.FFT
	size   int
	coeffs []complex128 // gonum layout, N/2+1 bins
}

// NewTransform prepares an FFT of size n. n must be a power of two so the
// bin layout matches the band arithmetic.
func NewTransform(n int) (*Transform, error) {
	if !bitint.IsPowerOfTwo(n) || n < 4 {
		return nil, fmt.Errorf("fft size must be a power of 2 >= 4, got %d", n)
	}
	return &Transform{
		fft:    fourier.NewFFT(n),
		size:   n,
		coeffs: make([]complex128, n/2+1),
	}, nil
}

// Size returns the number of real samples per transform.
func (t *Transform) Size() int { return t.size }

// Forward computes the packed, normalized spectrum of windowed into dst.
// windowed must hold Size() samples and dst Size()/2 bins.
func (t *Transform) Forward(dst Spectrum, windowed []float64) {
	t.fft.Coefficients(t.coeffs, windowed)

	half := t.size / 2
	scale := 1 / float64(t.size)
	dst[0] = complex(real(t.coeffs[0])*scale, real(t.coeffs[half])*scale)
	for k := 1; k < half; k++ {
		dst[k] = t.coeffs[k] * complex(scale, 0)
	}
}

// Inverse reconstructs the windowed frame from a spectrum produced by
// Forward. dst must hold Size() samples.
func (t *Transform) Inverse(dst []float64, spec Spectrum) {
	half := t.size / 2
	// Forward divided by N and gonum's Sequence does not normalize, so the
	// two scales cancel once the DC/Nyquist packing is undone.
	t.coeffs[0] = complex(real(spec[0]), 0)
	t.coeffs[half] = complex(imag(spec[0]), 0)
	for k := 1; k < half; k++ {
		t.coeffs[k] = spec[k]
	}
	t.fft.Sequence(dst, t.coeffs)
}
