// SPDX-License-Identifier: MIT
//
// Package bitint provides the power-of-two helpers used to validate frame and
// FFT sizes. Both functions are O(1), allocation free and safe to call from
// the audio callback.
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Subtracting one
// before taking the bit length keeps exact powers of two unchanged:
//
//	Input  Output
//	1024   1024
//	1000   1024
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two has
// a single bit set, so clearing its lowest set bit (n & (n-1)) yields zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
