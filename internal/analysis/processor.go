// SPDX-License-Identifier: MIT
package analysis

// FrameReader is the consumer side of the capture buffer. Read returns the
// newest complete frame, or the previous one again if nothing new arrived;
// the slice stays valid until the next Read.
type FrameReader interface {
	Read() []float32
	Size() int
}

// FrameSink receives every analysed frame on the frame loop goroutine. A
// sink must copy anything it keeps: the frame's slices are rewritten by the
// next Step.
type FrameSink interface {
	Publish(f *Frame) error
}
