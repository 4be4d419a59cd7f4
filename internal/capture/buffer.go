// SPDX-License-Identifier: MIT
/*
Package capture hands complete audio frames from the real-time callback to
the frame loop without locks.

The buffer owns three slots. The writer (audio callback) always fills its own
back slot, then swaps it with the pending slot in one atomic operation and
marks it fresh. The reader (frame loop) swaps its front slot with the pending
slot only when the fresh mark is set. Each side only ever touches the slot it
owns, so a frame is never read while it is being written, and neither side
waits for the other.

Thread Safety:
  - Write/WriteInterleaved: audio callback only (single producer)
  - Read: frame loop only (single consumer)
  - Size/Frames/Rejected: any goroutine
*/
package capture

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrFrameSize is returned when a callback delivers a frame whose length
// does not match the configured size. It is preallocated so the audio
// callback can return it without allocating.
var ErrFrameSize = errors.New("capture: frame size mismatch")

const (
	slotMask  = 0x3
	freshFlag = 0x4
)

// Buffer is a single-producer/single-consumer frame exchange.
type Buffer struct {
	size  int
	slots [3][]float32

	back  int // writer-owned slot
	front int // reader-owned slot

	pending atomic.Uint32 // slot index | freshFlag

	frames   atomic.Uint64
	rejected atomic.Uint64
}

// New allocates a buffer for frames of size samples. All slots start silent.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("capture: frame size must be positive, got %d", size)
	}
	b := &Buffer{size: size, back: 0, front: 1}
	for i := range b.slots {
		b.slots[i] = make([]float32, size)
	}
	b.pending.Store(2)
	return b, nil
}

// Size returns the frame length N.
func (b *Buffer) Size() int { return b.size }

// Write copies a mono frame and publishes it. It never blocks or allocates.
func (b *Buffer) Write(in []float32) error {
	if len(in) != b.size {
		b.rejected.Add(1)
		return ErrFrameSize
	}
	copy(b.slots[b.back], in)
	b.publish()
	return nil
}

// WriteInterleaved publishes channel 0 of an interleaved multi-channel
// frame. in must hold size*channels samples.
func (b *Buffer) WriteInterleaved(in []float32, channels int) error {
	if channels <= 1 {
		return b.Write(in)
	}
	if len(in) != b.size*channels {
		b.rejected.Add(1)
		return ErrFrameSize
	}
	dst := b.slots[b.back]
	for i := range dst {
		dst[i] = in[i*channels]
	}
	b.publish()
	return nil
}

func (b *Buffer) publish() {
	prev := b.pending.Swap(uint32(b.back) | freshFlag)
	b.back = int(prev & slotMask)
	b.frames.Add(1)
}

// Read returns the newest published frame. When nothing was published since
// the last Read, the same frame is returned again. The slice belongs to the
// buffer and stays valid until the next Read.
func (b *Buffer) Read() []float32 {
	if b.pending.Load()&freshFlag != 0 {
		prev := b.pending.Swap(uint32(b.front))
		b.front = int(prev & slotMask)
	}
	return b.slots[b.front]
}

// Frames returns how many frames have been published.
func (b *Buffer) Frames() uint64 { return b.frames.Load() }

// Rejected returns how many deliveries were refused for a size mismatch.
func (b *Buffer) Rejected() uint64 { return b.rejected.Load() }

// Mute zeroes an output buffer. The system never produces audio.
func Mute(out []float32) {
	clear(out)
}
