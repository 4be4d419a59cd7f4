// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"breakfast/internal/capture"

	"github.com/go-audio/wav"
)

// ErrSourceEnded is returned by Next once a non-looping file has been played.
var ErrSourceEnded = errors.New("audio: source ended")

// FileSource replays a WAV file into a capture buffer in real time, standing
// in for a live device. Only channel 0 is used. Samples are scaled to
// [-1, 1) by the file's bit depth.
type FileSource struct {
	path       string
	samples    []float32
	sampleRate float64
	frameSize  int
	loop       bool

	pos   int
	frame []float32 // reused by Next

	interval time.Duration
	ticker   *time.Ticker
	doneChan chan struct{}
	ended    chan struct{}
	endOnce  sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// OpenFile decodes the whole file up front so playback never touches disk.
func OpenFile(path string, frameSize int, loop bool) (*FileSource, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("audio: frame size must be positive, got %d", frameSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)
	if pcm.SourceBitDepth > 0 {
		bitDepth = pcm.SourceBitDepth
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(pcm.Data)/channels)
	for i := range samples {
		samples[i] = float32(pcm.Data[i*channels]) / scale
	}

	s := &FileSource{
		path:       path,
		samples:    samples,
		sampleRate: float64(dec.SampleRate),
		frameSize:  frameSize,
		loop:       loop,
		frame:      make([]float32, frameSize),
		ended:      make(chan struct{}),
	}
	s.interval = time.Duration(float64(frameSize) / s.sampleRate * float64(time.Second))
	logger.Infof("loaded %s: %d samples at %.0f Hz, %d-bit, %d channel(s)",
		path, len(samples), s.sampleRate, bitDepth, channels)
	return s, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 { return s.sampleRate }

// Len returns the number of mono samples in the file.
func (s *FileSource) Len() int { return len(s.samples) }

// Interval returns the real-time duration of one frame.
func (s *FileSource) Interval() time.Duration { return s.interval }

// Next returns the next frame, zero-padding the last partial one. A looping
// source starts over at the end; otherwise ErrSourceEnded is returned. The
// slice is reused by the next call.
func (s *FileSource) Next() ([]float32, error) {
	if s.pos >= len(s.samples) {
		if !s.loop || len(s.samples) == 0 {
			return nil, ErrSourceEnded
		}
		s.pos = 0
	}
	n := copy(s.frame, s.samples[s.pos:])
	clear(s.frame[n:])
	s.pos += s.frameSize
	return s.frame, nil
}

// Start feeds buf one frame per frame interval until the file ends or Stop
// is called.
func (s *FileSource) Start(buf *capture.Buffer) error {
	if buf.Size() != s.frameSize {
		return fmt.Errorf("audio: source frames of %d do not fit capture buffer of %d", s.frameSize, buf.Size())
	}

	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		logger.Warnf("FileSource: Start called but already running.")
		return nil
	}
	s.ticker = time.NewTicker(s.interval)
	s.doneChan = make(chan struct{})
	s.stopOnce = sync.Once{}
	ticker := s.ticker
	doneChan := s.doneChan
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.C:
				frame, err := s.Next()
				if err != nil {
					logger.Infof("replay of %s finished", s.path)
					s.endOnce.Do(func() { close(s.ended) })
					return
				}
				_ = buf.Write(frame)
			case <-doneChan:
				return
			}
		}
	}()
	return nil
}

// Done is closed when a non-looping source has played to the end.
func (s *FileSource) Done() <-chan struct{} { return s.ended }

// Stop halts playback and waits for the feeder goroutine.
func (s *FileSource) Stop() error {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.doneChan)
		s.ticker.Stop()
		s.ticker = nil
	})
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Close implements io.Closer.
func (s *FileSource) Close() error { return s.Stop() }

var _ interface{ Close() error } = (*FileSource)(nil)
