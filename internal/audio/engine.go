// SPDX-License-Identifier: MIT
/*
Package audio connects PortAudio (or a WAV file) to the capture buffer.

The stream callback is the only code that runs on the audio thread. It copies
channel 0 of the delivered frame into the capture buffer and zeroes the
output buffer; it never blocks, allocates or logs.

Thread Safety:
  - processStream: audio thread only
  - Start/Stop/Close: control goroutine
  - Stats: any goroutine
*/
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"breakfast/internal/capture"
	"breakfast/internal/config"
	applog "breakfast/internal/log"

	"github.com/gordonklaus/portaudio"
)

var logger = applog.With("audio")

// Engine owns the PortAudio input stream.
type Engine struct {
	cfg config.AudioConfig
	buf *capture.Buffer

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	stream       *portaudio.Stream

	callbacks atomic.Uint64
}

// Stats is a snapshot of the callback counters.
type Stats struct {
	Callbacks uint64
	Published uint64
	Rejected  uint64
}

// NewEngine resolves the input device for cfg. The stream is opened by Start.
// buf must be sized to cfg.FramesPerBuffer: the device delivers N samples per
// callback and the analysis expects exactly N.
func NewEngine(cfg config.AudioConfig, buf *capture.Buffer) (*Engine, error) {
	if buf == nil {
		return nil, fmt.Errorf("audio: capture buffer is required")
	}
	if buf.Size() != cfg.FramesPerBuffer {
		return nil, &config.ConfigError{
			Field:  "audio.frames_per_buffer",
			Reason: fmt.Sprintf("stream delivers %d frames but the capture buffer holds %d", cfg.FramesPerBuffer, buf.Size()),
		}
	}

	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.InputChannels {
		return nil, &config.ConfigError{
			Field:  "audio.input_channels",
			Reason: fmt.Sprintf("device %q has %d input channels, %d requested", inputDevice.Name, inputDevice.MaxInputChannels, cfg.InputChannels),
		}
	}

	engine := &Engine{
		cfg:         cfg,
		buf:         buf,
		inputDevice: inputDevice,
	}
	if cfg.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return engine, nil
}

// Start opens and starts the stream.
func (e *Engine) Start() error {
	if e.stream != nil {
		return nil
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}
	if e.cfg.OutputChannels > 0 {
		out, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return fmt.Errorf("failed to open output device: %w", err)
		}
		params.Output = portaudio.StreamDeviceParameters{
			Channels: e.cfg.OutputChannels,
			Device:   out,
			Latency:  out.DefaultHighOutputLatency,
		}
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream on %q: %w", e.inputDevice.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.stream = stream

	logger.Infof("capturing from %q at %.0f Hz, %d frames per buffer, latency %s",
		e.inputDevice.Name, e.cfg.SampleRate, e.cfg.FramesPerBuffer, e.inputLatency)
	return nil
}

// Stop stops and closes the stream. It is safe to call more than once.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	stream := e.stream
	e.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	s := e.Stats()
	logger.Infof("stream closed after %d callbacks (%d published, %d rejected)", s.Callbacks, s.Published, s.Rejected)
	return nil
}

// Close implements io.Closer.
func (e *Engine) Close() error {
	return e.Stop()
}

// Stats reports how many callbacks ran and what the capture buffer did with
// them.
func (e *Engine) Stats() Stats {
	return Stats{
		Callbacks: e.callbacks.Load(),
		Published: e.buf.Frames(),
		Rejected:  e.buf.Rejected(),
	}
}

// processStream is the PortAudio callback.
// Performance Critical:
//   - Runs on the audio thread
//   - Uses pre-allocated buffers only
//   - A wrong-sized frame is counted by the buffer and dropped
func (e *Engine) processStream(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.callbacks.Add(1)
	_ = e.buf.WriteInterleaved(in, e.cfg.InputChannels)
	capture.Mute(out)
}

var _ interface{ Close() error } = (*Engine)(nil)
