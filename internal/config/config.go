// SPDX-License-Identifier: MIT
package config

import "fmt"

// Core configuration constants that define the boundaries and defaults
// for the analysis pipeline.
const (
	// Audio defaults
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 1024        // Frame size N, also the FFT size
	DefaultInputChannels   = 1           // Mono capture
	DefaultOutputChannels  = 0           // Output is always silent
	DefaultLowLatency      = false       // Standard latency mode

	// Analysis defaults
	DefaultWindow       = "hann"
	DefaultHistoryDepth = 61 // Spectra kept for the trail
	DefaultFrameRate    = 60 // Frame loop ticks per second

	DefaultBassLowPercent  = 0
	DefaultBassHighPercent = 4
	DefaultBassThreshold   = 0.001
	DefaultBassStagger     = 200

	DefaultMidLowPercent  = 4
	DefaultMidHighPercent = 80
	DefaultMidThreshold   = 0.0004
	DefaultMidStagger     = 400

	// Pulse pool defaults
	DefaultBassCapacity = 40
	DefaultMidCapacity  = 50
	DefaultPulsePolicy  = PolicyPersist
	DefaultMinColor     = 0.001

	// Transport defaults
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MinBufferFrames = 256    // Smallest frame with a non-empty bass band
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxFrameRate    = 240
)

// Pulse deactivation policies.
const (
	PolicyPersist = "persist" // pulses stay active forever and fade out
	PolicyReclaim = "reclaim" // pulses are deactivated once they have faded
)

// ConfigError reports a configuration value that cannot be used. It is
// fatal at startup; nothing in the running pipeline recovers from it.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
