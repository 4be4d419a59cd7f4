// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"breakfast/internal/analysis"
	"breakfast/pkg/bitint"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (forces debug log level).
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`          // Log destination; empty means stderr (discarded in TUI mode).
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the pipeline (e.g., "list").
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Window, history and band detection settings.
	Pulses    PulseConfig     `yaml:"pulses"`            // Pulse pool settings.
	Transport TransportConfig `yaml:"transport"`         // Renderer feeds.
	TUI       TUIConfig       `yaml:"tui"`               // Terminal monitor.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frame size N; the stream and the FFT use the same value.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Channels opened on the device; only channel 0 is analysed.
	OutputChannels  int     `yaml:"output_channels"`   // Output channels opened on the device; always written silent.
	Source          string  `yaml:"source"`            // Optional WAV file replayed instead of a live device.
	LoopSource      bool    `yaml:"loop_source"`       // Restart the WAV file when it ends.
}

// BandConfig describes one detection band as percentages of the N/2 bins.
type BandConfig struct {
	LowPercent  int     `yaml:"low_percent"`
	HighPercent int     `yaml:"high_percent"`
	Threshold   float64 `yaml:"threshold"` // Magnitude a bin must exceed to count.
	Stagger     int     `yaml:"stagger"`   // Bin crossings per trigger.
}

// AnalysisConfig holds settings for the per-frame analysis.
type AnalysisConfig struct {
	FFTWindow    string     `yaml:"fft_window"`    // Window function name (e.g., "hann", "hamming").
	HistoryDepth int        `yaml:"history_depth"` // Number of spectra kept most-recent-first.
	FrameRate    int        `yaml:"frame_rate"`    // Frame loop rate in Hz.
	Bass         BandConfig `yaml:"bass"`
	Mid          BandConfig `yaml:"mid"`
}

// PulseConfig holds pulse pool settings.
type PulseConfig struct {
	BassCapacity int     `yaml:"bass_capacity"`
	MidCapacity  int     `yaml:"mid_capacity"`
	Policy       string  `yaml:"policy"`    // "persist" or "reclaim".
	MinColor     float64 `yaml:"min_color"` // Reclaim threshold on the brightest color channel.
}

// TransportConfig holds settings related to sending per-frame state to renderers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve JSON snapshots over WebSocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum interval between UDP packets.
	IncludeHistory   bool          `yaml:"include_history"`    // Add the spectrum history to WebSocket snapshots.
}

// TUIConfig holds settings for the terminal monitor.
type TUIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultInputChannels,
			OutputChannels:  DefaultOutputChannels,
			LoopSource:      true,
		},
		Analysis: AnalysisConfig{
			FFTWindow:    DefaultWindow,
			HistoryDepth: DefaultHistoryDepth,
			FrameRate:    DefaultFrameRate,
			Bass: BandConfig{
				LowPercent:  DefaultBassLowPercent,
				HighPercent: DefaultBassHighPercent,
				Threshold:   DefaultBassThreshold,
				Stagger:     DefaultBassStagger,
			},
			Mid: BandConfig{
				LowPercent:  DefaultMidLowPercent,
				HighPercent: DefaultMidHighPercent,
				Threshold:   DefaultMidThreshold,
				Stagger:     DefaultMidStagger,
			},
		},
		Pulses: PulseConfig{
			BassCapacity: DefaultBassCapacity,
			MidCapacity:  DefaultMidCapacity,
			Policy:       DefaultPulsePolicy,
			MinColor:     DefaultMinColor,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. Variables from a ".env" file are loaded into the environment (without
// replacing existing ones), then ENV_* overrides are applied and the final
// configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every field the pipeline depends on. The returned error is
// a *ConfigError.
func (c *Config) Validate() error {
	a := c.Audio
	if !bitint.IsPowerOfTwo(a.FramesPerBuffer) {
		return invalid("audio.frames_per_buffer", "%d is not a power of two (try %d)",
			a.FramesPerBuffer, bitint.NextPowerOfTwo(a.FramesPerBuffer))
	}
	if a.FramesPerBuffer < MinBufferFrames || a.FramesPerBuffer > MaxBufferFrames {
		return invalid("audio.frames_per_buffer", "%d outside [%d, %d]",
			a.FramesPerBuffer, MinBufferFrames, MaxBufferFrames)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return invalid("audio.sample_rate", "%.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.InputDevice < MinDeviceID {
		return invalid("audio.input_device", "%d is not a device index", a.InputDevice)
	}
	if a.InputChannels < 1 {
		return invalid("audio.input_channels", "need at least one channel, got %d", a.InputChannels)
	}
	if a.OutputChannels < 0 {
		return invalid("audio.output_channels", "negative channel count %d", a.OutputChannels)
	}

	an := c.Analysis
	if _, err := analysis.ParseWindowFunc(an.FFTWindow); err != nil {
		return invalid("analysis.fft_window", "%v", err)
	}
	if an.HistoryDepth < 1 {
		return invalid("analysis.history_depth", "must be positive, got %d", an.HistoryDepth)
	}
	if an.FrameRate < 1 || an.FrameRate > MaxFrameRate {
		return invalid("analysis.frame_rate", "%d outside [1, %d]", an.FrameRate, MaxFrameRate)
	}
	if err := validateBand("analysis.bass", an.Bass); err != nil {
		return err
	}
	if err := validateBand("analysis.mid", an.Mid); err != nil {
		return err
	}

	p := c.Pulses
	if p.BassCapacity < 1 {
		return invalid("pulses.bass_capacity", "must be positive, got %d", p.BassCapacity)
	}
	if p.MidCapacity < 1 {
		return invalid("pulses.mid_capacity", "must be positive, got %d", p.MidCapacity)
	}
	if _, err := analysis.ParsePolicy(p.Policy); err != nil {
		return invalid("pulses.policy", "%v", err)
	}

	tr := c.Transport
	if tr.UDPEnabled {
		if !strings.Contains(tr.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address", "%q appears invalid (missing port?)", tr.UDPTargetAddress)
		}
		if tr.UDPSendInterval < 0 {
			return invalid("transport.udp_send_interval", "must not be negative")
		}
	}
	if tr.WebSocketEnabled && tr.WebSocketAddress == "" {
		return invalid("transport.websocket_address", "must be set when websocket is enabled")
	}

	return nil
}

func validateBand(field string, b BandConfig) error {
	if b.LowPercent < 0 || b.HighPercent > 100 || b.LowPercent >= b.HighPercent {
		return invalid(field, "percent range [%d, %d) is empty or outside [0, 100]", b.LowPercent, b.HighPercent)
	}
	if b.Threshold < 0 {
		return invalid(field+".threshold", "must not be negative")
	}
	if b.Stagger < 1 {
		return invalid(field+".stagger", "must be positive, got %d", b.Stagger)
	}
	return nil
}

// PipelineOptions translates the validated configuration into analysis options.
func (c *Config) PipelineOptions() analysis.Options {
	window, _ := analysis.ParseWindowFunc(c.Analysis.FFTWindow)
	policy, _ := analysis.ParsePolicy(c.Pulses.Policy)

	bass := analysis.BassPulseParams()
	bass.Capacity = c.Pulses.BassCapacity
	mid := analysis.MidPulseParams()
	mid.Capacity = c.Pulses.MidCapacity

	return analysis.Options{
		FrameSize:    c.Audio.FramesPerBuffer,
		Window:       window,
		HistoryDepth: c.Analysis.HistoryDepth,
		Bass:         bandSpec("bass", c.Analysis.Bass),
		Mid:          bandSpec("mid", c.Analysis.Mid),
		BassPulses:   bass,
		MidPulses:    mid,
		Decay: analysis.DecayPolicy{
			Mode:     policy,
			MinColor: c.Pulses.MinColor,
		},
	}
}

// bandSpec maps a band onto bin percentages. A band that does not start at
// bin 0 skips its first bin, so the bass and mid ranges never share one.
func bandSpec(name string, b BandConfig) analysis.BandSpec {
	return analysis.BandSpec{
		Name:        name,
		LowPercent:  b.LowPercent,
		HighPercent: b.HighPercent,
		SkipFirst:   b.LowPercent > 0,
		Threshold:   b.Threshold,
		Stagger:     b.Stagger,
	}
}

// applyEnvOverrides applies ENV_* variables on top of file values. Invalid
// values are ignored and the file value stays in place.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// ENV_SOURCE
	if val, ok := os.LookupEnv("ENV_SOURCE"); ok {
		cfg.Audio.Source = val
	}

	// ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
