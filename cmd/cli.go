// SPDX-License-Identifier: MIT
package cmd

import (
	"breakfast/internal/config"
	"breakfast/pkg/build"

	"github.com/spf13/cobra"
)

// Commands that replace the normal run.
const (
	CommandList = "list" // print devices and exit
	CommandPick = "pick" // choose a device interactively, then run
)

// ParseArgs builds the configuration from the config file, the environment
// and args, in increasing priority. Only flags given explicitly override the
// file. A nil config with a nil error means help or version was printed.
func ParseArgs(args []string) (*config.Config, error) {
	info := build.Get()

	var (
		cfg        *config.Config
		configPath string
		command    string
		flags      = config.Default()
	)

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetArgs(args)

	// Every command resolves the configuration the same way.
	load := func(c *cobra.Command, _ []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		applyFlags(c, loaded, flags)
		if err := loaded.Validate(); err != nil {
			return err
		}
		loaded.Command = command
		cfg = loaded
		return nil
	}
	rootCmd.RunE = load

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		PreRun: func(*cobra.Command, []string) {
			command = CommandList
		},
		RunE: load,
	}
	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose the capture device interactively, then run",
		PreRun: func(*cobra.Command, []string) {
			command = CommandPick
		},
		RunE: load,
	}
	rootCmd.AddCommand(listCmd, pickCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "C", "",
		"Path to a YAML config file (default: ./config.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.Audio.InputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.Audio.InputChannels, "channels", "c", config.DefaultInputChannels,
		"Number of input channels to open; channel 0 is analysed")
	pf.Float64VarP(&flags.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per buffer; also the FFT size (power of two)")
	pf.BoolVarP(&flags.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVar(&flags.Audio.Source, "source", "",
		"Replay a WAV file instead of capturing from a device")

	// Outputs
	pf.BoolVarP(&flags.TUI.Enabled, "tui", "t", false, "Show the terminal monitor")
	pf.BoolVar(&flags.Transport.WebSocketEnabled, "ws", false, "Serve JSON snapshots over WebSocket")
	pf.StringVar(&flags.Transport.WebSocketAddress, "ws-address", config.DefaultWebSocketAddress,
		"WebSocket listen address")
	pf.BoolVar(&flags.Transport.UDPEnabled, "udp", false, "Send spectrum packets over UDP")
	pf.StringVar(&flags.Transport.UDPTargetAddress, "udp-target", config.DefaultUDPTargetAddress,
		"UDP target address (host:port)")
	pf.StringVar(&flags.Pulses.Policy, "pulse-policy", config.DefaultPulsePolicy,
		"What happens to faded pulses: persist or reclaim")

	// Debug Configuration
	pf.BoolVarP(&flags.Debug, "verbose", "v", false, "Show verbose output")

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag from flags into cfg.
func applyFlags(c *cobra.Command, cfg, flags *config.Config) {
	set := c.Flags().Changed

	if set("device") {
		cfg.Audio.InputDevice = flags.Audio.InputDevice
	}
	if set("channels") {
		cfg.Audio.InputChannels = flags.Audio.InputChannels
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = flags.Audio.SampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = flags.Audio.FramesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = flags.Audio.LowLatency
	}
	if set("source") {
		cfg.Audio.Source = flags.Audio.Source
	}
	if set("tui") {
		cfg.TUI.Enabled = flags.TUI.Enabled
	}
	if set("ws") {
		cfg.Transport.WebSocketEnabled = flags.Transport.WebSocketEnabled
	}
	if set("ws-address") {
		cfg.Transport.WebSocketAddress = flags.Transport.WebSocketAddress
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = flags.Transport.UDPEnabled
	}
	if set("udp-target") {
		cfg.Transport.UDPTargetAddress = flags.Transport.UDPTargetAddress
	}
	if set("pulse-policy") {
		cfg.Pulses.Policy = flags.Pulses.Policy
	}
	if set("verbose") {
		cfg.Debug = flags.Debug
	}
}
