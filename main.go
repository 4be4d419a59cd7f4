// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breakfast/cmd"
	"breakfast/internal/analysis"
	"breakfast/internal/audio"
	"breakfast/internal/capture"
	"breakfast/internal/config"
	applog "breakfast/internal/log"
	"breakfast/internal/loop"
	"breakfast/internal/transport"
	"breakfast/internal/transport/udp"
	"breakfast/internal/tui"
	"breakfast/pkg/build"

	"github.com/mdobak/go-xerrors"
)

// main wires the application in three phases.
//
// 1. Startup Phase (Cold Path):
//   - Read build information and configuration
//   - Execute one-off commands if requested
//   - Build the capture buffer, input, pipeline and sinks
//
// 2. Concurrent Phase (Hot Path):
//   - Audio callback (or WAV replay) fills the capture buffer
//   - Frame loop steps the pipeline and feeds the sinks
//
// 3. Shutdown Phase (Cold Path):
//   - Stop the input first, then the frame loop, then the sinks
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if cfg == nil {
		return
	}
	if err := setupLogging(cfg); err != nil {
		fatal(err)
	}
	if buildErr != nil {
		applog.Debugf("development build: %v", buildErr)
	}

	if err := run(cfg); err != nil {
		fatal(err)
	}
}

func setupLogging(cfg *config.Config) error {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		return &config.ConfigError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		applog.SetOutput(f)
	case cfg.TUI.Enabled || cfg.Command == cmd.CommandPick:
		// The monitor owns the terminal.
		applog.SetOutput(io.Discard)
	}
	return nil
}

func run(cfg *config.Config) error {
	live := cfg.Audio.Source == ""
	if live || cfg.Command == cmd.CommandList {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	switch cfg.Command {
	case cmd.CommandList:
		return audio.ListDevices(os.Stdout)
	case cmd.CommandPick:
		devices, err := audio.HostDevices()
		if err != nil {
			return err
		}
		sel, err := tui.PickDevice(devices)
		if errors.Is(err, tui.ErrPickCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	buf, err := capture.New(cfg.Audio.FramesPerBuffer)
	if err != nil {
		return err
	}

	var (
		input    interface{ Close() error }
		finished <-chan struct{}
		source   string
	)
	if live {
		engine, err := audio.NewEngine(cfg.Audio, buf)
		if err != nil {
			return err
		}
		input = engine
		source = fmt.Sprintf("device %d @ %.0f Hz", cfg.Audio.InputDevice, cfg.Audio.SampleRate)
	} else {
		file, err := audio.OpenFile(cfg.Audio.Source, cfg.Audio.FramesPerBuffer, cfg.Audio.LoopSource)
		if err != nil {
			return err
		}
		input = file
		finished = file.Done()
		source = cfg.Audio.Source
	}

	seed := uint64(time.Now().UnixNano())
	pipeline, err := analysis.New(cfg.PipelineOptions(), buf, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(cfg, pipeline.FrameSize()/2)
	if err != nil {
		return err
	}
	defer closeSinks()

	var monitor *tui.Monitor
	if cfg.TUI.Enabled {
		monitor = tui.NewMonitor(tui.NewModel(source, cfg.Analysis.FrameRate, rand.New(rand.NewPCG(seed>>2, seed))))
		sinks = append(sinks, monitor)
	}

	runner, err := loop.New(pipeline, cfg.Analysis.FrameRate, sinks...)
	if err != nil {
		return err
	}
	runner.WatchRejects(buf.Rejected)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	switch in := input.(type) {
	case *audio.Engine:
		err = in.Start()
	case *audio.FileSource:
		err = in.Start(buf)
	}
	if err != nil {
		return err
	}
	runner.Start()

	if monitor != nil {
		err = monitor.Run()
	} else {
		applog.Infof("%s running; press Ctrl+C to stop", build.Get().Name)
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		select {
		case <-done:
		case <-finished:
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if cerr := input.Close(); cerr != nil {
		applog.Errorf("error closing input: %v", cerr)
	}
	runner.Stop()
	return err
}

// openSinks creates the enabled network sinks. The returned func closes
// every sink that was opened.
func openSinks(cfg *config.Config, bins int) ([]analysis.FrameSink, func(), error) {
	var opened []transport.Sink
	closeAll := func() {
		for _, s := range opened {
			if err := s.Close(); err != nil {
				applog.Warnf("error closing sink %T: %v", s, err)
			}
		}
	}

	if cfg.Debug {
		opened = append(opened, transport.NewLoggingTransport(uint64(cfg.Analysis.FrameRate)))
	}
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, cfg.Transport.IncludeHistory)
		if err := ws.Start(); err != nil {
			ws.Close()
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, ws)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		pub, err := udp.NewPublisher(sender, cfg.Transport.UDPSendInterval, bins)
		if err != nil {
			sender.Close()
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, pub)
	}

	sinks := make([]analysis.FrameSink, len(opened))
	for i, s := range opened {
		sinks[i] = s
	}
	return sinks, closeAll, nil
}

// fatal prints a startup error with its stack trace and exits.
func fatal(err error) {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	applog.SetOutput(os.Stderr)
	applog.Errorf("%s", xerrors.Sprint(xerrors.New(err)))
	os.Exit(1)
}
