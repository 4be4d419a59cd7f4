// SPDX-License-Identifier: MIT
/*
Package loop drives the analysis pipeline at the render frame rate and hands
every frame to the registered sinks.

The runner is the only goroutine that calls Pipeline.Step, so the pipeline
state is never shared. Sinks run on the same goroutine and must copy what
they keep.
*/
package loop

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"breakfast/internal/analysis"
	applog "breakfast/internal/log"
)

var logger = applog.With("loop")

// Stepper is the part of *analysis.Pipeline the runner needs.
type Stepper interface {
	Step() *analysis.Frame
}

// Runner ticks a Stepper at a fixed rate.
type Runner struct {
	pipeline Stepper
	sinks    []analysis.FrameSink
	interval time.Duration

	// rejected, if set, reports the capture buffer's rejection count; growth
	// is logged once per second of frames.
	rejected     func() uint64
	lastRejected uint64
	reportEvery  uint64

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	frames     atomic.Uint64
	sinkErrors atomic.Uint64
}

// New creates a runner stepping p frameRate times per second.
func New(p Stepper, frameRate int, sinks ...analysis.FrameSink) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("loop: pipeline cannot be nil")
	}
	if frameRate <= 0 {
		return nil, fmt.Errorf("loop: frame rate must be positive, got %d", frameRate)
	}
	return &Runner{
		pipeline:    p,
		sinks:       sinks,
		interval:    time.Second / time.Duration(frameRate),
		reportEvery: uint64(frameRate),
	}, nil
}

// WatchRejects makes the runner log when fn's count grows.
func (r *Runner) WatchRejects(fn func() uint64) {
	r.rejected = fn
}

// Interval returns the time between frames.
func (r *Runner) Interval() time.Duration { return r.interval }

// Tick runs one frame: a pipeline step followed by every sink. A failing
// sink is logged and skipped; the others still run.
func (r *Runner) Tick() *analysis.Frame {
	f := r.pipeline.Step()
	for _, sink := range r.sinks {
		if err := sink.Publish(f); err != nil {
			if r.sinkErrors.Add(1) == 1 {
				logger.Warnf("sink %T failed: %v", sink, err)
			} else {
				logger.Debugf("sink %T failed: %v", sink, err)
			}
		}
	}

	n := r.frames.Add(1)
	if r.rejected != nil && n%r.reportEvery == 0 {
		if total := r.rejected(); total > r.lastRejected {
			logger.Warnf("capture rejected %d frame(s) with the wrong size (%d total)", total-r.lastRejected, total)
			r.lastRejected = total
		}
	}
	return f
}

// Start launches the frame goroutine. Calling Start on a running runner is
// a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	if r.ticker != nil {
		r.mu.Unlock()
		logger.Warnf("Start called but already running.")
		return
	}
	r.ticker = time.NewTicker(r.interval)
	r.doneChan = make(chan struct{})
	r.stopOnce = sync.Once{}
	ticker := r.ticker
	doneChan := r.doneChan
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		logger.Infof("frame loop started (interval %s, %d sink(s))", r.interval, len(r.sinks))
		for {
			select {
			case <-ticker.C:
				r.Tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the frame goroutine and waits for it. It is safe to call
// more than once.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopOnce.Do(func() {
		close(r.doneChan)
		r.ticker.Stop()
		r.ticker = nil
	})
	r.mu.Unlock()

	r.wg.Wait()
	logger.Infof("frame loop stopped after %d frames (%d sink errors)", r.Frames(), r.SinkErrors())
	return nil
}

// Close implements io.Closer.
func (r *Runner) Close() error { return r.Stop() }

// Frames returns the number of frames run so far.
func (r *Runner) Frames() uint64 { return r.frames.Load() }

// SinkErrors returns the number of failed sink publishes.
func (r *Runner) SinkErrors() uint64 { return r.sinkErrors.Load() }
