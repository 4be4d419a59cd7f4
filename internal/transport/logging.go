// SPDX-License-Identifier: MIT
package transport

import (
	"breakfast/internal/analysis"
	applog "breakfast/internal/log"
)

// LoggingTransport writes a one-line frame summary at debug level every
// Every frames, and every trigger.
type LoggingTransport struct {
	Every  uint64
	logger applog.Logger
}

// NewLoggingTransport logs a summary every `every` frames (at least 1).
func NewLoggingTransport(every uint64) *LoggingTransport {
	return &LoggingTransport{Every: max(every, 1), logger: applog.With("frames")}
}

// Publish logs f.
func (lt *LoggingTransport) Publish(f *analysis.Frame) error {
	if f.BassBand.Fired || f.MidBand.Fired {
		lt.logger.Debugf("frame %d: trigger bass=%v mid=%v (totals %d/%d)",
			f.Index, f.BassBand.Fired, f.MidBand.Fired, f.BassBand.Total, f.MidBand.Total)
	}
	if f.Index%lt.Every == 0 {
		lt.logger.Debugf("frame %d: avg=%.5f radius=%.3f active pulses bass=%d mid=%d",
			f.Index, f.AvgAmplitude, f.WaveformRadius, f.BassPulses.ActiveCount(), f.MidPulses.ActiveCount())
	}
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error { return nil }

var _ Sink = (*LoggingTransport)(nil)
