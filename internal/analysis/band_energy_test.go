// SPDX-License-Identifier: MIT
package analysis

import "testing"

func uniformSpectrum(bins int, mag float64) Spectrum {
	s := make(Spectrum, bins)
	for i := range s {
		s[i] = complex(mag, 0)
	}
	return s
}

func TestBandBounds(t *testing.T) {
	tests := []struct {
		n                 int
		bassLow, bassHigh int
		midLow, midHigh   int
	}{
		{1024, 0, 20, 21, 400},
		{2048, 0, 40, 41, 800},
		{4096, 0, 80, 81, 1600},
	}
	for _, tt := range tests {
		m, err := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), tt.n/2)
		if err != nil {
			t.Fatalf("n=%d: %v", tt.n, err)
		}
		if m.Bass.Low != tt.bassLow || m.Bass.High != tt.bassHigh {
			t.Errorf("n=%d: bass [%d,%d), want [%d,%d)", tt.n, m.Bass.Low, m.Bass.High, tt.bassLow, tt.bassHigh)
		}
		if m.Mid.Low != tt.midLow || m.Mid.High != tt.midHigh {
			t.Errorf("n=%d: mid [%d,%d), want [%d,%d)", tt.n, m.Mid.Low, m.Mid.High, tt.midLow, tt.midHigh)
		}
	}
}

func TestBandMonitorRejectsBadBands(t *testing.T) {
	overlap := DefaultMidBand()
	overlap.LowPercent = 2
	if _, err := NewBandMonitor(DefaultBassBand(), overlap, 512); err == nil {
		t.Error("expected overlap error")
	}

	zero := DefaultBassBand()
	zero.Stagger = 0
	if _, err := NewBandMonitor(zero, DefaultMidBand(), 512); err == nil {
		t.Error("expected stagger error")
	}

	if _, err := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), 50); err == nil {
		t.Error("expected empty band error for tiny spectrum")
	}
}

func TestSilenceNeverTriggers(t *testing.T) {
	m, _ := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), 512)
	silent := make(Spectrum, 512)
	for range 300 {
		m.Scan(silent)
		if m.Bass.Fired || m.Mid.Fired {
			t.Fatal("trigger on silent spectrum")
		}
	}
	if m.Bass.Counter() != 0 || m.Mid.Counter() != 0 {
		t.Errorf("counters = %d, %d; want 0", m.Bass.Counter(), m.Mid.Counter())
	}
}

func TestThresholdIsExclusive(t *testing.T) {
	m, _ := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), 512)
	m.Scan(uniformSpectrum(512, 0.001))
	if m.Bass.Counter() != 0 {
		t.Errorf("bins exactly at threshold counted: counter = %d", m.Bass.Counter())
	}
}

func TestTriggerRate(t *testing.T) {
	m, _ := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), 512)
	loud := uniformSpectrum(512, 0.01)

	const frames = 100
	var bass, mid int
	for range frames {
		m.Scan(loud)
		if m.Bass.Fired {
			bass++
		}
		if m.Mid.Fired {
			mid++
		}
	}

	wantBass := frames * m.Bass.Bins() / m.Bass.Stagger
	wantMid := frames * m.Mid.Bins() / m.Mid.Stagger
	if bass != wantBass {
		t.Errorf("bass triggers = %d, want %d", bass, wantBass)
	}
	if mid != wantMid {
		t.Errorf("mid triggers = %d, want %d", mid, wantMid)
	}
	if m.Bass.Total != uint64(bass) || m.Mid.Total != uint64(mid) {
		t.Errorf("totals = %d, %d; want %d, %d", m.Bass.Total, m.Mid.Total, bass, mid)
	}
}

func TestAtMostOneTriggerPerFrame(t *testing.T) {
	bass := DefaultBassBand()
	bass.Stagger = 5
	m, _ := NewBandMonitor(bass, DefaultMidBand(), 512)

	m.Scan(uniformSpectrum(512, 0.01))
	if !m.Bass.Fired || m.Bass.Wraps != 4 || m.Bass.Total != 1 {
		t.Errorf("fired=%v wraps=%d total=%d; want true, 4, 1", m.Bass.Fired, m.Bass.Wraps, m.Bass.Total)
	}
}

func TestSingleBinTriggersOnStaggerFrame(t *testing.T) {
	m, _ := NewBandMonitor(DefaultBassBand(), DefaultMidBand(), 512)
	spec := make(Spectrum, 512)
	spec[0] = complex(0.01, 0)

	firedAt := 0
	for frame := 1; frame <= 200; frame++ {
		m.Scan(spec)
		if m.Bass.Fired {
			if firedAt != 0 {
				t.Fatalf("second trigger at frame %d", frame)
			}
			firedAt = frame
		}
	}
	if firedAt != 200 {
		t.Errorf("trigger at frame %d, want 200", firedAt)
	}
}
