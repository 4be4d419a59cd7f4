// SPDX-License-Identifier: MIT
package tui

import (
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"breakfast/internal/analysis"
	"breakfast/internal/audio"
	"breakfast/internal/capture"
	"breakfast/internal/transport"
	"breakfast/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

func testRand() *rand.Rand { return rand.New(rand.NewPCG(9, 10)) }

func frames(t *testing.T, steps int) []*transport.Snapshot {
	t.Helper()
	buf, _ := capture.New(1024)
	_ = buf.Write(utils.GenerateComplexWave(1024, 44100, 0.5))
	p, err := analysis.New(analysis.DefaultOptions(1024), buf, testRand())
	if err != nil {
		t.Fatal(err)
	}
	out := make([]*transport.Snapshot, steps)
	for i := range out {
		out[i] = transport.NewSnapshot(p.Step(), false)
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		avg  float64
		want int
	}{
		{0, 0},
		{0.0002, 2},
		{0.01, 14},
		{0.05, 31},
	}
	for _, tt := range tests {
		if got := Threshold(tt.avg); got != tt.want {
			t.Errorf("Threshold(%v) = %d, want %d", tt.avg, got, tt.want)
		}
	}
}

func TestFlasherPeriod(t *testing.T) {
	var f Flasher
	f.Rave = true
	const avg = 0.0002 // threshold 2

	var toggles []int
	prev := f.Lit()
	for step := 1; step <= 20; step++ {
		f.Step(avg)
		if f.Lit() != prev {
			toggles = append(toggles, step)
			prev = f.Lit()
		}
	}
	if len(toggles) < 3 || toggles[0] != 4 {
		t.Fatalf("toggles at %v, want first at step 4", toggles)
	}
	for i := 1; i < len(toggles); i++ {
		if toggles[i]-toggles[i-1] != 3 {
			t.Errorf("toggle gap %d, want 3", toggles[i]-toggles[i-1])
		}
	}
}

func TestFlasherAutoRave(t *testing.T) {
	var f Flasher
	f.Step(0.02)
	if f.Raving() {
		t.Error("auto-rave engaged while disabled")
	}
	f.AutoRave = true
	if !f.Raving() {
		t.Error("loud frame should engage auto-rave")
	}
	f.Step(0.01)
	if f.Raving() {
		t.Error("quiet frame should release auto-rave")
	}
}

func TestLevel(t *testing.T) {
	if level(0) != 0 || level(1) != 1 || level(10) != 1 {
		t.Error("level not clamped to [0, 1]")
	}
	if got := level(0.0001); got != 0 {
		t.Errorf("level(-80dB) = %v, want 0", got)
	}
	if got := level(0.1); got < 0.66 || got > 0.67 {
		t.Errorf("level(-20dB) = %v, want 2/3", got)
	}
}

func TestSpringBarsApproachTarget(t *testing.T) {
	bars := newSpringBars(60, 8)
	mags := make([]float64, 512)
	for i := range mags {
		mags[i] = 1
	}
	for range 240 {
		bars.update(mags)
	}
	for i, p := range bars.pos {
		if p < 0.95 || p > 1.05 {
			t.Errorf("bar %d settled at %v, want ~1", i, p)
		}
	}
	rendered := bars.render(2)
	if strings.Count(rendered, "\n") != 1 || !strings.Contains(rendered, "█") {
		t.Errorf("render = %q", rendered)
	}
}

func TestModelFramesAndKeys(t *testing.T) {
	m := NewModel("test input", 60, testRand())
	if !strings.Contains(m.View(), "Waiting for audio") {
		t.Error("empty model should wait for audio")
	}

	var model tea.Model = m
	for _, s := range frames(t, 3) {
		model, _ = model.Update(frameMsg{snap: s})
	}
	view := model.View()
	for _, want := range []string{"frame 3", "bins [0,20)", "bins [21,400)", "test input"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	model, _ = model.Update(runes("b"))
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
	got := model.(Model)
	if got.showBass || !got.flasher.Rave {
		t.Errorf("showBass=%v rave=%v after toggles", got.showBass, got.flasher.Rave)
	}

	_, cmd := model.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
}

func TestPulseRow(t *testing.T) {
	pulses := []analysis.Pulse{
		{Active: true, Color: analysis.Color{Red: 0.3, Green: 0.2, Blue: 0.9}},
		{Color: analysis.Color{Red: 0.5, Green: 0.5, Blue: 1}},
	}
	row := pulseRow(pulses)
	if !strings.Contains(row, "●") || !strings.Contains(row, "·") {
		t.Errorf("row = %q", row)
	}
	if c := pulseColor(analysis.Color{Red: 1, Green: 0, Blue: 0.5}); c != "#FF007F" {
		t.Errorf("pulseColor = %q", c)
	}
}

func TestWaveformLine(t *testing.T) {
	line := waveformLine([]float64{0, 0, 1, -1, 0.5, 0.5, 0, 0}, 4)
	if got := []rune(line); len(got) != 4 || got[0] != ' ' || got[1] != '█' {
		t.Errorf("line = %q", line)
	}
}

func TestMonitorKeepsNewestFrame(t *testing.T) {
	mon := NewMonitor(NewModel("x", 60, testRand()), tea.WithInput(nil), tea.WithOutput(io.Discard))
	buf, _ := capture.New(1024)
	p, _ := analysis.New(analysis.DefaultOptions(1024), buf, testRand())

	for range 3 {
		if err := mon.Publish(p.Step()); err != nil {
			t.Fatal(err)
		}
	}
	if len(mon.frames) != 1 {
		t.Fatalf("mailbox holds %d frames, want 1", len(mon.frames))
	}
	if s := <-mon.frames; s.Index != 3 {
		t.Errorf("mailbox frame %d, want 3", s.Index)
	}
	if err := mon.Close(); err != nil {
		t.Error(err)
	}
}

func TestPickerSelection(t *testing.T) {
	devices := []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2},
		{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 2, Name: "Interface", MaxInputChannels: 4, DefaultSampleRate: 96000},
	}
	var model tea.Model = NewPickerModel(devices)
	if n := len(model.(PickerModel).devices); n != 2 {
		t.Fatalf("listed %d devices, want 2 capture devices", n)
	}

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if pm := model.(PickerModel); pm.screen != rateScreen || sampleRates[pm.rate] != 96000 {
		t.Fatalf("screen=%v rate=%v", pm.screen, sampleRates[pm.rate])
	}
	if !strings.Contains(model.View(), "Interface") {
		t.Error("rate screen should name the device")
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel := model.(PickerModel).Selection()
	if sel == nil || sel.DeviceID != 2 || sel.SampleRate != 88200 {
		t.Fatalf("selection = %+v", sel)
	}
	if cmd == nil {
		t.Error("selection should quit the picker")
	}
}

func TestPickerQuitWithoutChoice(t *testing.T) {
	var model tea.Model = NewPickerModel(nil)
	model, _ = model.Update(runes("q"))
	if model.(PickerModel).Selection() != nil {
		t.Error("quit should leave no selection")
	}
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(model.(PickerModel).content(), "No capture devices") {
		t.Error("empty picker should say so")
	}
}
