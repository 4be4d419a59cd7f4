// SPDX-License-Identifier: MIT
/*
Package tui renders the pipeline in the terminal: a waveform line, spring
smoothed spectrum bars, the band counters and both pulse pools. The rave
background flashes at a cadence set by loudness.
*/
package tui

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"breakfast/internal/analysis"
	"breakfast/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	spectrumBars   = 48
	spectrumHeight = 8
)

type frameMsg struct {
	snap *transport.Snapshot
}

// Model is the bubbletea model of the monitor.
type Model struct {
	source  string
	snap    *transport.Snapshot
	bars    *springBars
	flasher Flasher
	rng     *rand.Rand
	bg      lipgloss.Color
	width   int

	showWaveform bool
	showSpectrum bool
	showBass     bool
	showMid      bool
}

// NewModel creates a model animating at fps frames per second.
func NewModel(source string, fps int, rng *rand.Rand) Model {
	return Model{
		source:       source,
		bars:         newSpringBars(fps, spectrumBars),
		rng:          rng,
		width:        80,
		showWaveform: true,
		showSpectrum: true,
		showBass:     true,
		showMid:      true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Rave):
			m.flasher.Rave = !m.flasher.Rave
		case key.Matches(msg, keys.AutoRave):
			m.flasher.AutoRave = !m.flasher.AutoRave
		case key.Matches(msg, keys.Waveform):
			m.showWaveform = !m.showWaveform
		case key.Matches(msg, keys.Spectrum):
			m.showSpectrum = !m.showSpectrum
		case key.Matches(msg, keys.Bass):
			m.showBass = !m.showBass
		case key.Matches(msg, keys.Mid):
			m.showMid = !m.showMid
		}

	case frameMsg:
		m.snap = msg.snap
		m.bars.update(msg.snap.Magnitudes)
		m.flasher.Step(msg.snap.AvgAmplitude)
		if m.flasher.Lit() {
			m.bg = lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", m.rng.IntN(256), m.rng.IntN(256), m.rng.IntN(256)))
		} else {
			m.bg = ""
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	title := titleStyle
	if m.bg != "" {
		title = title.Background(m.bg)
	}
	var sb strings.Builder
	sb.WriteString(title.Render("Psychedelic Breakfast"))
	sb.WriteString("  ")
	sb.WriteString(infoStyle.Render(m.source))
	sb.WriteString("\n\n")

	if m.snap == nil {
		sb.WriteString("Waiting for audio...\n")
		sb.WriteString("\n" + helpStyle.Render(keys.help()))
		return sb.String()
	}
	s := m.snap

	fmt.Fprintf(&sb, "frame %d  avg %.5f  radius %.3f  flash period %d", s.Index, s.AvgAmplitude, s.WaveformRadius, Threshold(s.AvgAmplitude))
	if m.flasher.Raving() {
		sb.WriteString("  " + highlightStyle.Render("RAVE"))
	}
	sb.WriteString("\n\n")

	if m.showWaveform {
		sb.WriteString(waveformLine(s.Waveform, max(m.width-2, 8)))
		sb.WriteString("\n\n")
	}
	if m.showSpectrum {
		sb.WriteString(m.bars.render(spectrumHeight))
		sb.WriteString("\n\n")
	}

	sb.WriteString(bandLine("bass", s.Bass, bassStyle))
	sb.WriteString("\n")
	sb.WriteString(bandLine("mid ", s.Mid, midStyle))
	sb.WriteString("\n\n")

	if m.showBass {
		sb.WriteString(bassStyle.Render("bass ") + pulseRow(s.BassPulses))
		sb.WriteString("\n")
	}
	if m.showMid {
		sb.WriteString(midStyle.Render("mid  ") + pulseRow(s.MidPulses))
		sb.WriteString("\n")
	}

	sb.WriteString("\n" + helpStyle.Render(keys.help()))
	return sb.String()
}

func bandLine(name string, b transport.BandState, style lipgloss.Style) string {
	label := style.Render(name)
	if b.Fired {
		label = firedStyle.Render(name)
	}
	return fmt.Sprintf("%s bins [%d,%d)  counter %3d  triggers %d", label, b.Low, b.High, b.Counter, b.Total)
}

// pulseRow draws one glyph per slot: a colored dot for visible pulses.
func pulseRow(pulses []analysis.Pulse) string {
	var sb strings.Builder
	for i := range pulses {
		p := &pulses[i]
		if !p.Visible() {
			sb.WriteString(helpStyle.Render("·"))
			continue
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(pulseColor(p.Color)).Render("●"))
	}
	return sb.String()
}

// waveformLine draws the peak |x| of each column as a bar glyph.
func waveformLine(samples []float64, width int) string {
	if len(samples) == 0 {
		return ""
	}
	width = min(width, len(samples))
	step := len(samples) / width
	steps := len(barChars) - 1
	var sb strings.Builder
	for c := range width {
		peak := 0.0
		for _, v := range samples[c*step : (c+1)*step] {
			peak = max(peak, abs(v))
		}
		sb.WriteRune(barChars[int(min(peak, 1)*float64(steps))])
	}
	return sb.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Monitor is a frame sink feeding a running Model. Frames are handed over
// through a one-slot mailbox; a frame the UI has not picked up yet is
// replaced by the newer one.
type Monitor struct {
	prog     *tea.Program
	frames   chan *transport.Snapshot
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates the program; call Run to take over the terminal.
func NewMonitor(model Model, opts ...tea.ProgramOption) *Monitor {
	return &Monitor{
		prog:   tea.NewProgram(model, opts...),
		frames: make(chan *transport.Snapshot, 1),
		done:   make(chan struct{}),
	}
}

// Run blocks until the user quits.
func (m *Monitor) Run() error {
	go m.forward()
	_, err := m.prog.Run()
	m.stop()
	return err
}

func (m *Monitor) forward() {
	for {
		select {
		case s := <-m.frames:
			m.prog.Send(frameMsg{snap: s})
		case <-m.done:
			return
		}
	}
}

// Publish implements analysis.FrameSink.
func (m *Monitor) Publish(f *analysis.Frame) error {
	snap := transport.NewSnapshot(f, false)
	for {
		select {
		case m.frames <- snap:
			return nil
		default:
		}
		select {
		case <-m.frames:
		default:
		}
	}
}

func (m *Monitor) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// Close stops the program if it is still running.
func (m *Monitor) Close() error {
	m.prog.Kill()
	m.stop()
	return nil
}

var _ transport.Sink = (*Monitor)(nil)
