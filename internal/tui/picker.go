// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"strings"

	"breakfast/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrPickCancelled is returned by PickDevice when the user quits without
// choosing.
var ErrPickCancelled = errors.New("device selection cancelled")

// Selection is the outcome of the device picker.
type Selection struct {
	DeviceID   int
	Name       string
	SampleRate float64
}

type pickerScreen int

const (
	listScreen pickerScreen = iota
	rateScreen
)

var sampleRates = []float64{44100, 48000, 88200, 96000}

var pickerKeys = struct {
	Up, Down, Select, Back, Quit key.Binding
}{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// PickerModel lets the user choose a capture device and sample rate. Only
// devices with input channels are listed.
type PickerModel struct {
	devices  []audio.Device
	selected int
	rate     int
	screen   pickerScreen
	viewport viewport.Model
	ready    bool
	chosen   *Selection
}

// NewPickerModel lists the capture-capable entries of devices.
func NewPickerModel(devices []audio.Device) PickerModel {
	m := PickerModel{}
	for _, d := range devices {
		if d.CanCapture() {
			m.devices = append(m.devices, d)
		}
	}
	return m
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case tea.KeyMsg:
		if key.Matches(msg, pickerKeys.Quit) {
			return m, tea.Quit
		}
		switch m.screen {
		case listScreen:
			switch {
			case key.Matches(msg, pickerKeys.Up):
				m.selected = max(m.selected-1, 0)
			case key.Matches(msg, pickerKeys.Down):
				m.selected = min(m.selected+1, max(len(m.devices)-1, 0))
			case key.Matches(msg, pickerKeys.Select):
				if len(m.devices) > 0 {
					m.screen = rateScreen
					m.rate = rateIndex(m.devices[m.selected].DefaultSampleRate)
				}
			}
		case rateScreen:
			switch {
			case key.Matches(msg, pickerKeys.Back):
				m.screen = listScreen
			case key.Matches(msg, pickerKeys.Up):
				m.rate = max(m.rate-1, 0)
			case key.Matches(msg, pickerKeys.Down):
				m.rate = min(m.rate+1, len(sampleRates)-1)
			case key.Matches(msg, pickerKeys.Select):
				d := m.devices[m.selected]
				m.chosen = &Selection{DeviceID: d.ID, Name: d.Name, SampleRate: sampleRates[m.rate]}
				return m, tea.Quit
			}
		}
	}

	if m.ready {
		m.viewport.SetContent(m.content())
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func rateIndex(rate float64) int {
	for i, r := range sampleRates {
		if r == rate {
			return i
		}
	}
	return 0
}

// View implements tea.Model.
func (m PickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	title := titleStyle.Render("Capture Device")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	if m.screen == rateScreen {
		title = titleStyle.Render("Sample Rate")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Start • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m PickerModel) content() string {
	if m.screen == rateScreen {
		return m.renderRates()
	}
	return m.renderDevices()
}

func (m PickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No capture devices found."
	}
	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)\n    Input channels: %d, Default sample rate: %.0f Hz\n",
			d.ID, d.Name, d.Kind(), d.MaxInputChannels, d.DefaultSampleRate)
		if i == m.selected {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m PickerModel) renderRates() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", m.devices[m.selected].Name)
	for i, rate := range sampleRates {
		marker := " "
		if i == m.rate {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rate {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// Selection returns the user's choice, or nil if none was made.
func (m PickerModel) Selection() *Selection { return m.chosen }

// PickDevice runs the picker full screen and returns the choice.
func PickDevice(devices []audio.Device, opts ...tea.ProgramOption) (Selection, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(NewPickerModel(devices), opts...).Run()
	if err != nil {
		return Selection{}, err
	}
	if sel := final.(PickerModel).Selection(); sel != nil {
		return *sel, nil
	}
	return Selection{}, ErrPickCancelled
}
