// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Rave     key.Binding
	AutoRave key.Binding
	Waveform key.Binding
	Spectrum key.Binding
	Bass     key.Binding
	Mid      key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Rave:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "rave")),
	AutoRave: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "auto-rave")),
	Waveform: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "waveform")),
	Spectrum: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "spectrum")),
	Bass:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bass pulses")),
	Mid:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mid pulses")),
}

func (k keyMap) help() string {
	s := ""
	for i, b := range []key.Binding{k.Rave, k.AutoRave, k.Waveform, k.Spectrum, k.Bass, k.Mid, k.Quit} {
		if i > 0 {
			s += "  "
		}
		h := b.Help()
		s += h.Key + " " + h.Desc
	}
	return s
}
