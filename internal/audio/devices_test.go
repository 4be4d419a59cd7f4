// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"breakfast/internal/config"

	"github.com/gordonklaus/portaudio"
)

var mockInfos = []*portaudio.DeviceInfo{
	{
		Name:                    "Built-in Microphone",
		MaxInputChannels:        2,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  3 * time.Millisecond,
		DefaultHighInputLatency: 30 * time.Millisecond,
		HostApi:                 &portaudio.HostApiInfo{Name: "Core Audio"},
	},
	{
		Name:              "Built-in Output",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
	},
	{
		Name:              "Interface",
		MaxInputChannels:  8,
		MaxOutputChannels: 8,
		DefaultSampleRate: 96000,
	},
}

func mockDevices(t *testing.T, infos []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paDevices
	t.Cleanup(func() { paDevices = orig })
	paDevices = func() ([]*portaudio.DeviceInfo, error) { return infos, err }
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, mockInfos, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(mockInfos) {
		t.Fatalf("got %d devices, want %d", len(devices), len(mockInfos))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name != mockInfos[i].Name {
			t.Errorf("Device %d name = %q", i, d.Name)
		}
	}
	if devices[0].HostAPI != "Core Audio" || devices[1].HostAPI != "" {
		t.Errorf("host APIs = %q, %q", devices[0].HostAPI, devices[1].HostAPI)
	}
}

func TestHostDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestDeviceKind(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{2, 0, "Input"},
		{0, 2, "Output"},
		{2, 2, "Input/Output"},
		{0, 0, ""},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := d.Kind(); got != tt.want {
			t.Errorf("Kind(%d in, %d out) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
		if d.CanCapture() != (tt.in > 0) {
			t.Errorf("CanCapture(%d in) = %v", tt.in, d.CanCapture())
		}
	}
}

func TestInputDevice(t *testing.T) {
	mockDevices(t, mockInfos, nil)

	dev, err := InputDevice(2)
	if err != nil {
		t.Fatalf("InputDevice(2) error: %v", err)
	}
	if dev.Name != "Interface" {
		t.Errorf("Name = %q", dev.Name)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 10, "invalid device ID"},
		{"Non-input device", 1, "has no input channels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			var cfgErr *config.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *config.ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDeviceDefault(t *testing.T) {
	mockDefaultInput(t, mockInfos[0])
	dev, err := InputDevice(config.DefaultDeviceID)
	if err != nil || dev != mockInfos[0] {
		t.Errorf("InputDevice(default) = %v, %v", dev, err)
	}

	orig := paDefaultInputDevice
	defer func() { paDefaultInputDevice = orig }()
	paDefaultInputDevice = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default input error")
	}
	if _, err := InputDevice(config.DefaultDeviceID); err == nil || !strings.Contains(err.Error(), "mock default input error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paInitialize
	defer func() { paInitialize = orig }()

	paInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paTerminate
	defer func() { paTerminate = orig }()

	paTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	mockDevices(t, mockInfos, nil)

	var out bytes.Buffer
	if err := ListDevices(&out); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"Host API: Core Audio",
		"[1] Built-in Output (Output)",
		"[2] Interface (Input/Output)",
		"Default sample rate: 96000 Hz",
		"Latency: Low=3.00ms, High=30.00ms",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestWriteDevicesEmpty(t *testing.T) {
	var out bytes.Buffer
	WriteDevices(&out, nil)
	if !strings.Contains(out.String(), "No audio devices found.") {
		t.Errorf("output = %q", out.String())
	}
}
