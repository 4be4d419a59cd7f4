// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"math/rand/v2"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"breakfast/internal/analysis"
	"breakfast/internal/capture"
	"breakfast/pkg/utils"

	"github.com/gorilla/websocket"
)

func steppedPipeline(t *testing.T, steps int) (*analysis.Pipeline, *analysis.Frame) {
	t.Helper()
	buf, _ := capture.New(1024)
	_ = buf.Write(utils.GenerateConstant(1024, 0.05))
	p, err := analysis.New(analysis.DefaultOptions(1024), buf, rand.New(rand.NewPCG(7, 8)))
	if err != nil {
		t.Fatal(err)
	}
	var f *analysis.Frame
	for range steps {
		f = p.Step()
	}
	return p, f
}

func TestSnapshotCopiesFrame(t *testing.T) {
	p, f := steppedPipeline(t, 5)
	s := NewSnapshot(f, true)

	if s.Index != 5 || len(s.Magnitudes) != 512 || len(s.Waveform) != 1024 {
		t.Fatalf("index=%d mags=%d wave=%d", s.Index, len(s.Magnitudes), len(s.Waveform))
	}
	if len(s.History) != 5 || len(s.BassPulses) != 40 || len(s.MidPulses) != 50 {
		t.Errorf("history=%d bass=%d mid=%d", len(s.History), len(s.BassPulses), len(s.MidPulses))
	}
	if s.Bass.Low != 0 || s.Bass.High != 20 || s.Mid.Low != 21 || s.Mid.High != 400 {
		t.Errorf("bands = %+v %+v", s.Bass, s.Mid)
	}

	before := s.Magnitudes[0]
	wave := s.Waveform[0]
	p.Step()
	if s.Magnitudes[0] != before || s.Waveform[0] != wave || s.Index != 5 {
		t.Error("snapshot changed with the pipeline")
	}
}

func TestSnapshotFillReuses(t *testing.T) {
	_, f := steppedPipeline(t, 3)
	s := NewSnapshot(f, false)
	if len(s.History) != 0 {
		t.Errorf("history copied without being asked: %d", len(s.History))
	}
	mags := &s.Magnitudes[0]
	s.Fill(f, false)
	if &s.Magnitudes[0] != mags {
		t.Error("Fill reallocated magnitudes")
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("", false)
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, f := steppedPipeline(t, 2)
	if err := wst.Publish(f); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatal(err)
	}
	if got.Index != 2 || len(got.Magnitudes) != 512 || len(got.BassPulses) != 40 {
		t.Errorf("snapshot index=%d mags=%d pulses=%d", got.Index, len(got.Magnitudes), len(got.BassPulses))
	}
}

func TestWebSocketPublishWithoutClients(t *testing.T) {
	wst := NewWebSocketTransport("", false)
	defer wst.Close()
	_, f := steppedPipeline(t, 1)
	if err := wst.Publish(f); err != nil {
		t.Fatal(err)
	}
	if wst.Dropped() != 0 {
		t.Errorf("Dropped() = %d", wst.Dropped())
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestWebSocketStart(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", false)
	defer wst.Close()
	if err := wst.Start(); err != nil {
		t.Fatal(err)
	}
	if strings.HasSuffix(wst.Addr(), ":0") {
		t.Errorf("Addr() = %q, want bound port", wst.Addr())
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport(0)
	if lt.Every != 1 {
		t.Errorf("Every = %d, want 1", lt.Every)
	}
	_, f := steppedPipeline(t, 1)
	if err := lt.Publish(f); err != nil {
		t.Error(err)
	}
}
