// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"breakfast/internal/analysis"
)

/*
Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Frame Index       | uint64         | 8            | Pipeline frame counter  |
| Avg Amplitude     | float32        | 4            | mean(|x|) of the frame  |
| Waveform Radius   | float32        | 4            | Breathing circle radius |
| Flags             | uint8          | 1            | bit0 bass, bit1 mid     |
| Bass Total        | uint32         | 4            | Bass triggers so far    |
| Mid Total         | uint32         | 4            | Mid triggers so far     |
| Magnitude Count   | uint16         | 2            | Number of floats (N/2)  |
| Magnitudes        | []float32      | N/2 * 4      | Spectrum magnitudes     |
+-----------------------------------------------------------------------------+
*/

const (
	headerSize = 4 + 8 + 8 + 4 + 4 + 1 + 4 + 4 + 2

	FlagBass uint8 = 1 << 0
	FlagMid  uint8 = 1 << 1
)

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: packet too short")

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence       uint32
	Timestamp      int64
	FrameIndex     uint64
	AvgAmplitude   float32
	WaveformRadius float32
	Flags          uint8
	BassTotal      uint32
	MidTotal       uint32
	Magnitudes     []float32
}

// Publisher is a frame sink that packs each frame's spectrum into a binary
// datagram. Frames arriving sooner than interval after the last packet are
// skipped.
type Publisher struct {
	sender   *UDPSender
	interval time.Duration
	now      func() time.Time
	lastSent time.Time

	sequenceNum uint32

	mags         []float64
	f32          []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher for spectra of bins values. An interval
// of zero sends every frame.
func NewPublisher(sender *UDPSender, interval time.Duration, bins int) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if bins <= 0 || bins > math.MaxUint16 {
		return nil, fmt.Errorf("UDPPublisher: bin count %d out of range", bins)
	}
	if interval < 0 {
		interval = 0
	}
	logger.Infof("publisher ready (interval %s, %d bins)", interval, bins)

	p := &Publisher{
		sender:       sender,
		interval:     interval,
		now:          time.Now,
		mags:         make([]float64, bins),
		f32:          make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}
	p.packetBuffer.Grow(headerSize + bins*4)
	return p, nil
}

// Publish sends f unless the previous packet went out less than interval ago.
func (p *Publisher) Publish(f *analysis.Frame) error {
	now := p.now()
	if p.interval > 0 && !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.interval {
		return nil
	}
	packet, err := p.build(f, now)
	if err != nil {
		return err
	}
	if err := p.sender.Send(packet); err != nil {
		return err
	}
	p.lastSent = now
	return nil
}

func (p *Publisher) build(f *analysis.Frame, now time.Time) ([]byte, error) {
	if len(f.Spectrum) != len(p.mags) {
		return nil, fmt.Errorf("UDPPublisher: frame has %d bins, publisher expects %d", len(f.Spectrum), len(p.mags))
	}
	f.Spectrum.MagnitudesInto(p.mags)
	for i, v := range p.mags {
		p.f32[i] = float32(v)
	}

	var flags uint8
	if f.BassBand.Fired {
		flags |= FlagBass
	}
	if f.MidBand.Fired {
		flags |= FlagMid
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	header := []any{
		p.sequenceNum,
		now.UnixNano(),
		f.Index,
		float32(f.AvgAmplitude),
		float32(f.WaveformRadius),
		flags,
		uint32(f.BassBand.Total),
		uint32(f.MidBand.Total),
		uint16(len(p.f32)),
	}
	for _, field := range header {
		if err := binary.Write(p.packetBuffer, binary.BigEndian, field); err != nil {
			return nil, fmt.Errorf("UDPPublisher: error packing header: %w", err)
		}
	}
	if err := binary.Write(p.packetBuffer, binary.BigEndian, p.f32); err != nil {
		return nil, fmt.Errorf("UDPPublisher: error packing magnitudes: %w", err)
	}
	return p.packetBuffer.Bytes(), nil
}

// Sequence returns the number of packets built.
func (p *Publisher) Sequence() uint32 { return p.sequenceNum }

// Close closes the sender.
func (p *Publisher) Close() error { return p.sender.Close() }

// DecodePacket parses a datagram produced by Publisher.
func DecodePacket(data []byte) (Packet, error) {
	var pkt Packet
	if len(data) < headerSize {
		return pkt, ErrShortPacket
	}
	be := binary.BigEndian
	pkt.Sequence = be.Uint32(data[0:])
	pkt.Timestamp = int64(be.Uint64(data[4:]))
	pkt.FrameIndex = be.Uint64(data[12:])
	pkt.AvgAmplitude = math.Float32frombits(be.Uint32(data[20:]))
	pkt.WaveformRadius = math.Float32frombits(be.Uint32(data[24:]))
	pkt.Flags = data[28]
	pkt.BassTotal = be.Uint32(data[29:])
	pkt.MidTotal = be.Uint32(data[33:])
	count := int(be.Uint16(data[37:]))

	body := data[headerSize:]
	if len(body) < count*4 {
		return pkt, ErrShortPacket
	}
	pkt.Magnitudes = make([]float32, count)
	for i := range pkt.Magnitudes {
		pkt.Magnitudes[i] = math.Float32frombits(be.Uint32(body[i*4:]))
	}
	return pkt, nil
}
