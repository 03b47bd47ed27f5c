// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"audiostream/internal/log"
)

// DefaultInterval is used when a publisher is created with a non-positive
// interval (~60 Hz).
const DefaultInterval = 16 * time.Millisecond

// HeaderSize is the size in bytes of the packet header.
const HeaderSize = 4 + 8 + 2

// MagnitudeSource provides the spectrum to publish. analysis.SpectrumAnalyzer
// implements it.
type MagnitudeSource interface {
	GetMagnitudesInto(dst []float64) error
	GetFFTSize() int
}

// PacketSender sends one datagram. *UDPSender implements it.
type PacketSender interface {
	Send(packet []byte) error
}

// UDPPublisher periodically fetches the latest magnitudes, packs them into a
// binary packet and sends it. It runs in a separate goroutine managed by
// Start and Stop.
type UDPPublisher struct {
	sender   PacketSender
	source   MagnitudeSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Publisher goroutine only.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher for source. A non-positive interval
// selects DefaultInterval.
func NewUDPPublisher(interval time.Duration, sender PacketSender, source MagnitudeSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: magnitude source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := source.GetFFTSize()/2 + 1
	if HeaderSize+4*bins > MaxDatagramSize {
		return nil, fmt.Errorf("UDPPublisher: %d bins do not fit a datagram", bins)
	}
	log.Infof("UDPPublisher: Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: bytes.NewBuffer(make([]byte, 0, HeaderSize+4*bins)),
	}, nil
}

// Start begins publishing. Calling Start while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine and waits for it to exit. It is safe
// to call more than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Array of FFT magnitudes |
+-----------------------------------------------------------------------------+
*/

// Packet is a decoded magnitude packet.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Magnitudes []float32
}

// EncodePacket appends the binary form of the packet to buf.
func EncodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, magnitudes []float32) error {
	if len(magnitudes) > math.MaxUint16 {
		return fmt.Errorf("too many magnitudes: %d", len(magnitudes))
	}
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], seq)
	binary.BigEndian.PutUint64(header[4:12], uint64(timestamp))
	binary.BigEndian.PutUint16(header[12:14], uint16(len(magnitudes)))
	buf.Write(header[:])
	return binary.Write(buf, binary.BigEndian, magnitudes)
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(data))
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))
	if len(data) != HeaderSize+4*count {
		return Packet{}, fmt.Errorf("packet length %d does not match %d magnitudes", len(data), count)
	}
	p := Packet{
		Sequence:   binary.BigEndian.Uint32(data[0:4]),
		Timestamp:  int64(binary.BigEndian.Uint64(data[4:12])),
		Magnitudes: make([]float32, count),
	}
	for i := range p.Magnitudes {
		off := HeaderSize + 4*i
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
	}
	return p, nil
}

func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.source.GetMagnitudesInto(p.magBuffer); err != nil {
		log.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), p.f32Buffer); err != nil {
		log.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
