// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"audiostream/internal/log"
)

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507

var (
	ErrSenderClosed   = errors.New("UDP sender is closed")
	ErrPacketTooLarge = errors.New("packet exceeds the UDP datagram limit")
)

// UDPSender writes spectrum packets to one connected peer, one datagram per
// packet. Send may be called from any goroutine; Close waits for sends in
// flight.
type UDPSender struct {
	conn *net.UDPConn

	mu     sync.RWMutex
	closed bool

	sent    atomic.Uint64
	dropped atomic.Uint64
	failing atomic.Bool
}

// NewUDPSender connects to target, e.g. "127.0.0.1:9090".
func NewUDPSender(target string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve spectrum target %q: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial spectrum target %s: %w", raddr, err)
	}
	log.Infof("UDPSender: Streaming spectrum packets %s -> %s", conn.LocalAddr(), raddr)
	return &UDPSender{conn: conn}, nil
}

// Send writes packet as a single datagram. Failed writes count as drops and
// only the first failure of a streak is logged.
func (s *UDPSender) Send(packet []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSenderClosed
	}
	if len(packet) > MaxDatagramSize {
		s.dropped.Add(1)
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(packet))
	}

	if _, err := s.conn.Write(packet); err != nil {
		s.dropped.Add(1)
		if !s.failing.Swap(true) {
			log.Warnf("UDPSender: Dropping packets to %s: %v", s.conn.RemoteAddr(), err)
		}
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	s.sent.Add(1)
	if s.failing.Swap(false) {
		log.Infof("UDPSender: Delivery to %s resumed", s.conn.RemoteAddr())
	}
	return nil
}

// Stats returns the number of delivered and dropped packets.
func (s *UDPSender) Stats() (sent, dropped uint64) {
	return s.sent.Load(), s.dropped.Load()
}

// Close closes the connection. Later calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	sent, dropped := s.Stats()
	log.Infof("UDPSender: Closing %s after %d packets (%d dropped)", s.conn.RemoteAddr(), sent, dropped)
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
