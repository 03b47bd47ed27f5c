// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"maps"
	"slices"
	"sync"
)

var ErrTransportClosed = errors.New("mock transport closed")

// MockTransport records everything sent to it instead of transmitting.
// Slices and maps are copied so callers may reuse their buffers.
type MockTransport struct {
	mu       sync.Mutex
	messages []any
	closed   bool
}

func (m *MockTransport) Send(data any) error {
	switch v := data.(type) {
	case []float64:
		data = slices.Clone(v)
	case map[string]any:
		data = maps.Clone(v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Messages returns a snapshot of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	return m.messages[len(m.messages)-1]
}

func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
