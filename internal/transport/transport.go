// SPDX-License-Identifier: MIT

// Package transport publishes analysis results outside the process.
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use and must not block the
// caller for long: stages call Send from their consumer goroutine.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every message out to several transports.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
