// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"audiostream/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level.
type LoggingTransport struct {
	sent atomic.Int64
}

func NewLoggingTransport() *LoggingTransport {
	log.Info("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	log.Debugf("LoggingTransport: #%d (%T): %+v", n, data, data)
	return nil
}

// Sent returns the number of messages logged.
func (lt *LoggingTransport) Sent() int64 { return lt.sent.Load() }

func (lt *LoggingTransport) Close() error {
	log.Debugf("LoggingTransport: closed after %d messages", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
