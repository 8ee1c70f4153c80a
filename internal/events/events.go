// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events carries scan lifecycle notifications to pluggable sinks.
// Decorative front-ends (sound, animation, terminal effects) subscribe here
// instead of reaching into the scan pipeline.
package events

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind names a lifecycle notification.
type Kind string

const (
	ScanStarted   Kind = "scan_started"
	ScanSucceeded Kind = "scan_succeeded"
	ScanFailed    Kind = "scan_failed"
	HistoryClear  Kind = "history_cleared"
)

// Event is a single notification. Query and Detail are informational only.
type Event struct {
	Kind   Kind
	Query  string
	Detail string
}

// Sink receives events. Implementations must not block for long; Notify is
// called synchronously on the scanning goroutine.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Notify calls f(e).
func (f SinkFunc) Notify(e Event) { f(e) }

// Bus fans an event out to every subscribed sink in subscription order.
// The zero value is ready to use.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus returns a Bus with the given sinks already subscribed.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Subscribe adds s to the bus.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers e to every sink. A nil Bus drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		s.Notify(e)
	}
}

// LogSink writes each event to a logrus logger at debug level, failures at warn.
type LogSink struct {
	Log logrus.FieldLogger
}

// Notify logs e.
func (s LogSink) Notify(e Event) {
	entry := s.Log.WithField("event", string(e.Kind))
	if e.Query != "" {
		entry = entry.WithField("query", e.Query)
	}
	if e.Kind == ScanFailed {
		entry.Warn(e.Detail)
		return
	}
	entry.Debug(e.Detail)
}

// BellSink rings the terminal bell on outcomes: once on success, twice on failure.
type BellSink struct {
	W io.Writer
}

// Notify writes BEL characters to the underlying writer.
func (s BellSink) Notify(e Event) {
	switch e.Kind {
	case ScanSucceeded:
		fmt.Fprint(s.W, "\a")
	case ScanFailed:
		fmt.Fprint(s.W, "\a\a")
	}
}
