// Package audit writes session events as JSON lines without ever blocking the
// session that produced them.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/carlosrabelo/terminalnator/domain/ports"
)

// DefaultBuffer is the number of events queued before new ones are dropped.
const DefaultBuffer = 1024

// Recorder is an asynchronous ports.AuditLog. Events are queued in a bounded
// buffer and written by one goroutine; when the buffer is full the event is
// dropped and counted.
type Recorder struct {
	handler slog.Handler
	events  chan ports.Event
	dropped atomic.Uint64
	done    chan struct{}
	closer  io.Closer

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder writing JSON lines to w.
func NewRecorder(w io.Writer, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	r := &Recorder{
		handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				switch a.Key {
				case slog.LevelKey:
					return slog.Attr{}
				case slog.MessageKey:
					a.Key = "kind"
				}
				return a
			},
		}),
		events: make(chan ports.Event, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// OpenFile appends audit records to path, creating it with mode 0600.
func OpenFile(path string, buffer int) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file %s: %w", path, err)
	}
	r := NewRecorder(f, buffer)
	r.closer = f
	return r, nil
}

// Record queues e. It never blocks.
func (r *Recorder) Record(e ports.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close flushes queued events and closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()

	<-r.done
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.events {
		rec := slog.NewRecord(e.Timestamp, slog.LevelInfo, string(e.Kind), 0)
		rec.AddAttrs(
			slog.Int("profile_id", e.ProfileID),
			slog.String("session_id", e.SessionID),
			slog.String("detail", e.Detail),
		)
		if e.Reason != "" {
			rec.AddAttrs(slog.String("reason", e.Reason))
		}
		// write errors have nowhere to go; the session must not see them
		_ = r.handler.Handle(context.Background(), rec)
	}
}

// Multi fans events out to several sinks.
type Multi []ports.AuditLog

// Record forwards e to every sink.
func (m Multi) Record(e ports.Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(e)
		}
	}
}
