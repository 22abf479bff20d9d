package events

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/djyunz/SBSample/internal/engine/types"
)

// Stream is the read side of one download's event sequence. It has a
// single consumer.
//
// Undelivered progress events coalesce into the most recent one, so the
// buffer never holds more than one progress and one finished event.
type Stream struct {
	mu       sync.Mutex
	progress *types.DownloadStatus
	finished *types.DownloadStatus
	closed   bool
	err      error
	notify   chan struct{}
}

// Sink is the write handle of a Stream
type Sink struct {
	s *Stream
}

// NewStream returns a connected stream and its write handle
func NewStream() (*Stream, *Sink) {
	s := &Stream{notify: make(chan struct{}, 1)}
	return s, &Sink{s: s}
}

// Yield buffers an event for the consumer. It reports false when the stream
// no longer accepts events. A finished event closes the stream cleanly.
func (w *Sink) Yield(ev types.DownloadStatus) bool {
	s := w.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	switch ev.Kind {
	case types.EventFinished:
		s.finished = &ev
		s.closed = true
	default:
		s.progress = &ev
	}
	s.mu.Unlock()

	s.signal()
	return true
}

// Finish closes the stream. A nil err is a clean close. Only the first call
// has an effect, and it has none once a finished event was yielded.
func (w *Sink) Finish(err error) {
	s := w.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	s.mu.Unlock()

	s.signal()
}

// Closed reports whether the write side is done
func (w *Sink) Closed() bool {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.closed
}

func (s *Stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next event is available. After the last event it
// returns io.EOF for a clean close or the error the stream was finished with.
func (s *Stream) Next(ctx context.Context) (types.DownloadStatus, error) {
	for {
		s.mu.Lock()
		switch {
		case s.progress != nil:
			ev := *s.progress
			s.progress = nil
			s.mu.Unlock()
			return ev, nil
		case s.finished != nil:
			ev := *s.finished
			s.finished = nil
			s.mu.Unlock()
			return ev, nil
		case s.closed:
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return types.DownloadStatus{}, err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return types.DownloadStatus{}, ctx.Err()
		}
	}
}

// All ranges over the remaining events. A failed stream ends with one
// (zero, err) pair; a clean close just ends the sequence.
func (s *Stream) All(ctx context.Context) iter.Seq2[types.DownloadStatus, error] {
	return func(yield func(types.DownloadStatus, error) bool) {
		for {
			ev, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(types.DownloadStatus{}, err)
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Failed returns a stream that is already finished with err
func Failed(err error) *Stream {
	s, w := NewStream()
	w.Finish(err)
	return s
}
