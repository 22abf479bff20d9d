// Package download turns download requests into per-request event streams.
//
// The Manager owns one transport session. It is the only writer of the
// streams it hands out, and all of its bookkeeping runs on a single serial
// queue, so the task map needs no lock.
package download

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/djyunz/SBSample/internal/dispatch"
	"github.com/djyunz/SBSample/internal/engine/events"
	"github.com/djyunz/SBSample/internal/engine/placement"
	"github.com/djyunz/SBSample/internal/engine/transport"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/logging"
)

// ErrInvalidURL is reported on the stream of a request whose URL is not absolute
var ErrInvalidURL = errors.New("invalid download url")

// Options configures a Manager
type Options struct {
	// Queue is the serialization context for callbacks and task bookkeeping.
	// When nil the Manager creates and owns one.
	Queue     *dispatch.Queue
	Transport transport.Config
	Policy    *placement.Policy
	Logger    zerolog.Logger
}

// Manager starts downloads and feeds their event streams
type Manager struct {
	queue     *dispatch.Queue
	ownsQueue bool
	session   *transport.Session
	policy    *placement.Policy
	logger    zerolog.Logger

	// tasks maps transport task ids to their stream. Only touched on queue.
	tasks map[int64]*taskEntry
}

type taskEntry struct {
	sink                *events.Sink
	expectedContentType string
}

// NewManager creates a Manager and its transport session
func NewManager(opts Options) *Manager {
	m := &Manager{
		queue:  opts.Queue,
		policy: opts.Policy,
		logger: logging.Component(opts.Logger, "download"),
		tasks:  make(map[int64]*taskEntry),
	}
	if m.queue == nil {
		m.queue = dispatch.NewQueue()
		m.ownsQueue = true
	}
	if m.policy == nil {
		m.policy = placement.NewPolicy(".", types.DefaultSubfolder, false)
	}
	m.session = transport.NewSession(opts.Transport, m, m.queue, logging.Component(opts.Logger, "transport"))
	return m
}

// StartDownload requests u and returns the stream of its events right
// away. Every failure, including an unusable URL, arrives through the
// stream. expectedContentType, when set, is sent as Accept and checked
// against the response.
func (m *Manager) StartDownload(u *url.URL, expectedContentType string) *events.Stream {
	stream, sink := events.NewStream()

	if u == nil || !u.IsAbs() || u.Host == "" {
		sink.Finish(fmt.Errorf("%w: %v", ErrInvalidURL, u))
		return stream
	}

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		sink.Finish(fmt.Errorf("%w: %v", ErrInvalidURL, err))
		return stream
	}
	if expectedContentType != "" {
		req.Header.Set("Accept", expectedContentType)
	}

	task := m.session.DownloadTask(req)
	m.queue.Async(func() {
		m.tasks[task.ID()] = &taskEntry{sink: sink, expectedContentType: expectedContentType}
		m.logger.Debug().Int64("task_id", task.ID()).Str("url", u.String()).Msg("task started")
		task.Resume()
	})

	return stream
}

// DidWriteData emits a progress event for the task
func (m *Manager) DidWriteData(task *transport.Task, bytesWritten, totalBytesWritten, totalBytesExpected int64) {
	entry, ok := m.tasks[task.ID()]
	if !ok {
		return
	}
	entry.sink.Yield(types.Progress(fraction(totalBytesWritten, totalBytesExpected)))
}

// DidFinishDownloading places the received file and emits finished, or
// ends the stream with the placement error.
func (m *Manager) DidFinishDownloading(task *transport.Task, location string) {
	entry, ok := m.tasks[task.ID()]
	if !ok {
		return
	}

	dest, err := m.policy.Place(location, task.Response(), entry.expectedContentType)
	if err != nil {
		m.logger.Debug().Int64("task_id", task.ID()).Err(err).Msg("placement failed")
		entry.sink.Finish(err)
		delete(m.tasks, task.ID())
		return
	}

	m.logger.Debug().Int64("task_id", task.ID()).Str("location", dest).Msg("file placed")
	entry.sink.Yield(types.Completed(dest))
}

// DidComplete ends the task's stream unless placement already did
func (m *Manager) DidComplete(task *transport.Task, err error) {
	entry, ok := m.tasks[task.ID()]
	if !ok {
		return
	}
	if err != nil {
		m.logger.Debug().Int64("task_id", task.ID()).Err(err).Msg("task failed")
	}
	entry.sink.Finish(err)
	delete(m.tasks, task.ID())
}

// ActiveTasks returns how many tasks have not reached their terminal event.
// Must not be called from the queue.
func (m *Manager) ActiveTasks() int {
	var n int
	m.queue.Sync(func() { n = len(m.tasks) })
	return n
}

// Wait blocks until every started task has delivered its terminal event
func (m *Manager) Wait() {
	// Tasks are resumed on the queue; let pending starts run first
	m.queue.Sync(func() {})
	m.session.Wait()
	m.queue.Sync(func() {})
}

// Shutdown cancels in-flight transfers and waits until their streams are
// finished. It is meant for process teardown only.
func (m *Manager) Shutdown() {
	m.queue.Sync(func() {})
	m.session.Close()
	m.queue.Sync(func() {})
	if m.ownsQueue {
		m.queue.Close()
	}
}

// fraction is written/expected clamped to [0,1], or 0 when expected is unknown or zero
func fraction(written, expected int64) float64 {
	if expected <= 0 {
		return 0
	}
	f := float64(written) / float64(expected)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
