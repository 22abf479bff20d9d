// Package transport runs HTTP download tasks and reports their progress,
// received bodies and completion to a Delegate on a serial executor.
package transport

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/djyunz/SBSample/internal/dispatch"
	"github.com/djyunz/SBSample/internal/engine/types"
)

// ErrSessionClosed is reported for tasks resumed after Close
var ErrSessionClosed = errors.New("transport session closed")

// Executor serializes delegate callbacks
type Executor interface {
	Async(fn func())
	Sync(fn func())
}

// Delegate receives task callbacks, always on the session's Executor.
// For one task the order is: DidWriteData zero or more times, then
// DidFinishDownloading at most once, then DidComplete exactly once.
type Delegate interface {
	// DidWriteData reports bytes received since the previous report, the
	// running total and the expected total (-1 when unknown).
	DidWriteData(task *Task, bytesWritten, totalBytesWritten, totalBytesExpected int64)

	// DidFinishDownloading hands over the temp file holding the body. The
	// file is deleted after the call returns unless the delegate moved it.
	DidFinishDownloading(task *Task, location string)

	// DidComplete ends the task. err is nil when the body was received,
	// whatever the HTTP status.
	DidComplete(task *Task, err error)
}

// Config tunes a Session
type Config struct {
	// TempDir receives bodies while they download; "" uses os.TempDir.
	TempDir string
	Runtime *types.RuntimeConfig
	// Client overrides the client built from Runtime.
	Client *http.Client
}

// Session owns the HTTP client and every task created from it
type Session struct {
	cfg      Config
	client   *http.Client
	delegate Delegate
	queue    Executor
	progress *dispatch.Coalescer
	slots    *semaphore.Weighted
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  int64
	running int
	closed  bool
	wg      sync.WaitGroup
}

// NewSession creates a session delivering callbacks to delegate on queue
func NewSession(cfg Config, delegate Delegate, queue Executor, logger zerolog.Logger) *Session {
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(cfg.Runtime, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		client:   client,
		delegate: delegate,
		queue:    queue,
		progress: dispatch.NewCoalescer(queue.Async),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	if n := cfg.Runtime.GetMaxConcurrentTransfers(); n > 0 {
		s.slots = semaphore.NewWeighted(int64(n))
	}
	return s
}

// DownloadTask creates a suspended task for req. Call Resume to start it.
func (s *Session) DownloadTask(req *http.Request) *Task {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	return &Task{
		id:       id,
		session:  s,
		request:  req,
		expected: -1,
	}
}

// InFlight returns the number of resumed tasks that have not completed
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until every resumed task has completed
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight transfers and waits for them. Their delegates
// still receive DidComplete with the cancellation error, but progress not
// yet delivered is dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.progress.Destroy()
	s.wg.Wait()
}

func (s *Session) start(t *Task) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.queue.Async(func() { s.delegate.DidComplete(t, ErrSessionClosed) })
		return
	}
	s.running++
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		t.run(s.ctx)
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()
}

func (s *Session) reportProgress(t *Task, total, expected int64) {
	s.progress.Post("progress-"+strconv.FormatInt(t.id, 10), func() {
		delta := total - t.reported
		t.reported = total
		s.delegate.DidWriteData(t, delta, total, expected)
	})
}

func (s *Session) tempDir() string {
	if s.cfg.TempDir != "" {
		return s.cfg.TempDir
	}
	return os.TempDir()
}
