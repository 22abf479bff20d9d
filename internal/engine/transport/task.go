package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/logging"
)

// Task is one HTTP GET whose body is received into a temp file
type Task struct {
	id      int64
	session *Session
	request *http.Request
	once    sync.Once

	mu       sync.Mutex
	response *http.Response
	expected int64

	// reported is only touched on the session's executor
	reported int64
}

// ID is unique among the tasks of a session and increases with creation order
func (t *Task) ID() int64 { return t.id }

// OriginalRequest returns the request the task was created with
func (t *Task) OriginalRequest() *http.Request { return t.request }

// Response returns the response once headers arrived, nil before. Its
// body is owned by the task and must not be read.
func (t *Task) Response() *http.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.response
}

// ExpectedBytes returns the announced body length, -1 when unknown
func (t *Task) ExpectedBytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expected
}

// Resume starts the task. Later calls do nothing.
func (t *Task) Resume() {
	t.once.Do(func() { t.session.start(t) })
}

func (t *Task) run(ctx context.Context) {
	s := t.session
	ctx = logging.WithTaskID(logging.WithContext(ctx, s.logger), t.id)

	err := t.transfer(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("transfer failed")
	}
	s.queue.Async(func() { s.delegate.DidComplete(t, err) })
}

func (t *Task) transfer(ctx context.Context) error {
	s := t.session

	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.slots.Release(1)
	}

	req := t.request.Clone(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", s.cfg.Runtime.GetUserAgent())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("error closing response body")
		}
	}()

	t.mu.Lock()
	t.response = resp
	t.expected = resp.ContentLength
	t.mu.Unlock()

	tmp, err := os.CreateTemp(s.tempDir(), types.TempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer s.removeTemp(tmpPath)

	written, err := t.receive(ctx, resp.Body, tmp, resp.ContentLength)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close error: %w", closeErr)
	}
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Debug().
		Int("status", resp.StatusCode).
		Int64("bytes", written).
		Msg("body received")

	s.queue.Sync(func() { s.delegate.DidFinishDownloading(t, tmpPath) })
	return nil
}

// receive copies body into out, reporting progress in batches
func (t *Task) receive(ctx context.Context, body io.Reader, out *os.File, expected int64) (int64, error) {
	s := t.session
	rt := s.cfg.Runtime
	batchBytes := rt.GetProgressBatchSize()
	batchInterval := rt.GetProgressBatchInterval()

	var written, lastReported int64
	lastReport := time.Now()
	buf := make([]byte, rt.GetWorkerBufferSize())

	for {
		// Check for context cancellation (allows clean shutdown)
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := body.Read(buf)
		if nr > 0 {
			nw, writeErr := out.Write(buf[0:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, fmt.Errorf("write error: %w", writeErr)
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
			if written-lastReported >= batchBytes || time.Since(lastReport) >= batchInterval {
				s.reportProgress(t, written, expected)
				lastReported = written
				lastReport = time.Now()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break // Done reading
			}
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("read error: %w", readErr)
		}
	}

	if written > lastReported {
		s.reportProgress(t, written, expected)
	}

	if err := out.Sync(); err != nil {
		return written, fmt.Errorf("sync error: %w", err)
	}
	return written, nil
}

// removeTemp deletes a temp file the delegate did not move away
func (s *Session) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}
