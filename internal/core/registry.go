package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/djyunz/SBSample/internal/dispatch"
	"github.com/djyunz/SBSample/internal/engine/events"
	"github.com/djyunz/SBSample/internal/engine/types"
	"github.com/djyunz/SBSample/internal/logging"
	"github.com/djyunz/SBSample/internal/utils"
)

// ErrStreamClosed is the failure cause of an item whose stream ended
// without a finished event.
var ErrStreamClosed = errors.New("download stream closed without finishing")

// ErrRejected is returned by Add for URLs the registry drops
var ErrRejected = errors.New("download url rejected")

// ErrRegistryClosed fails items started while the registry shuts down
var ErrRegistryClosed = errors.New("registry is shut down")

// Downloader opens one event stream per requested URL
type Downloader interface {
	StartDownload(u *url.URL, expectedContentType string) *events.Stream
	Shutdown()
}

// HistoryStore persists terminal outcomes
type HistoryStore interface {
	Record(ctx context.Context, e types.DownloadEntry) error
	List(ctx context.Context, limit int) ([]types.DownloadEntry, error)
}

// RegistryOptions configures a Registry
type RegistryOptions struct {
	// Queue must be the queue the Downloader delivers on, so that items and
	// tasks share one serialization context. Nil creates a private queue.
	Queue      *dispatch.Queue
	Downloader Downloader
	History    HistoryStore
	// Events receives lifecycle and progress messages; nil disables them.
	Events chan<- any
	Logger zerolog.Logger
}

type item struct {
	id                  string
	url                 *url.URL
	expectedContentType string
	progress            float64
	state               types.DownloadState
	location            string
	addedAt             time.Time
	startedAt           time.Time
}

func (it *item) status() types.ItemStatus {
	st := types.ItemStatus{
		ID:                it.id,
		URL:               it.url.String(),
		Progress:          it.progress,
		Status:            it.state.Kind.String(),
		Error:             it.state.Message(),
		LocalFileLocation: it.location,
		AddedAt:           it.addedAt.Unix(),
		State:             it.state,
	}
	return st
}

// Registry is the ordered collection of download items. It drives each
// item's stream to its end and applies every mutation on the queue.
type Registry struct {
	queue      *dispatch.Queue
	ownsQueue  bool
	downloader Downloader
	history    HistoryStore
	events     chan<- any
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// Only touched on queue
	items []*item
	byID  map[string]*item
}

// NewRegistry creates an empty registry
func NewRegistry(opts RegistryOptions) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		queue:      opts.Queue,
		downloader: opts.Downloader,
		history:    opts.History,
		events:     opts.Events,
		logger:     logging.Component(opts.Logger, "registry"),
		ctx:        ctx,
		cancel:     cancel,
		byID:       make(map[string]*item),
	}
	if r.queue == nil {
		r.queue = dispatch.NewQueue()
		r.ownsQueue = true
	}
	return r
}

// StartDownload appends a waiting item for rawURL and starts driving it.
// Malformed URLs are logged and dropped: ok is false and no item exists.
func (r *Registry) StartDownload(rawURL string) (id string, ok bool) {
	u, err := utils.ParseDownloadURL(rawURL)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", rawURL).Msg("dropping download request")
		return "", false
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn().Str("url", rawURL).Msg("registry closed, dropping download request")
		return "", false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	it := &item{
		id:                  uuid.NewString(),
		url:                 u,
		expectedContentType: utils.ContentTypeForURL(u),
		state:               types.Waiting(),
		addedAt:             time.Now(),
	}
	r.queue.Async(func() {
		r.items = append(r.items, it)
		r.byID[it.id] = it
	})

	go r.drive(it)
	return it.id, true
}

// drive moves it to downloading and consumes its stream to the end
func (r *Registry) drive(it *item) {
	defer r.wg.Done()
	log := r.logger.With().Str("id", it.id).Str("url", it.url.String()).Logger()

	r.emit(events.DownloadQueuedMsg{DownloadID: it.id, URL: it.url.String()})

	var stream *events.Stream
	r.queue.Sync(func() {
		it.state = types.Downloading()
		it.startedAt = time.Now()
		stream = r.downloader.StartDownload(it.url, it.expectedContentType)
	})
	if stream == nil {
		// The queue was closed under us
		stream = events.Failed(ErrRegistryClosed)
	}

	r.emit(events.DownloadStartedMsg{
		DownloadID:          it.id,
		URL:                 it.url.String(),
		ExpectedContentType: it.expectedContentType,
	})

	for ev, err := range stream.All(context.Background()) {
		if err != nil {
			log.Debug().Err(err).Msg("download failed")
			r.fail(it, err)
			return
		}
		switch ev.Kind {
		case types.EventProgress:
			r.progress(it, ev.Fraction)
		case types.EventFinished:
			r.finish(it, ev.Location)
			return
		}
	}

	r.fail(it, ErrStreamClosed)
}

func (r *Registry) progress(it *item, fraction float64) {
	var current float64
	var elapsed time.Duration
	r.queue.Sync(func() {
		if it.state.Kind != types.StateDownloading {
			return
		}
		if fraction > it.progress {
			it.progress = fraction
		}
		current = it.progress
		elapsed = time.Since(it.startedAt)
	})

	if r.events == nil {
		return
	}
	select {
	case r.events <- events.ProgressMsg{DownloadID: it.id, Progress: current, Elapsed: elapsed}:
	default:
	}
}

func (r *Registry) finish(it *item, location string) {
	var elapsed time.Duration
	r.queue.Sync(func() {
		it.progress = 1
		it.location = location
		it.state = types.Finished()
		elapsed = time.Since(it.startedAt)
	})

	r.logger.Info().Str("id", it.id).Str("location", location).Dur("elapsed", elapsed).Msg("download finished")
	r.record(types.DownloadEntry{
		ID:        it.id,
		URL:       it.url.String(),
		DestPath:  location,
		Filename:  filepath.Base(location),
		Status:    types.StateFinished.String(),
		Progress:  1,
		TimeTaken: elapsed.Milliseconds(),
	})
	r.emit(events.DownloadCompleteMsg{DownloadID: it.id, URL: it.url.String(), Location: location, Elapsed: elapsed})
}

func (r *Registry) fail(it *item, cause error) {
	var progress float64
	var elapsed time.Duration
	r.queue.Sync(func() {
		it.state = types.Failed(cause)
		progress = it.progress
		elapsed = time.Since(it.startedAt)
	})

	r.logger.Info().Str("id", it.id).Err(cause).Msg("download failed")
	r.record(types.DownloadEntry{
		ID:        it.id,
		URL:       it.url.String(),
		Status:    types.StateFailed.String(),
		Error:     cause.Error(),
		Progress:  progress,
		TimeTaken: elapsed.Milliseconds(),
	})
	r.emit(events.DownloadErrorMsg{DownloadID: it.id, URL: it.url.String(), Progress: progress, Err: cause})
}

func (r *Registry) record(e types.DownloadEntry) {
	if r.history == nil {
		return
	}
	e.CompletedAt = time.Now().Unix()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.history.Record(ctx, e); err != nil {
		r.logger.Warn().Err(err).Str("id", e.ID).Msg("failed to record history")
	}
}

// emit delivers a lifecycle message, blocking until it is taken or the
// registry shuts down.
func (r *Registry) emit(msg any) {
	if r.events == nil {
		return
	}
	select {
	case r.events <- msg:
	case <-r.ctx.Done():
	}
}

// Snapshot returns a copy of every item in insertion order
func (r *Registry) Snapshot() []types.ItemStatus {
	var out []types.ItemStatus
	r.queue.Sync(func() {
		out = make([]types.ItemStatus, 0, len(r.items))
		for _, it := range r.items {
			out = append(out, it.status())
		}
	})
	return out
}

// Item returns a copy of the item with id
func (r *Registry) Item(id string) (types.ItemStatus, bool) {
	var st types.ItemStatus
	var ok bool
	r.queue.Sync(func() {
		it, found := r.byID[id]
		if found {
			st, ok = it.status(), true
		}
	})
	return st, ok
}

// Wait blocks until every started item is finished or failed
func (r *Registry) Wait() {
	r.wg.Wait()
}

// List implements DownloadService
func (r *Registry) List() ([]types.ItemStatus, error) {
	return r.Snapshot(), nil
}

// Add implements DownloadService
func (r *Registry) Add(rawURL string) (string, error) {
	id, ok := r.StartDownload(rawURL)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRejected, rawURL)
	}
	return id, nil
}

// History implements DownloadService
func (r *Registry) History() ([]types.DownloadEntry, error) {
	if r.history == nil {
		return nil, nil
	}
	return r.history.List(context.Background(), 0)
}

// Shutdown stops accepting downloads, cancels in-flight ones and waits for
// their items to fail. Messages nobody is reading any more are dropped.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	if r.downloader != nil {
		r.downloader.Shutdown()
	}
	r.wg.Wait()
	if r.ownsQueue {
		r.queue.Close()
	}
	return nil
}
