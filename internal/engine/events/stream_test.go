package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djyunz/SBSample/internal/engine/types"
)

func next(t *testing.T, s *Stream) (types.DownloadStatus, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Next(ctx)
}

func TestStream_ProgressThenFinished(t *testing.T) {
	s, w := NewStream()

	require.True(t, w.Yield(types.Progress(0.5)))
	ev, err := next(t, s)
	require.NoError(t, err)
	assert.Equal(t, types.Progress(0.5), ev)

	require.True(t, w.Yield(types.Completed("/docs/MyDownloads/a.pdf")))
	ev, err = next(t, s)
	require.NoError(t, err)
	assert.Equal(t, types.EventFinished, ev.Kind)

	_, err = next(t, s)
	assert.ErrorIs(t, err, io.EOF)
	// Stays closed
	_, err = next(t, s)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_ProgressCoalesces(t *testing.T) {
	s, w := NewStream()
	for _, f := range []float64{0.1, 0.2, 0.3, 0.4} {
		require.True(t, w.Yield(types.Progress(f)))
	}
	require.True(t, w.Yield(types.Completed("/x")))

	ev, err := next(t, s)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, ev.Fraction, 1e-9)

	ev, err = next(t, s)
	require.NoError(t, err)
	assert.Equal(t, "/x", ev.Location)

	_, err = next(t, s)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_FinishWithError(t *testing.T) {
	s, w := NewStream()
	boom := errors.New("boom")

	w.Yield(types.Progress(0.25))
	w.Finish(boom)
	assert.False(t, w.Yield(types.Progress(0.3)), "no events after finish")
	w.Finish(nil) // first finish wins

	ev, err := next(t, s)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, ev.Fraction, 1e-9)

	_, err = next(t, s)
	assert.ErrorIs(t, err, boom)
}

func TestStream_FinishedThenErrorStaysClean(t *testing.T) {
	s, w := NewStream()

	require.True(t, w.Yield(types.Completed("/x")))
	assert.True(t, w.Closed())
	assert.False(t, w.Yield(types.Progress(0.9)))
	assert.False(t, w.Yield(types.Completed("/y")))
	w.Finish(errors.New("late transport error"))

	ev, err := next(t, s)
	require.NoError(t, err)
	assert.Equal(t, "/x", ev.Location)

	_, err = next(t, s)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_NextHonorsContext(t *testing.T) {
	s, _ := NewStream()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStream_ConcurrentProducer(t *testing.T) {
	s, w := NewStream()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			w.Yield(types.Progress(float64(i) / 1000))
		}
		w.Yield(types.Completed("/done"))
	}()

	last := 0.0
	var finished bool
	for ev, err := range s.All(context.Background()) {
		require.NoError(t, err)
		if ev.Kind == types.EventFinished {
			finished = true
			continue
		}
		assert.False(t, finished, "progress after finished")
		assert.GreaterOrEqual(t, ev.Fraction, last)
		last = ev.Fraction
	}
	wg.Wait()
	assert.True(t, finished)
}

func TestStream_AllYieldsErrorOnce(t *testing.T) {
	boom := errors.New("unexpected status code: 404")
	s := Failed(boom)

	var errs []error
	for _, err := range s.All(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}
