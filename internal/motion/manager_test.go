package motion

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns the queued samples then blocks until closed.
type fakeSource struct {
	samples []Sample
	err     error
	closed  chan struct{}
}

func newFakeSource(samples ...Sample) *fakeSource {
	return &fakeSource{samples: samples, closed: make(chan struct{})}
}

func (f *fakeSource) Next() (Sample, error) {
	if len(f.samples) > 0 {
		s := f.samples[0]
		f.samples = f.samples[1:]
		return s, nil
	}
	if f.err != nil {
		return Sample{}, f.err
	}
	<-f.closed
	return Sample{}, io.EOF
}

func (f *fakeSource) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func collect(t *testing.T, ch <-chan Sample, n int) []Sample {
	t.Helper()
	var got []Sample
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case s, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, s)
		case <-timeout:
			t.Fatalf("timed out after %d of %d samples", len(got), n)
		}
	}
	return got
}

func TestManagerDelivers(t *testing.T) {
	src := newFakeSource(Sample{Pitch: 1}, Sample{Pitch: 2}, Sample{Pitch: 3})
	m := NewManager(8, nil)

	require.NoError(t, m.Start(context.Background(), func() (Source, error) { return src, nil }))
	got := collect(t, m.Samples(), 3)
	require.Len(t, got, 3)
	assert.Equal(t, 3.0, got[2].Pitch)

	require.NoError(t, m.Stop())
	_, ok := <-m.Samples()
	assert.False(t, ok, "samples channel should close on stop")
	assert.Equal(t, Stats{Received: 3}, m.Stats())
	assert.NoError(t, m.Err())
}

func TestManagerUnavailable(t *testing.T) {
	m := NewManager(1, nil)
	err := m.Start(context.Background(), func() (Source, error) {
		return nil, errors.New("no such device")
	})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "no such device")
	assert.NoError(t, m.Stop())
}

func TestManagerStartTwice(t *testing.T) {
	m := NewManager(1, nil)
	open := func() (Source, error) { return newFakeSource(), nil }
	require.NoError(t, m.Start(context.Background(), open))
	assert.Error(t, m.Start(context.Background(), open))
	require.NoError(t, m.Stop())
}

func TestManagerDropsWhenFull(t *testing.T) {
	src := newFakeSource(Sample{Pitch: 1}, Sample{Pitch: 2}, Sample{Pitch: 3}, Sample{Pitch: 4})
	src.err = io.EOF
	m := NewManager(1, nil)
	require.NoError(t, m.Start(context.Background(), func() (Source, error) { return src, nil }))

	// Nobody reads until the source is exhausted.
	require.Eventually(t, func() bool {
		return m.Stats().Dropped == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(4), m.Stats().Received)

	got := collect(t, m.Samples(), 4)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Pitch)
}

func TestManagerSourceError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("port unplugged")
	m := NewManager(1, nil)
	require.NoError(t, m.Start(context.Background(), func() (Source, error) { return src, nil }))

	_, ok := <-m.Samples()
	assert.False(t, ok)
	assert.EqualError(t, m.Err(), "port unplugged")
}

func TestManagerPaused(t *testing.T) {
	src := newFakeSource(Sample{Pitch: 1}, Sample{Pitch: 2})
	src.err = io.EOF
	m := NewManager(4, nil)
	m.SetPaused(true)
	assert.True(t, m.Paused())

	require.NoError(t, m.Start(context.Background(), func() (Source, error) { return src, nil }))
	got := collect(t, m.Samples(), 2)
	assert.Empty(t, got)
	assert.Zero(t, m.Stats().Received)
}
