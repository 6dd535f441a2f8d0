package motion

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySourceLoops(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	samples := []Sample{
		{Time: base, Pitch: 0},
		{Time: base.Add(100 * time.Millisecond), Pitch: -40},
		{Time: base.Add(200 * time.Millisecond), Pitch: 40},
	}

	var slept []time.Duration
	src := NewReplaySource(samples, 2, true).(*replaySource)
	src.sleep = func(d time.Duration) { slept = append(slept, d) }

	var got []Sample
	for i := 0; i < 5; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		got = append(got, s)
	}

	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}, slept)
	assert.Equal(t, base.Add(300*time.Millisecond), got[3].Time, "second lap continues the timeline")
	assert.Equal(t, -40.0, got[4].Pitch)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Time.After(got[i-1].Time))
	}

	require.NoError(t, src.Close())
	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReplaySourceEnds(t *testing.T) {
	src := NewReplaySource([]Sample{{Pitch: 1}}, 0, false)
	_, err := src.Next()
	require.NoError(t, err)
	_, err = src.Next()
	assert.Equal(t, io.EOF, err)

	_, err = NewReplaySource(nil, 1, true).Next()
	assert.Equal(t, io.EOF, err)
}

func TestSimSourcePerformsGesture(t *testing.T) {
	src := NewSimSource(100*time.Millisecond, 3*time.Second).(*simSource)
	src.sleep = func(time.Duration) {}

	var minPitch, maxPitch float64
	var prev time.Time
	for i := 0; i < 30; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		if i > 0 {
			assert.Equal(t, 100*time.Millisecond, s.Time.Sub(prev))
		}
		prev = s.Time
		minPitch = min(minPitch, s.Pitch)
		maxPitch = max(maxPitch, s.Pitch)
	}
	assert.Less(t, minPitch, -30.0)
	assert.Greater(t, maxPitch, 30.0)

	require.NoError(t, src.Close())
	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
}
