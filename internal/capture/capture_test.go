package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/incense/internal/motion"
)

func TestCaptureRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	require.NoError(t, err)

	now := time.Date(2025, 1, 10, 9, 30, 0, 0, time.Local)
	samples := []motion.Sample{
		{Time: now, Roll: 1.5, Pitch: -42.25, Yaw: 180},
		{Time: now.Add(100 * time.Millisecond), Roll: 1.25, Pitch: 38.5, Yaw: 179.75},
	}
	for _, s := range samples {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Close())

	loaded, err := LoadDay(dir, "2025-01-10")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.True(t, loaded[0].Time.Equal(now))
	assert.Equal(t, -42.25, loaded[0].Pitch)
	assert.True(t, loaded[1].Time.Equal(now.Add(100*time.Millisecond)))
	assert.Equal(t, 38.5, loaded[1].Pitch)
}

func TestCaptureDayRollover(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	day1 := time.Date(2025, 1, 10, 23, 59, 59, 0, time.Local)
	require.NoError(t, w.Write(motion.Sample{Time: day1}))
	require.NoError(t, w.Write(motion.Sample{Time: day1.Add(2 * time.Second)}))
	require.NoError(t, w.Close())

	days, err := ListDays(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-11", "2025-01-10"}, days)

	// appending to an existing file does not repeat the header
	w, err = NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.Write(motion.Sample{Time: day1.Add(-time.Second)}))
	require.NoError(t, w.Close())

	loaded, err := LoadDay(dir, "2025-01-10")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestLoadFileSkipsBadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2025-01-10.csv")
	content := "time,roll,pitch,yaw\n" +
		"2025-01-10T09:00:00.000,0,-40,0\n" +
		"garbage\n" +
		"2025-01-10T09:00:00.100,0,nope,0\n" +
		"2025-01-10T09:00:00.150,0,NaN,0\n" +
		"2025-01-10T09:00:00.160,+Inf,0,0\n" +
		"2025-01-10T09:00:00.200,0,40,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 40.0, loaded[1].Pitch)
}

func TestListDaysIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2025-01-09.csv", "notes.csv", "2025-01-10.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	days, err := ListDays(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-09"}, days)
}
