package inspect

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/gesture"
	"github.com/luki/incense/internal/motion"
)

func writeDay(t *testing.T, dir string, base time.Time, pitches []float64) {
	t.Helper()
	w, err := capture.NewWriter(dir)
	require.NoError(t, err)
	for i, p := range pitches {
		require.NoError(t, w.Write(motion.Sample{Time: base.Add(time.Duration(i) * 100 * time.Millisecond), Pitch: p}))
	}
	require.NoError(t, w.Close())
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(Model)
}

func TestDetections(t *testing.T) {
	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.Local)
	var samples []motion.Sample
	for i, p := range []float64{0, -40, 40, 0, 0, -50, 50} {
		samples = append(samples, motion.Sample{Time: base.Add(time.Duration(i) * 100 * time.Millisecond), Pitch: p})
	}
	assert.Equal(t, []int{2, 6}, Detections(samples, gesture.DefaultConfig()))
}

func TestNavigation(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2025, 1, 9, 9, 0, 0, 0, time.Local)
	day2 := time.Date(2025, 1, 10, 9, 0, 0, 0, time.Local)
	writeDay(t, dir, day1, []float64{0, 1, 2})
	writeDay(t, dir, day2, []float64{0, -40, 40, 0, 0, -50, 50, 0, 0, 0})

	days, err := capture.ListDays(dir)
	require.NoError(t, err)

	m := NewModel(dir, days, gesture.DefaultConfig())
	require.NoError(t, m.err)
	assert.Len(t, m.samples, 10)
	assert.Equal(t, []int{2, 6}, m.hits)
	assert.Equal(t, 9, m.cursor)

	m = press(t, m, "N")
	assert.Equal(t, 6, m.cursor)
	m = press(t, m, "N")
	assert.Equal(t, 2, m.cursor)
	m = press(t, m, "N")
	assert.Equal(t, 2, m.cursor, "no earlier gesture")
	m = press(t, m, "n")
	assert.Equal(t, 6, m.cursor)

	m = press(t, m, "h")
	assert.Equal(t, 5, m.cursor)
	m = press(t, m, "H")
	assert.Equal(t, 0, m.cursor)
	m = press(t, m, "L")
	assert.Equal(t, 9, m.cursor)

	m = press(t, m, "[")
	assert.Equal(t, 1, m.dayIdx)
	assert.Len(t, m.samples, 3)
	assert.Empty(t, m.hits)

	m = press(t, m, "]")
	assert.Equal(t, 0, m.dayIdx)
}

func TestView(t *testing.T) {
	dir := t.TempDir()
	writeDay(t, dir, time.Date(2025, 1, 10, 9, 0, 0, 0, time.Local), []float64{0, -40, 40, 0})
	days, err := capture.ListDays(dir)
	require.NoError(t, err)

	m := NewModel(dir, days, gesture.DefaultConfig())
	assert.Equal(t, "  Loading...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	view := next.(Model).View()
	assert.Contains(t, view, "INCENSE CAPTURES")
	assert.Contains(t, view, "2025-01-10")
	assert.Contains(t, view, "09:00:00.300")
	assert.Contains(t, view, "1 gestures")
}

func TestMissingDay(t *testing.T) {
	m := NewModel(t.TempDir(), []string{"2025-01-10"}, gesture.DefaultConfig())
	assert.Error(t, m.err)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, next.(Model).View(), "No samples for this day.")
}

func TestRunWithoutCaptures(t *testing.T) {
	assert.Error(t, Run(t.TempDir(), gesture.DefaultConfig()))
}
