// Package chart renders pitch sparklines, tick timelines, threshold gauges
// and detection markers for the terminal views.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/incense/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// nearMargin is how close to a threshold, in degrees, a value turns yellow.
const nearMargin = 10.0

// PitchColor returns the color for a pitch value given the gesture
// thresholds.
func PitchColor(v, low, high float64) lipgloss.Color {
	switch {
	case v < low:
		return lipgloss.Color("39") // blue: hands lowered
	case v > high:
		return lipgloss.Color("208") // orange: hands raised
	case v-low < nearMargin || high-v < nearMargin:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// isTick reports whether point i starts a new tick interval.
func isTick(points []history.Point, i int, tick time.Duration) bool {
	if tick <= 0 || points[i].Time.IsZero() || i == 0 || points[i-1].Time.IsZero() {
		return false
	}
	return !points[i].Time.Truncate(tick).Equal(points[i-1].Time.Truncate(tick))
}

// RenderSparklinePoints renders a sparkline, drawing a subtle pipe where
// the timestamps cross a tick boundary. A tick of zero disables the marks.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax, low, high float64, tick time.Duration) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	sb.WriteString(dim.Render(strings.Repeat("╌", padLen)))

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		if isTick(points, i, tick) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := (p.Value - rangeMin) / span
		if math.IsNaN(norm) {
			norm = 0
		}
		norm = math.Max(0, math.Min(1, norm))
		idx := min(int(norm*7), 7)

		style := lipgloss.NewStyle().Foreground(PitchColor(p.Value, low, high))
		if p.Value < low || p.Value > high {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// RenderTimeline renders HH:MM:SS labels under the sparkline at each tick.
func RenderTimeline(points []history.Point, width int, tick time.Duration) string {
	if len(points) == 0 || width <= 0 || tick <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := []rune(strings.Repeat(" ", width))

	lastEnd := -1
	for i, p := range points {
		if !isTick(points, i, tick) {
			continue
		}
		label := p.Time.Format("15:04:05")
		start := max(padLen+i-4, 0)
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderMarkers renders a row aligned with the sparkline that places a
// marker under every point whose time matches one of marks.
func RenderMarkers(points []history.Point, width int, marks []time.Time) string {
	if len(points) == 0 || width <= 0 || len(marks) == 0 {
		return ""
	}
	if len(points) > width {
		points = points[len(points)-width:]
	}
	padLen := width - len(points)

	set := make(map[int64]bool, len(marks))
	for _, m := range marks {
		set[m.UnixNano()] = true
	}

	line := []rune(strings.Repeat(" ", width))
	found := false
	for i, p := range points {
		if set[p.Time.UnixNano()] {
			line[padLen+i] = '▲'
			found = true
		}
	}
	if !found {
		return ""
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true).Render(string(line))
}

// RenderGauge renders a horizontal scale from rangeMin to rangeMax with the
// thresholds marked and the current value as a diamond.
func RenderGauge(current, rangeMin, rangeMax, low, high float64, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		if math.IsNaN(v) {
			return -1
		}
		p := int(math.Round(float64(width-1) * (v - rangeMin) / span))
		return max(0, min(width-1, p))
	}

	lowPos, highPos, zeroPos := pos(low), pos(high), pos(0)
	curPos := pos(current)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(PitchColor(current, low, high)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case lowPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render("▪"))
		case highPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("▪"))
		case zeroPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("│"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}

	return sb.String()
}

// RenderAngle renders an angle with color coding.
func RenderAngle(v, low, high float64) string {
	style := lipgloss.NewStyle().Foreground(PitchColor(v, low, high))
	if v < low || v > high {
		style = style.Bold(true)
	}
	return style.Render(fmt.Sprintf("%+6.1f°", v))
}
