// Package inspect implements the capture browser TUI: scrub through a
// recorded day of motion samples and see where the gesture detector fires.
package inspect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/chart"
	"github.com/luki/incense/internal/gesture"
	"github.com/luki/incense/internal/history"
	"github.com/luki/incense/internal/motion"
)

const (
	skipSamples = 100 // ten seconds at 10 Hz
	chartTick   = 5 * time.Second
	angleMin    = -90.0
	angleMax    = 90.0
)

// Run launches the capture browser for the captures in dir.
func Run(dir string, cfg gesture.Config) error {
	days, err := capture.ListDays(dir)
	if err != nil {
		return fmt.Errorf("list captures in %s: %w", dir, err)
	}
	if len(days) == 0 {
		return fmt.Errorf("no captures found in %s", dir)
	}

	p := tea.NewProgram(
		NewModel(dir, days, cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// Detections runs a fresh detector over samples and returns the indexes of
// the samples that completed a gesture.
func Detections(samples []motion.Sample, cfg gesture.Config) []int {
	d := gesture.New(cfg)
	var hits []int
	for i, s := range samples {
		if d.Process(s) {
			hits = append(hits, i)
		}
	}
	return hits
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("52")
	colorTitleFg  = lipgloss.Color("214")
	colorBorder   = lipgloss.Color("94")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCursor   = lipgloss.Color("214")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the capture browser.
type Model struct {
	dir     string
	cfg     gesture.Config
	days    []string        // available days, newest first
	dayIdx  int             // currently selected day
	samples []motion.Sample // samples of the current day
	hits    []int           // sample indexes where a gesture completed
	cursor  int             // sample index under the cursor
	width   int
	height  int
	err     error
}

// NewModel creates the browser positioned at the end of the newest day.
func NewModel(dir string, days []string, cfg gesture.Config) Model {
	m := Model{dir: dir, cfg: cfg, days: days}
	m.loadDay()
	return m
}

func (m *Model) loadDay() {
	samples, err := capture.LoadDay(m.dir, m.days[m.dayIdx])
	if err != nil {
		m.err = err
		m.samples, m.hits, m.cursor = nil, nil, 0
		return
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })

	m.err = nil
	m.samples = samples
	m.hits = Detections(samples, m.cfg)
	m.cursor = max(len(samples)-1, 0)
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		last := max(len(m.samples)-1, 0)
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			m.cursor = max(m.cursor-1, 0)
		case "right", "l":
			m.cursor = min(m.cursor+1, last)
		case "shift+left", "H":
			m.cursor = max(m.cursor-skipSamples, 0)
		case "shift+right", "L":
			m.cursor = min(m.cursor+skipSamples, last)
		case "home":
			m.cursor = 0
		case "end":
			m.cursor = last

		case "n":
			for _, h := range m.hits {
				if h > m.cursor {
					m.cursor = h
					break
				}
			}
		case "N":
			for i := len(m.hits) - 1; i >= 0; i-- {
				if m.hits[i] < m.cursor {
					m.cursor = m.hits[i]
					break
				}
			}

		case "[":
			if m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				m.loadDay()
			}
		case "]":
			if m.dayIdx > 0 {
				m.dayIdx--
				m.loadDay()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := max(m.width-2, 40)

	var sections []string
	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err)))
	}

	if len(m.samples) == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No samples for this day."))
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	lines := strings.Split(content, "\n")
	visible := max(m.height, 5)
	if len(lines) > visible {
		lines = lines[:visible]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("INCENSE CAPTURES")

	dayText := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(m.days[m.dayIdx])

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))

	dataInfo := ""
	if n := len(m.samples); n > 0 {
		first := m.samples[0].Time.Format("15:04:05")
		last := m.samples[n-1].Time.Format("15:04:05")
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%s samples, %d gestures)",
				first, last, humanize.Comma(int64(n)), len(m.hits)))
	}

	right := dayText + nav + dataInfo
	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderCursorInfo(width int) string {
	s := m.samples[m.cursor]
	ts := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(s.Time.Format("15:04:05.000"))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.samples)))

	scrubber := m.renderScrubber(max(width-36, 10))

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + scrubber)
}

// renderScrubber draws the day as a bar with the cursor as a diamond and
// every detection as a flame mark.
func (m Model) renderScrubber(width int) string {
	n := len(m.samples)
	if n == 0 || width <= 0 {
		return ""
	}

	slot := func(idx int) int {
		if n <= 1 {
			return 0
		}
		return min(idx*(width-1)/(n-1), width-1)
	}

	hitSlots := make(map[int]bool, len(m.hits))
	for _, h := range m.hits {
		hitSlots[slot(h)] = true
	}
	cur := slot(m.cursor)

	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	hitS := lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == cur:
			sb.WriteString(curS.Render("◆"))
		case hitSlots[i]:
			sb.WriteString(hitS.Render("▲"))
		default:
			sb.WriteString(dimS.Render("─"))
		}
	}
	return sb.String()
}

func (m Model) renderPanel(totalWidth int) string {
	inner := max(totalWidth-4, 30)
	chartWidth := min(max(inner-40, 15), 160)
	labelW := 8
	valW := 8

	start := max(m.cursor-chartWidth+1, 0)
	window := m.samples[start : m.cursor+1]

	pitch := make([]history.Point, len(window))
	roll := make([]history.Point, len(window))
	for i, s := range window {
		pitch[i] = history.Point{Value: s.Pitch, Time: s.Time}
		roll[i] = history.Point{Value: s.Roll, Time: s.Time}
	}

	var marks []time.Time
	for _, h := range m.hits {
		if h >= start && h <= m.cursor {
			marks = append(marks, m.samples[h].Time)
		}
	}

	cur := m.samples[m.cursor]
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	label := func(s string) string {
		return lipgloss.NewStyle().Foreground(colorLabel).Bold(true).Width(labelW).Render(s)
	}
	value := func(v float64) string {
		return lipgloss.NewStyle().Width(valW).Align(lipgloss.Right).
			Render(chart.RenderAngle(v, m.cfg.LowPitch, m.cfg.HighPitch))
	}

	var rows []string
	rows = append(rows, label("pitch")+" "+value(cur.Pitch)+" "+frameL+
		chart.RenderSparklinePoints(pitch, chartWidth, angleMin, angleMax, m.cfg.LowPitch, m.cfg.HighPitch, chartTick)+frameR)

	pad := strings.Repeat(" ", labelW+valW+3)
	if row := chart.RenderMarkers(pitch, chartWidth, marks); row != "" {
		rows = append(rows, pad+row)
	}
	if tl := chart.RenderTimeline(pitch, chartWidth, chartTick); strings.TrimSpace(tl) != "" {
		rows = append(rows, pad+tl)
	}

	// roll never arms anything, so it is drawn against unreachable thresholds
	rows = append(rows, label("roll")+" "+value(cur.Roll)+" "+frameL+
		chart.RenderSparklinePoints(roll, chartWidth, -180, 180, -360, 360, chartTick)+frameR)

	rows = append(rows, "")
	rows = append(rows, label("gestures")+" "+m.renderHitList(inner-labelW-1))
	rows = append(rows, dimS.Render(fmt.Sprintf("thresholds: below %.0f° then above %.0f° within %s, steps over %.0f°",
		m.cfg.LowPitch, m.cfg.HighPitch, m.cfg.Window, m.cfg.MinDelta)))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderHitList(width int) string {
	if len(m.hits) == 0 {
		return lipgloss.NewStyle().Foreground(colorDim).Render("none")
	}
	var parts []string
	used := 0
	for i, h := range m.hits {
		txt := m.samples[h].Time.Format("15:04:05")
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		if h == m.cursor {
			style = style.Foreground(colorCursor).Bold(true)
		}
		if used+len(txt)+1 > width-8 {
			parts = append(parts, lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf("+%d", len(m.hits)-i)))
			break
		}
		parts = append(parts, style.Render(txt))
		used += len(txt) + 1
	}
	return strings.Join(parts, " ")
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 10s") +
		dimS.Render("  n/N") + keyS.Render(":next/prev gesture") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":day")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}
