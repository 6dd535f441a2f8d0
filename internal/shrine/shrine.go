// Package shrine implements the live offering screen: it feeds motion
// samples through the gesture detector, runs the incense countdown and
// plays the celebratory overlay while it burns.
package shrine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/luki/incense/internal/button"
	"github.com/luki/incense/internal/chart"
	"github.com/luki/incense/internal/gesture"
	"github.com/luki/incense/internal/history"
	"github.com/luki/incense/internal/motion"
	"github.com/luki/incense/internal/overlay"
	"github.com/luki/incense/internal/session"
)

const (
	historySize   = 1200 // two minutes at 10 Hz
	frameInterval = 250 * time.Millisecond
	chartTick     = 5 * time.Second
	gaugeMin      = -90.0
	gaugeMax      = 90.0
	maxMarks      = 32
)

// Sensor is the view's handle on the motion manager.
type Sensor interface {
	Samples() <-chan motion.Sample
	Stats() motion.Stats
	SetPaused(bool)
	Paused() bool
	Err() error
}

// Recorder receives every sample shown on screen.
type Recorder interface {
	Write(motion.Sample) error
}

// Options configures the model.
type Options struct {
	Sensor     Sensor // nil when sensing could not start
	SensorErr  error
	SourceName string
	Gesture    gesture.Config
	Duration   time.Duration
	Player     overlay.Player
	Recorder   Recorder
	RecordDir  string
	Log        *slog.Logger
	Context    context.Context
}

// ── Messages ─────────────────────────────────────────────────────────

type sampleMsg motion.Sample

type sensorClosedMsg struct{}

type secondMsg time.Time

type frameMsg time.Time

type playerMsg struct{ err error }

// ButtonMsg is sent by hardware button listeners.
type ButtonMsg struct{ Action button.Action }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live offering screen.
type Model struct {
	opts     Options
	ctx      context.Context
	log      *slog.Logger
	detector *gesture.Detector
	session  *session.Session
	history  *history.Store
	player   overlay.Player

	sensing    bool
	err        error
	playerErr  error
	frame      int
	animating  bool
	marks      []time.Time
	lastSample motion.Sample
	width      int
	height     int
	startTime  time.Time
	quitting   bool
}

// New creates the initial model.
func New(opts Options) Model {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	player := opts.Player
	if player == nil {
		player = overlay.NopPlayer{}
	}

	m := Model{
		opts:      opts,
		ctx:       ctx,
		log:       log,
		detector:  gesture.New(opts.Gesture),
		session:   session.New(opts.Duration),
		history:   history.NewStore(historySize),
		player:    player,
		sensing:   opts.Sensor != nil,
		err:       opts.SensorErr,
		startTime: time.Now(),
	}
	if !m.sensing && m.err == nil {
		m.err = motion.ErrUnavailable
	}
	return m
}

// Session exposes the offering state, mainly for tests.
func (m Model) Session() *session.Session { return m.session }

// ── Commands ─────────────────────────────────────────────────────────

func secondCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return secondMsg(t)
	})
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitForSample(ch <-chan motion.Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return sensorClosedMsg{}
		}
		return sampleMsg(s)
	}
}

func (m Model) startPlayer() tea.Cmd {
	player, ctx := m.player, m.ctx
	return func() tea.Msg {
		return playerMsg{err: player.Start(ctx)}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{secondCmd()}
	if m.sensing {
		cmds = append(cmds, waitForSample(m.opts.Sensor.Samples()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.player.Stop()
			return m, tea.Quit
		case " ", "o", "enter":
			return m.offer(time.Now(), "key")
		case "x", "esc":
			m.extinguish("key")
		case "p":
			if m.sensing {
				paused := !m.opts.Sensor.Paused()
				m.opts.Sensor.SetPaused(paused)
				if !paused {
					// motion during the pause was never seen
					m.detector.Reset()
				}
			}
		}

	case ButtonMsg:
		switch msg.Action {
		case button.Offer:
			return m.offer(time.Now(), "button")
		case button.Extinguish:
			m.extinguish("button")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sampleMsg:
		s := motion.Sample(msg)
		m.lastSample = s
		m.history.Record("pitch", s.Pitch, s.Time)
		m.history.Record("roll", s.Roll, s.Time)
		if m.opts.Recorder != nil {
			if err := m.opts.Recorder.Write(s); err != nil {
				m.err = fmt.Errorf("record: %w", err)
			}
		}

		next := waitForSample(m.opts.Sensor.Samples())
		if m.detector.Process(s) {
			m.mark(s.Time)
			m.log.Info("incense motion detected", "pitch", s.Pitch, "at", s.Time)
			model, cmd := m.offer(time.Now(), "gesture")
			return model, tea.Batch(next, cmd)
		}
		return m, next

	case sensorClosedMsg:
		m.sensing = false
		m.err = m.opts.Sensor.Err()
		if m.err == nil {
			m.err = errors.New("motion source ended")
		}
		m.log.Warn("motion sensing stopped", "err", m.err)

	case secondMsg:
		if m.session.Tick() {
			m.player.Stop()
			m.log.Info("offering finished", "session", m.session.ID())
		}
		return m, secondCmd()

	case frameMsg:
		if !m.session.Burning() {
			m.animating = false
			m.frame = 0
			return m, nil
		}
		m.frame++
		return m, frameCmd()

	case playerMsg:
		m.playerErr = msg.err
		if msg.err != nil && !errors.Is(msg.err, overlay.ErrNoPlayer) {
			m.log.Warn("overlay player failed", "err", msg.err)
		}
		// extinguished before the player came up
		if !m.session.Burning() {
			m.player.Stop()
		}
	}

	return m, nil
}

func (m Model) offer(now time.Time, trigger string) (tea.Model, tea.Cmd) {
	if !m.session.Start(now) {
		m.log.Debug("offering ignored, incense already burning", "trigger", trigger)
		return m, nil
	}
	m.log.Info("offering started",
		"session", m.session.ID(),
		"trigger", trigger,
		"duration", m.session.Duration())

	cmds := []tea.Cmd{m.startPlayer()}
	if !m.animating {
		m.animating = true
		cmds = append(cmds, frameCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) extinguish(trigger string) {
	if m.session.Stop() {
		m.player.Stop()
		m.log.Info("offering extinguished", "session", m.session.ID(), "trigger", trigger)
	}
}

func (m *Model) mark(t time.Time) {
	m.marks = append(m.marks, t)
	if len(m.marks) > maxMarks {
		m.marks = m.marks[len(m.marks)-maxMarks:]
	}
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("52")
	colorTitleFg  = lipgloss.Color("214")
	colorBorder   = lipgloss.Color("94")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorFlame    = lipgloss.Color("208")
	colorAsh      = lipgloss.Color("243")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := max(m.width-2, 40)

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" %v", m.err)))
	}

	sections = append(sections, m.renderAltar(contentWidth))
	sections = append(sections, m.renderMotion(contentWidth))
	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visible := max(m.height, 5)
	if len(lines) > visible {
		lines = lines[:visible]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("INCENSE")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	var parts []string
	if m.opts.SourceName != "" {
		parts = append(parts, dimS.Render(m.opts.SourceName))
	}
	parts = append(parts, dimS.Render("up "+fmtDuration(time.Since(m.startTime))))

	if m.sensing && m.opts.Sensor.Paused() {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render("PAUSED"))
	}
	if m.opts.Recorder != nil {
		rec := lipgloss.NewStyle().Foreground(colorCrit).Render("REC")
		if m.opts.RecordDir != "" {
			rec += dimS.Render(" " + m.opts.RecordDir)
		}
		parts = append(parts, rec)
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(parts, sep)

	gap := max(width-lipgloss.Width(logo)-lipgloss.Width(right)-4, 1)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderAltar(width int) string {
	burning := m.session.Burning()

	artColor := colorAsh
	art := overlay.Idle
	if burning {
		artColor = colorFlame
		art = overlay.Frame(m.frame)
	}
	artBlock := lipgloss.NewStyle().
		Foreground(artColor).
		Render(strings.Join(art, "\n"))

	badge := lipgloss.NewStyle().Foreground(colorAsh).Render("○ idle")
	if burning {
		badge = lipgloss.NewStyle().Foreground(colorFlame).Bold(true).Render("● burning")
	}

	countdown := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorLabel).
		Render(session.FormatRemaining(m.session.Remaining()))

	statusColor := colorAsh
	if burning {
		statusColor = colorFlame
	}
	status := lipgloss.NewStyle().
		Foreground(statusColor).
		Render(session.StatusLine(m.session.State(), m.sensing))

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	info := []string{badge, "", countdown, status, ""}
	if burning {
		info = append(info,
			progressBar(m.session.Progress(), 24),
			dimS.Render("lit ")+valS.Render(m.session.StartedAt().Format("15:04:05")))
	}
	if last, ok := m.session.LastOffering(); ok {
		info = append(info,
			dimS.Render("offerings ")+valS.Render(humanize.Comma(int64(m.session.Offerings()))),
			dimS.Render("last ")+valS.Render(humanize.Time(last)))
	}
	if p, ok := m.player.(playing); ok && burning && p.Playing() {
		info = append(info, dimS.Render("video overlay playing"))
	}
	if m.playerErr != nil && !errors.Is(m.playerErr, overlay.ErrNoPlayer) {
		info = append(info, lipgloss.NewStyle().Foreground(colorCrit).Render("video overlay failed"))
	}

	infoBlock := lipgloss.NewStyle().
		PaddingLeft(4).
		Render(lipgloss.JoinVertical(lipgloss.Left, info...))

	body := lipgloss.JoinHorizontal(lipgloss.Top, artBlock, infoBlock)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(body)
}

func (m Model) renderMotion(width int) string {
	g := m.detector.Config()
	inner := max(width-4, 30)
	chartWidth := min(max(inner-24, 15), 160)
	labelW := 8

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	labelS := lipgloss.NewStyle().Foreground(colorLabel).Width(labelW)
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string

	pitch := m.detector.LastPitch()
	gauge := chart.RenderGauge(pitch, gaugeMin, gaugeMax, g.LowPitch, g.HighPitch, chartWidth)
	attitude := labelS.Render("attitude") + " " + frameL + gauge + frameR + " " + chart.RenderAngle(pitch, g.LowPitch, g.HighPitch)
	if roll := m.history.Get("roll"); roll != nil {
		attitude += dimS.Render(" roll ") + valS.Render(fmt.Sprintf("%+6.1f°", roll.Last()))
	}
	rows = append(rows, attitude)

	pad := strings.Repeat(" ", labelW+2)
	if buf := m.history.Get("pitch"); buf != nil {
		pts := buf.LastNPoints(chartWidth)
		spark := chart.RenderSparklinePoints(pts, chartWidth, gaugeMin, gaugeMax, g.LowPitch, g.HighPitch, chartTick)
		stats := dimS.Render(" lo") + valS.Render(fmt.Sprintf("%6.1f", buf.Min)) +
			dimS.Render(" pk") + valS.Render(fmt.Sprintf("%6.1f", buf.Peak)) +
			dimS.Render(" avg") + valS.Render(fmt.Sprintf("%6.1f", buf.Avg()))
		rows = append(rows, labelS.Render("pitch")+" "+frameL+spark+frameR+stats)

		if marks := chart.RenderMarkers(pts, chartWidth, m.marks); marks != "" {
			rows = append(rows, pad+marks)
		}
		if tl := chart.RenderTimeline(pts, chartWidth, chartTick); strings.TrimSpace(tl) != "" {
			rows = append(rows, pad+tl)
		}
	} else if m.sensing {
		rows = append(rows, dimS.Render("Waiting for motion data..."))
	}

	armed := dimS.Render("waiting for hands to lower")
	if start, ok := m.detector.Armed(); ok {
		left := g.Window - m.lastSample.Time.Sub(start)
		armed = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).
			Render(fmt.Sprintf("armed, raise within %.1fs", max(left.Seconds(), 0)))
		if low, ok := lowestSince(m.history.Get("pitch"), start); ok {
			armed += dimS.Render(fmt.Sprintf(" lowest %+.1f°", low))
		}
	}
	var counters string
	if m.sensing {
		st := m.opts.Sensor.Stats()
		counters = dimS.Render("  samples ") + valS.Render(humanize.Comma(st.Received))
		if st.Dropped > 0 {
			counters += dimS.Render(" dropped ") + lipgloss.NewStyle().Foreground(colorCrit).Render(humanize.Comma(st.Dropped))
		}
	}
	rows = append(rows, labelS.Render("gesture")+" "+armed+counters)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	low := lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render("██")
	high := lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("██")
	legend := low + dimS.Render(" lowered ") + high + dimS.Render(" raised ")

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  space") + keyS.Render(":offer") +
		dimS.Render("  x") + keyS.Render(":extinguish") +
		dimS.Render("  p") + keyS.Render(":pause")

	gap := max(width-lipgloss.Width(legend)-lipgloss.Width(keys)-4, 1)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

// playing is implemented by players that can report whether they run.
type playing interface {
	Playing() bool
}

// lowestSince returns the lowest pitch recorded since the gesture armed.
func lowestSince(buf *history.Buffer, start time.Time) (float64, bool) {
	if buf == nil {
		return 0, false
	}
	pts := buf.Since(start)
	if len(pts) == 0 {
		return 0, false
	}
	low := pts[0].Value
	for _, p := range pts[1:] {
		low = min(low, p.Value)
	}
	return low, true
}

func progressBar(frac float64, width int) string {
	filled := int(frac * float64(width))
	filled = max(0, min(width, filled))
	return lipgloss.NewStyle().Foreground(colorFlame).Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat("━", width-filled))
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mins, s)
	}
	return fmt.Sprintf("%dm%02ds", mins, s)
}
