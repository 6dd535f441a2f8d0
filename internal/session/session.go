// Package session tracks the offering lifecycle: idle until a gesture is
// detected, then burning for a fixed duration with a one-second countdown.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long the incense burns after an offering.
const DefaultDuration = 60 * time.Second

// State is the offering state.
type State int

const (
	Idle State = iota
	Burning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Burning:
		return "burning"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status lines shown under the countdown.
const (
	StatusReady       = "Ready to offer incense"
	StatusPerform     = "Perform the offering gesture"
	StatusUnavailable = "Motion sensing unavailable"
	StatusBurning     = "Incense is burning"
)

// Session is a single-user offering state machine. Remaining counts whole
// seconds and is driven by Tick, one call per second.
type Session struct {
	duration time.Duration

	state     State
	id        string
	remaining int
	startedAt time.Time
	offerings int
	lastAt    time.Time
}

// New creates an idle session whose offerings last d.
func New(d time.Duration) *Session {
	if d <= 0 {
		d = DefaultDuration
	}
	return &Session{
		duration:  d,
		remaining: seconds(d),
	}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// Start begins an offering at now. It returns false if one is already
// burning; overlapping offerings are ignored.
func (s *Session) Start(now time.Time) bool {
	if s.state == Burning {
		return false
	}
	s.state = Burning
	s.id = uuid.NewString()
	s.remaining = seconds(s.duration)
	s.startedAt = now
	s.offerings++
	s.lastAt = now
	return true
}

// Tick advances the countdown by one second. The countdown shows 00:00 for
// one tick before the session returns to idle. It reports whether the
// offering ended on this tick.
func (s *Session) Tick() bool {
	if s.state != Burning {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
		return false
	}
	s.stop()
	return true
}

// Stop extinguishes the incense early. It reports whether anything was
// burning.
func (s *Session) Stop() bool {
	if s.state != Burning {
		return false
	}
	s.stop()
	return true
}

func (s *Session) stop() {
	s.state = Idle
	s.remaining = seconds(s.duration)
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Burning reports whether an offering is in progress.
func (s *Session) Burning() bool { return s.state == Burning }

// ID returns the identifier of the current or most recent offering.
func (s *Session) ID() string { return s.id }

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int { return s.remaining }

// Duration returns the configured burn time.
func (s *Session) Duration() time.Duration { return s.duration }

// StartedAt returns when the current or last offering began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Offerings returns how many offerings were made since the process began.
func (s *Session) Offerings() int { return s.offerings }

// LastOffering returns the time of the most recent offering.
func (s *Session) LastOffering() (time.Time, bool) {
	return s.lastAt, s.offerings > 0
}

// Progress returns the fraction of the burn that has elapsed, 0 when idle.
func (s *Session) Progress() float64 {
	total := seconds(s.duration)
	if s.state != Burning || total == 0 {
		return 0
	}
	return float64(total-s.remaining) / float64(total)
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// StatusLine picks the status text for the current situation.
func StatusLine(state State, sensing bool) string {
	switch {
	case state == Burning:
		return StatusBurning
	case !sensing:
		return StatusUnavailable
	default:
		return StatusPerform
	}
}
