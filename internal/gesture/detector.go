// Package gesture recognises the incense-offering motion: the hands drop
// below a low pitch and are raised above a high pitch within a short
// window. Each completed motion is reported exactly once.
package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/luki/incense/internal/motion"
)

// Config holds the detection thresholds. Angles are in degrees.
type Config struct {
	MinDelta  float64       `mapstructure:"min_delta" toml:"min_delta"`   // minimum pitch change between samples
	LowPitch  float64       `mapstructure:"low_pitch" toml:"low_pitch"`   // arms the gesture when crossed downwards
	HighPitch float64       `mapstructure:"high_pitch" toml:"high_pitch"` // completes the gesture when crossed upwards
	Window    time.Duration `mapstructure:"window" toml:"window"`         // max time from arming to completion
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinDelta:  5,
		LowPitch:  -30,
		HighPitch: 30,
		Window:    2 * time.Second,
	}
}

// Validate reports whether the thresholds describe a usable detector.
func (c Config) Validate() error {
	var errs []error
	if c.MinDelta < 0 {
		errs = append(errs, fmt.Errorf("min delta %.1f must not be negative", c.MinDelta))
	}
	if c.LowPitch >= c.HighPitch {
		errs = append(errs, fmt.Errorf("low pitch %.1f must be below high pitch %.1f", c.LowPitch, c.HighPitch))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window %s must be positive", c.Window))
	}
	return errors.Join(errs...)
}

// Detector is the two-threshold crossing state machine. Only samples that
// move the pitch by more than MinDelta since the previous sample can arm or
// complete a gesture. Sample timestamps are the clock, so the same input
// always produces the same detections.
//
// A Detector is not safe for concurrent use.
type Detector struct {
	cfg       Config
	lastPitch float64
	start     time.Time
	armed     bool
}

// New creates a detector with the given thresholds.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Config returns the detector thresholds.
func (d *Detector) Config() Config {
	return d.cfg
}

// Process feeds one sample and reports whether it completed a gesture.
// Samples with a non-finite pitch are ignored.
func (d *Detector) Process(s motion.Sample) bool {
	pitch := s.Pitch
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return false
	}
	defer func() { d.lastPitch = pitch }()

	// An arming that was never completed expires with its window.
	if d.armed && s.Time.Sub(d.start) >= d.cfg.Window {
		d.armed = false
	}

	if math.Abs(pitch-d.lastPitch) <= d.cfg.MinDelta {
		return false
	}

	switch {
	case !d.armed && pitch < d.cfg.LowPitch:
		d.armed = true
		d.start = s.Time
	case d.armed && pitch > d.cfg.HighPitch && s.Time.Sub(d.start) < d.cfg.Window:
		d.armed = false
		return true
	}
	return false
}

// Armed returns the time the current gesture was armed, if any.
func (d *Detector) Armed() (time.Time, bool) {
	return d.start, d.armed
}

// LastPitch returns the pitch of the most recent sample.
func (d *Detector) LastPitch() float64 {
	return d.lastPitch
}

// Reset forgets the previous pitch and any armed gesture.
func (d *Detector) Reset() {
	d.lastPitch = 0
	d.armed = false
	d.start = time.Time{}
}
