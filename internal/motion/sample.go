// Package motion provides device orientation samples and the sources that
// produce them: a serial-attached IMU bridge, recorded captures and a
// built-in simulator.
package motion

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when no motion source can be opened.
var ErrUnavailable = errors.New("motion sensing unavailable")

// Sample is a single device attitude reading. Angles are in degrees.
type Sample struct {
	Time  time.Time
	Roll  float64 // rotation around X
	Pitch float64 // rotation around Y, positive when the wrist tips up
	Yaw   float64 // rotation around Z
}

// Source produces orientation samples. Next blocks until a sample is
// available; Close unblocks any pending Next.
type Source interface {
	Next() (Sample, error)
	Close() error
}
