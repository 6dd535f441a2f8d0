package motion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrSkip marks a line that carries no sample (blank, comment or banner).
var ErrSkip = errors.New("no sample in line")

// ParseLine decodes one line of the IMU bridge protocol. Records are comma
// separated with a one-letter type prefix:
//
//	q,<w>,<x>,<y>,<z>        rotation vector quaternion
//	e,<roll>,<pitch>,<yaw>   euler angles in degrees
//	a,<ax>,<ay>,<az>         raw accelerometer, tilt only
//
// The sample is stamped with t.
func ParseLine(line string, t time.Time) (Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Sample{}, ErrSkip
	}

	fields := strings.Split(line, ",")
	kind := strings.ToLower(strings.TrimSpace(fields[0]))
	vals, err := parseFloats(fields[1:])
	if err != nil {
		return Sample{}, fmt.Errorf("record %q: %w", kind, err)
	}

	s := Sample{Time: t}
	switch kind {
	case "q":
		if len(vals) != 4 {
			return Sample{}, fmt.Errorf("quaternion record: want 4 values, got %d", len(vals))
		}
		s.Roll, s.Pitch, s.Yaw = QuaternionToEuler(vals[0], vals[1], vals[2], vals[3])
	case "e":
		if len(vals) != 3 {
			return Sample{}, fmt.Errorf("euler record: want 3 values, got %d", len(vals))
		}
		s.Roll, s.Pitch, s.Yaw = vals[0], vals[1], vals[2]
	case "a":
		if len(vals) != 3 {
			return Sample{}, fmt.Errorf("accel record: want 3 values, got %d", len(vals))
		}
		s.Roll, s.Pitch = TiltFromAccel(vals[0], vals[1], vals[2])
	default:
		if _, err := strconv.ParseFloat(kind, 64); err != nil {
			// firmware banners and status chatter
			return Sample{}, ErrSkip
		}
		return Sample{}, fmt.Errorf("record without type prefix: %q", line)
	}
	return s, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value %q", f)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// QuaternionToEuler converts a unit quaternion to roll, pitch and yaw in
// degrees. Pitch saturates at ±90 at gimbal lock.
func QuaternionToEuler(w, x, y, z float64) (roll, pitch, yaw float64) {
	sinrCosp := 2 * (w*x + y*z)
	cosrCosp := 1 - 2*(x*x+y*y)
	roll = math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (w*z + x*y)
	cosyCosp := 1 - 2*(y*y+z*z)
	yaw = math.Atan2(sinyCosp, cosyCosp)

	return degrees(roll), degrees(pitch), degrees(yaw)
}

// TiltFromAccel estimates roll and pitch in degrees from a gravity vector.
// Units do not matter, only the ratios between axes.
func TiltFromAccel(ax, ay, az float64) (roll, pitch float64) {
	roll = math.Atan2(ay, az)
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
	return degrees(roll), degrees(pitch)
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
