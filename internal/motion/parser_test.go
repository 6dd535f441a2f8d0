package motion

import (
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBridgeOutput = `# bno08x bridge v0.3
ready
e,1.5,-42.0,180.0
q,0.9238795,0,-0.3826834,0

a,0,0,1
e,bad,0,0
e,0,nan,0
q,1,0,0
`

func TestParseLine(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	s, err := ParseLine("e,1.5,-42.0,180.0", now)
	require.NoError(t, err)
	assert.Equal(t, now, s.Time)
	assert.Equal(t, 1.5, s.Roll)
	assert.Equal(t, -42.0, s.Pitch)
	assert.Equal(t, 180.0, s.Yaw)

	// 45 degree rotation about -Y: wrist tipped down.
	s, err = ParseLine("q,0.9238795,0,-0.3826834,0", now)
	require.NoError(t, err)
	assert.InDelta(t, -45, s.Pitch, 1e-3)
	assert.InDelta(t, 0, s.Roll, 1e-3)

	s, err = ParseLine("A, 0, 0, 9.81", now)
	require.NoError(t, err)
	assert.InDelta(t, 0, s.Pitch, 1e-9)

	for _, line := range []string{"", "   ", "# comment", "ready"} {
		_, err := ParseLine(line, now)
		assert.ErrorIs(t, err, ErrSkip, "line %q", line)
	}

	for _, line := range []string{"e,bad,0,0", "q,1,0,0", "a,1", "1.0,2.0,3.0", "e,0,nan,0", "e,0,inf,0", "q,NaN,0,0,0", "a,0,-Inf,9.81"} {
		_, err := ParseLine(line, now)
		assert.Error(t, err, "line %q", line)
		assert.NotErrorIs(t, err, ErrSkip, "line %q", line)
	}
}

func TestQuaternionToEuler(t *testing.T) {
	roll, pitch, yaw := QuaternionToEuler(1, 0, 0, 0)
	assert.InDelta(t, 0, roll, 1e-9)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 0, yaw, 1e-9)

	// gimbal lock saturates instead of returning NaN
	h := math.Sqrt2 / 2
	_, pitch, _ = QuaternionToEuler(h, 0, h+1e-6, 0)
	assert.InDelta(t, 90, pitch, 1e-9)
}

func TestTiltFromAccel(t *testing.T) {
	_, pitch := TiltFromAccel(-1, 0, 0)
	assert.InDelta(t, 90, pitch, 1e-9)

	roll, _ := TiltFromAccel(0, 1, 1)
	assert.InDelta(t, 45, roll, 1e-9)
}

func TestLineSource(t *testing.T) {
	src := NewLineSource(io.NopCloser(strings.NewReader(testBridgeOutput)))

	var pitches []float64
	for {
		s, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		pitches = append(pitches, s.Pitch)
	}

	require.Len(t, pitches, 3)
	assert.InDelta(t, -42, pitches[0], 1e-9)
	assert.InDelta(t, -45, pitches[1], 1e-3)
	assert.InDelta(t, 0, pitches[2], 1e-9)
	assert.NoError(t, src.Close())
}

func TestPortOptionsNormalize(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}, opts)

	opts, err = PortOptions{BaudRate: 9600, Parity: "even", StopBits: 2}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "E", opts.Parity)

	_, err = PortOptions{DataBits: 9}.Normalize()
	assert.Error(t, err)
	_, err = PortOptions{StopBits: 3}.Normalize()
	assert.Error(t, err)
	_, err = PortOptions{Parity: "mark"}.Normalize()
	assert.Error(t, err)

	mode, err := PortOptions{StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
}
