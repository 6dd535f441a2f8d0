package motion

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ── Line sources ─────────────────────────────────────────────────────

type lineSource struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	now     func() time.Time
}

// NewLineSource reads the IMU bridge line protocol from rc. Samples are
// stamped with the time the line was received.
func NewLineSource(rc io.ReadCloser) Source {
	return &lineSource{
		rc:      rc,
		scanner: bufio.NewScanner(rc),
		now:     time.Now,
	}
}

// OpenSerial opens the IMU bridge attached to the serial port at path.
func OpenSerial(path string, opts PortOptions) (Source, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewLineSource(port), nil
}

func (s *lineSource) Next() (Sample, error) {
	for s.scanner.Scan() {
		sample, err := ParseLine(s.scanner.Text(), s.now())
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			slog.Debug("motion: bad line", "err", err)
			continue
		}
		return sample, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Sample{}, err
	}
	return Sample{}, io.EOF
}

func (s *lineSource) Close() error {
	return s.rc.Close()
}

// ── Replay ───────────────────────────────────────────────────────────

type replaySource struct {
	samples []Sample
	speed   float64
	loop    bool
	sleep   func(time.Duration)

	mu     sync.Mutex
	idx    int
	laps   int
	closed bool
}

// NewReplaySource plays back recorded samples. Gaps between samples are
// slept through divided by speed; a speed of zero or less plays back as
// fast as possible. With loop set, playback restarts at the end. Sample
// times keep the recorded spacing and stay monotonic across laps.
func NewReplaySource(samples []Sample, speed float64, loop bool) Source {
	return &replaySource{
		samples: samples,
		speed:   speed,
		loop:    loop,
		sleep:   time.Sleep,
	}
}

func (r *replaySource) Next() (Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || len(r.samples) == 0 {
		return Sample{}, io.EOF
	}
	if r.idx >= len(r.samples) {
		if !r.loop {
			return Sample{}, io.EOF
		}
		r.idx = 0
		r.laps++
	}

	first := r.samples[0].Time
	last := r.samples[len(r.samples)-1].Time
	lap := last.Sub(first) + r.step()

	cur := r.samples[r.idx]
	if r.idx > 0 && r.speed > 0 {
		gap := cur.Time.Sub(r.samples[r.idx-1].Time)
		if gap > 0 {
			r.sleep(time.Duration(float64(gap) / r.speed))
		}
	}
	r.idx++

	cur.Time = cur.Time.Add(time.Duration(r.laps) * lap)
	return cur, nil
}

// step is the nominal spacing used to join one lap to the next.
func (r *replaySource) step() time.Duration {
	if len(r.samples) < 2 {
		return 100 * time.Millisecond
	}
	n := len(r.samples) - 1
	return r.samples[n].Time.Sub(r.samples[0].Time) / time.Duration(n)
}

func (r *replaySource) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// ── Simulator ────────────────────────────────────────────────────────

// gestureProfile is the pitch trajectory of one offering: lower the hands,
// then raise them past the forehead, then settle.
var gestureProfile = []float64{-10, -35, -55, -60, -20, 20, 45, 60, 40, 15}

type simSource struct {
	interval time.Duration
	period   time.Duration
	start    time.Time
	sleep    func(time.Duration)

	mu     sync.Mutex
	n      int
	closed bool
}

// NewSimSource generates a gently wobbling wrist that performs an offering
// gesture once every period. Samples are spaced interval apart.
func NewSimSource(interval, period time.Duration) Source {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &simSource{
		interval: interval,
		period:   period,
		start:    time.Now(),
		sleep:    time.Sleep,
	}
}

func (s *simSource) Next() (Sample, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Sample{}, io.EOF
	}
	n := s.n
	s.n++
	s.mu.Unlock()

	if n > 0 {
		s.sleep(s.interval)
	}

	elapsed := time.Duration(n) * s.interval
	secs := elapsed.Seconds()
	sample := Sample{
		Time:  s.start.Add(elapsed),
		Roll:  8 * math.Sin(secs*0.9),
		Pitch: 3 * math.Sin(secs*1.3),
		Yaw:   math.Mod(secs*5, 360),
	}

	if s.period > 0 {
		perSample := int(s.period / s.interval)
		if perSample > len(gestureProfile) {
			phase := n % perSample
			if off := phase - (perSample - len(gestureProfile)); off >= 0 {
				sample.Pitch = gestureProfile[off]
			}
		}
	}
	return sample, nil
}

func (s *simSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
