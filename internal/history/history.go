// Package history keeps recent attitude angles in fixed-size ring buffers
// with per-series min/peak/avg statistics.
package history

import (
	"math"
	"time"
)

// Point is a single angle observation.
type Point struct {
	Value float64
	Time  time.Time
}

// Buffer stores the most recent points of one series.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push appends a point, evicting the oldest when full. Min and Peak cover
// everything ever pushed, not just what is still buffered.
func (b *Buffer) Push(v float64, t time.Time) {
	p := Point{Value: v, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if v < b.Min {
		b.Min = v
	}
	if v > b.Peak {
		b.Peak = v
	}
}

// Last returns the most recent value, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].Value
}

// Avg returns the mean of the buffered values.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Value
	}
	return sum / float64(len(b.Points))
}

// LastNPoints returns a copy of the last n points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := max(len(b.Points)-n, 0)
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}

// Since returns the points recorded at or after t.
func (b *Buffer) Since(t time.Time) []Point {
	for i, p := range b.Points {
		if !p.Time.Before(t) {
			out := make([]Point, len(b.Points)-i)
			copy(out, b.Points[i:])
			return out
		}
	}
	return nil
}

// Store manages one buffer per series key.
type Store struct {
	Data     map[string]*Buffer
	Capacity int
}

// NewStore creates a store with the given per-series capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[string]*Buffer),
		Capacity: capacity,
	}
}

// Record adds a value to the named series.
func (s *Store) Record(key string, v float64, t time.Time) {
	b, ok := s.Data[key]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[key] = b
	}
	b.Push(v, t)
}

// Get returns the buffer for a series, or nil.
func (s *Store) Get(key string) *Buffer {
	return s.Data[key]
}
