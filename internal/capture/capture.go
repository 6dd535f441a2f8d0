// Package capture records raw motion samples to daily CSV files so that a
// session can be replayed or inspected later. Files are named
// YYYY-MM-DD.csv inside the data directory.
package capture

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/luki/incense/internal/motion"
)

const (
	dirName    = ".incense-data"
	timeLayout = "2006-01-02T15:04:05.000"
	fileLayout = "2006-01-02"
)

var header = []string{"time", "roll", "pitch", "yaw"}

// Writer appends samples to the capture file for the sample's day.
type Writer struct {
	dir     string
	current *os.File
	writer  *csv.Writer
	curDate string
	pending int
}

// DefaultDir returns ~/.incense-data.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// NewWriter creates a capture writer, creating dir if needed. An empty dir
// selects DefaultDir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the directory the writer records into.
func (w *Writer) Dir() string { return w.dir }

// Write appends one sample. Rows are buffered and flushed every flushEvery
// samples, on day rollover and on Close.
func (w *Writer) Write(s motion.Sample) error {
	dateStr := s.Time.Format(fileLayout)

	if w.curDate != dateStr || w.current == nil {
		if err := w.Close(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, dateStr+".csv")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w.current = f
		w.writer = csv.NewWriter(f)
		w.curDate = dateStr

		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			if err := w.writer.Write(header); err != nil {
				return err
			}
		}
	}

	if err := w.writer.Write([]string{
		s.Time.Format(timeLayout),
		strconv.FormatFloat(s.Roll, 'f', 2, 64),
		strconv.FormatFloat(s.Pitch, 'f', 2, 64),
		strconv.FormatFloat(s.Yaw, 'f', 2, 64),
	}); err != nil {
		return err
	}

	w.pending++
	if w.pending >= flushEvery {
		return w.Flush()
	}
	return nil
}

// flushEvery is about one second of samples at 10 Hz.
const flushEvery = 10

// Flush writes buffered rows to disk.
func (w *Writer) Flush() error {
	if w.writer == nil {
		return nil
	}
	w.pending = 0
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.current != nil {
		if cerr := w.current.Close(); err == nil {
			err = cerr
		}
		w.current = nil
		w.writer = nil
	}
	return err
}

// ListDays returns the days with a capture in dir, newest first.
func ListDays(dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		day := strings.TrimSuffix(name, ".csv")
		if _, err := time.Parse(fileLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// LoadDay reads the capture for one day from dir.
func LoadDay(dir, day string) ([]motion.Sample, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	return LoadFile(filepath.Join(dir, day+".csv"))
}

// LoadFile reads all samples from a capture file. Malformed rows are
// skipped.
func LoadFile(path string) ([]motion.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var samples []motion.Sample
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		if len(row) < len(header) {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}
		roll, err1 := strconv.ParseFloat(row[1], 64)
		pitch, err2 := strconv.ParseFloat(row[2], 64)
		yaw, err3 := strconv.ParseFloat(row[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if !finite(roll, pitch, yaw) {
			continue
		}

		samples = append(samples, motion.Sample{Time: t, Roll: roll, Pitch: pitch, Yaw: yaw})
	}

	return samples, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
