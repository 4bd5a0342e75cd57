// Package telemetry writes per-interval world and tick-time statistics to CSV.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WorldStats is one CSV row.
type WorldStats struct {
	Time       string  `csv:"time"`
	Tick       uint64  `csv:"tick"`
	Players    int     `csv:"players"`
	Spectators int     `csv:"spectators"`
	Food       int     `csv:"food"`
	MassFood   int     `csv:"mass_food"`
	Viruses    int     `csv:"viruses"`
	Portals    int     `csv:"portals"`
	WorldMass  float64 `csv:"world_mass"`
	TickMeanMs float64 `csv:"tick_mean_ms"`
	TickStdMs  float64 `csv:"tick_std_ms"`
	TickMaxMs  float64 `csv:"tick_max_ms"`
	Ticks      int     `csv:"ticks"`
}

// Recorder accumulates tick durations and appends a row per Flush.
// A nil *Recorder records nothing.
type Recorder struct {
	file          *os.File
	headerWritten bool
	samples       []float64
}

// NewRecorder creates dir and opens telemetry.csv inside it. An empty dir
// disables output and returns nil.
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	return &Recorder{file: f, samples: make([]float64, 0, 128)}, nil
}

// ObserveTick records how long one physics tick took.
func (r *Recorder) ObserveTick(d time.Duration) {
	if r == nil {
		return
	}
	r.samples = append(r.samples, float64(d)/float64(time.Millisecond))
}

// Summary returns mean, standard deviation and maximum of the pending tick
// durations in milliseconds.
func (r *Recorder) Summary() (mean, std, max float64) {
	if r == nil || len(r.samples) == 0 {
		return 0, 0, 0
	}
	if len(r.samples) == 1 {
		return r.samples[0], 0, r.samples[0]
	}
	mean, std = stat.MeanStdDev(r.samples, nil)
	return mean, std, floats.Max(r.samples)
}

// Flush fills in the tick statistics, writes s and starts a new interval.
func (r *Recorder) Flush(s WorldStats) error {
	if r == nil {
		return nil
	}
	s.TickMeanMs, s.TickStdMs, s.TickMaxMs = r.Summary()
	s.Ticks = len(r.samples)
	r.samples = r.samples[:0]

	records := []WorldStats{s}
	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.file); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.file); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Close closes the CSV file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.file.Close()
}
