// Package report decouples the cache hierarchy from the files it writes
// to: per-level hit/miss-rate and image CSVs, and the indented call/return
// trace of every access. The engine depends only on the Trace interface
// and the system facade only on the Sink and Trace interfaces declared
// here; cmd/cachesim wires the concrete file-backed implementations.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/sarchlab/cachesim/cachelevel"
)

// ErrTraceUnderflow is raised when a Return call is made with no
// matching open Call frame.
var ErrTraceUnderflow = errors.New("trace indent underflow")

// Sink is the destination for per-level CSV reports.
type Sink interface {
	WriteRate(levelID uint32, arriveTime uint64, hits, misses uint64) error
	WriteImage(levelID uint32, arriveTime uint64, rows []cachelevel.ImageRow) error
}

// Trace is the destination for the indented call/return access trace.
type Trace interface {
	// Call emits the entry line for a read/write dispatched to location
	// (an "L{id}" string or "MEM") and increases the indent depth by one.
	Call(clock uint64, location, op string, decoded cachelevel.Address, address uint32)
	// Note emits an internal decision-point line at the current
	// (still-open) indent depth.
	Note(clock uint64, status string)
	// Return decreases the indent depth by one and emits the matching
	// close line at the new depth. Calling Return with no open frame is a
	// fatal invariant violation.
	Return(clock uint64, status string)
	// Close flushes and releases any underlying resource.
	Close() error
}

// FileSink writes hmr_l{id}_{arrive_time}.csv and img_l{id}_{arrive_time}.csv
// files to the current directory.
type FileSink struct{}

// NewFileSink returns a Sink backed by on-disk CSV files.
func NewFileSink() *FileSink { return &FileSink{} }

// WriteRate writes hmr_l{id}_{arrive_time}.csv.
func (FileSink) WriteRate(levelID uint32, arriveTime uint64, hits, misses uint64) error {
	name := fmt.Sprintf("hmr_l%d_%d.csv", levelID, arriveTime)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"HITS", "MISSES", "HIT_R", "MISS_R"}); err != nil {
		return fmt.Errorf("report: write %s: %w", name, err)
	}

	total := float64(hits + misses)
	hitRate := hitMissRate(float64(hits), total)
	missRate := hitMissRate(float64(misses), total)
	row := []string{
		strconv.FormatUint(hits, 10),
		strconv.FormatUint(misses, 10),
		formatRate(hitRate),
		formatRate(missRate),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("report: write %s: %w", name, err)
	}
	w.Flush()
	return w.Error()
}

func hitMissRate(count, total float64) float64 {
	return count / total // 0/0 correctly yields NaN rather than a division panic
}

func formatRate(r float64) string {
	if math.IsNaN(r) {
		return "NaN"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// WriteImage writes img_l{id}_{arrive_time}.csv.
func (FileSink) WriteImage(levelID uint32, arriveTime uint64, rows []cachelevel.ImageRow) error {
	name := fmt.Sprintf("img_l%d_%d.csv", levelID, arriveTime)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)

	header := []string{"B_IND"}
	if len(rows) > 0 {
		for c := range rows[0].Ways {
			header = append(header,
				fmt.Sprintf("VALID[%d]", c),
				fmt.Sprintf("DIRTY[%d]", c),
				fmt.Sprintf("TAG[%d]", c),
				fmt.Sprintf("LRU[%d]", c),
			)
		}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("report: write %s: %w", name, err)
	}

	for r, row := range rows {
		record := []string{fmt.Sprintf("B[%d]", r)}
		for _, way := range row.Ways {
			record = append(record,
				strconv.FormatBool(way.Valid),
				strconv.FormatBool(way.Dirty),
				strconv.FormatUint(uint64(way.Tag), 10),
				strconv.FormatUint(way.LastUse, 10),
			)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("report: write %s: %w", name, err)
		}
	}

	w.Flush()
	return w.Error()
}
