// Package system implements the Config/Build facade: it accepts the
// configuration and task-producing instruction-file commands, enforces
// their temporal ready-gates, constructs the cache hierarchy, and then
// switches to run mode and drives the scheduler.
package system

import (
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/cachelevel"
	"github.com/sarchlab/cachesim/engine"
	"github.com/sarchlab/cachesim/hierarchy"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/scheduler"
	"github.com/sarchlab/cachesim/simerr"
)

// Policy mirrors the `con` instruction's policy_num argument (1=WBWA,
// 2=WTNWA).
type Policy = engine.Policy

const (
	WBWA  = engine.WBWA
	WTNWA = engine.WTNWA
)

type levelBuild struct {
	dimensioned bool
	latencySet  bool
	initialized bool
	cfg         cachelevel.Config
}

// System is the Build/Init/Run state machine: configuration commands
// accumulate per-level readiness until every ready-gate is satisfied,
// at which point init_system builds the hierarchy and switches into
// run mode. It implements scheduler.Dispatcher once initialized.
type System struct {
	Verbose bool

	configSet        bool
	memoryLatencySet bool
	ready            bool // true once init_system has switched to run mode

	cacheCount    uint32
	blockSize     uint32
	policy        Policy
	memoryLatency uint64

	levels []levelBuild
	built  []*cachelevel.Level

	sched *scheduler.Scheduler
	sink  report.Sink
	trace report.Trace
	eng   *engine.Engine
	hier  *hierarchy.Hierarchy
}

// New returns a System that writes reports to sink and its access trace
// to trace.
func New(sink report.Sink, trace report.Trace) *System {
	return &System{
		sched: scheduler.New(),
		sink:  sink,
		trace: trace,
	}
}

func (s *System) echo(format string, args ...any) {
	if s.Verbose {
		fmt.Fprintf(os.Stdout, format+"\n", args...)
	}
}

// SetConfig handles `con cache_count block_size policy_num`. It must be
// the first command and must not be called twice.
func (s *System) SetConfig(cacheCount, blockSize, policyNum uint32) {
	if s.configSet {
		simerr.Raise("con called more than once")
	}
	if s.ready {
		simerr.Raise("con called after init_system")
	}
	if cacheCount < 1 {
		simerr.Raise("con requires at least 1 cache level, got %d", cacheCount)
	}
	if policyNum != 1 && policyNum != 2 {
		simerr.Raise("con: unrecognized policy number %d", policyNum)
	}

	s.cacheCount = cacheCount
	s.blockSize = blockSize
	if policyNum == 1 {
		s.policy = WBWA
	} else {
		s.policy = WTNWA
	}
	s.levels = make([]levelBuild, cacheCount)
	s.configSet = true

	s.echo("con %-10d%-10d%-10d", cacheCount, blockSize, policyNum)
}

// ErrOutOfRange re-exports hierarchy.ErrOutOfRange for callers that only
// import system.
var ErrOutOfRange = hierarchy.ErrOutOfRange

func (s *System) levelIndex(level uint32) (int, error) {
	if level < 1 || level > s.cacheCount {
		return 0, fmt.Errorf("cache level %d: %w", level, ErrOutOfRange)
	}
	return int(level - 1), nil
}

// SetCacheDimension handles `scd cache_level total_size set_assoc`.
func (s *System) SetCacheDimension(level, totalSize, setAssoc uint32) error {
	if !s.configSet {
		simerr.Raise("scd called before con")
	}

	idx, err := s.levelIndex(level)
	if err != nil {
		return err
	}
	if s.levels[idx].initialized {
		simerr.Raise("scd called after inc for level %d", level)
	}

	s.levels[idx].cfg = cachelevel.Config{
		ID:        level,
		BlockSize: s.blockSize,
		SetAssoc:  setAssoc,
		TotalSize: totalSize,
	}
	s.levels[idx].dimensioned = true

	s.echo("scd %-10d%-10d%-10d", level, totalSize, setAssoc)
	return nil
}

// SetCacheLatency handles `scl cache_level latency`.
func (s *System) SetCacheLatency(level uint32, latency uint64) error {
	if !s.configSet {
		simerr.Raise("scl called before con")
	}

	idx, err := s.levelIndex(level)
	if err != nil {
		return err
	}
	if s.levels[idx].initialized {
		simerr.Raise("scl called after inc for level %d", level)
	}

	s.levels[idx].cfg.Latency = latency
	s.levels[idx].latencySet = true

	s.echo("scl %-10d%-10d", level, latency)
	return nil
}

// SetMemoryLatency handles `sml latency`.
func (s *System) SetMemoryLatency(latency uint64) {
	if !s.configSet {
		simerr.Raise("sml called before con")
	}
	s.memoryLatency = latency
	s.memoryLatencySet = true

	s.echo("sml %-10d", latency)
}

// InitCache handles `inc cache_level`: it builds the level's DataBlock
// array once it has been dimensioned and given a latency.
func (s *System) InitCache(level uint32) error {
	if !s.configSet {
		simerr.Raise("inc called before con")
	}

	idx, err := s.levelIndex(level)
	if err != nil {
		return err
	}
	lb := &s.levels[idx]
	if !lb.dimensioned {
		simerr.Raise("inc called before scd for level %d", level)
	}
	if !lb.latencySet {
		simerr.Raise("inc called before scl for level %d", level)
	}

	if s.built == nil {
		s.built = make([]*cachelevel.Level, s.cacheCount)
	}
	s.built[idx] = cachelevel.New(lb.cfg)
	lb.initialized = true

	s.echo("inc %-10d", level)
	return nil
}

// TaskRead handles `tre address arrive_time`.
func (s *System) TaskRead(address uint32, arriveTime uint64) {
	s.sched.Enqueue(scheduler.Task{Kind: scheduler.KindRead, Address: address, ArriveTime: arriveTime})
}

// TaskWrite handles `twr address arrive_time`.
func (s *System) TaskWrite(address uint32, arriveTime uint64) {
	s.sched.Enqueue(scheduler.Task{Kind: scheduler.KindWrite, Address: address, ArriveTime: arriveTime})
}

// TaskReportRate handles `pcr cache_level arrive_time`.
func (s *System) TaskReportRate(level uint32, arriveTime uint64) {
	s.sched.Enqueue(scheduler.Task{Kind: scheduler.KindReportRate, Level: level, ArriveTime: arriveTime})
}

// TaskReportImage handles `pci cache_level arrive_time`.
func (s *System) TaskReportImage(level uint32, arriveTime uint64) {
	s.sched.Enqueue(scheduler.Task{Kind: scheduler.KindReportImage, Level: level, ArriveTime: arriveTime})
}

// Ready reports whether every level has been dimensioned, given a
// latency, and initialized, and memory latency has been set — the
// precondition for InitSystem.
func (s *System) Ready() bool {
	if !s.configSet || !s.memoryLatencySet {
		return false
	}
	for _, lb := range s.levels {
		if !lb.dimensioned || !lb.latencySet || !lb.initialized {
			return false
		}
	}
	return true
}

// InitSystem handles `ins`: "initialize and run". It validates every
// ready-gate, builds the Hierarchy and Engine, switches the facade into
// run mode, and drives the scheduler to completion.
func (s *System) InitSystem() {
	if !s.Ready() {
		simerr.Raise("init_system called before every level was configured and memory latency was set")
	}

	s.hier = hierarchy.New(s.built, s.memoryLatency)
	s.eng = engine.New(s.hier, s.policy, s.trace)
	s.ready = true

	s.sched.Run(s)
}

// Ran reports whether init_system has already run, so a caller can tell
// a well-formed file (that reached `ins`) apart from one that halted
// before ever configuring the system.
func (s *System) Ran() bool {
	return s.ready
}

// DispatchRead implements scheduler.Dispatcher.
func (s *System) DispatchRead(address uint32, clock uint64) uint64 {
	return s.eng.Read(s.hier.Top(), address, clock)
}

// DispatchWrite implements scheduler.Dispatcher.
func (s *System) DispatchWrite(address uint32, clock uint64) uint64 {
	return s.eng.Write(s.hier.Top(), address, clock)
}

// DispatchReportRate implements scheduler.Dispatcher. An out-of-range
// level is reported and skipped rather than treated as fatal.
func (s *System) DispatchReportRate(level uint32, arriveTime uint64) {
	l, err := s.hier.Level(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: pcr: %v\n", err)
		return
	}
	hits, misses := l.HitMissCounts()
	if err := s.sink.WriteRate(level, arriveTime, hits, misses); err != nil {
		fmt.Fprintf(os.Stderr, "error: pcr: %v\n", err)
	}
}

// DispatchReportImage implements scheduler.Dispatcher.
func (s *System) DispatchReportImage(level uint32, arriveTime uint64) {
	l, err := s.hier.Level(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: pci: %v\n", err)
		return
	}
	if err := s.sink.WriteImage(level, arriveTime, l.Image()); err != nil {
		fmt.Fprintf(os.Stderr, "error: pci: %v\n", err)
	}
}

// DispatchHalt implements scheduler.Dispatcher.
func (s *System) DispatchHalt() {
	if err := s.trace.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error: halt: %v\n", err)
	}
}
