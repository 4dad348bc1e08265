// Package scheduler implements the priority-ordered queue of timestamped
// events that drives the simulator: reads, writes, and reports, sorted
// by arrival time with accesses preferred over reports at equal time.
package scheduler

import "sort"

// Kind tags what a Task does when dispatched.
type Kind int

const (
	// KindRead enqueues a memory read at Task.Address.
	KindRead Kind = iota
	// KindWrite enqueues a memory write at Task.Address.
	KindWrite
	// KindReportRate requests a hit/miss-rate report for Task.Level.
	KindReportRate
	// KindReportImage requests a cache-image report for Task.Level.
	KindReportImage
	// KindHalt stops dispatch and discards any remaining tasks.
	KindHalt
)

// classPriority orders task classes at equal arrival time: accesses
// before reports, reports before halt.
func (k Kind) classPriority() int {
	switch k {
	case KindRead, KindWrite:
		return 0
	case KindReportRate, KindReportImage:
		return 1
	default: // KindHalt
		return 2
	}
}

// Task is one scheduled event. It is immutable after creation.
type Task struct {
	Kind       Kind
	Address    uint32 // valid for KindRead / KindWrite
	Level      uint32 // valid for KindReportRate / KindReportImage
	ArriveTime uint64
}

// Dispatcher is how the scheduler drives the rest of the simulator. The
// system package implements it over an engine.Engine and a hierarchy.
type Dispatcher interface {
	DispatchRead(address uint32, clock uint64) uint64
	DispatchWrite(address uint32, clock uint64) uint64
	DispatchReportRate(level uint32, arriveTime uint64)
	DispatchReportImage(level uint32, arriveTime uint64)
	DispatchHalt()
}

// Scheduler holds the task queue across the Build/Init/Run phases: tasks
// accumulate unsorted during Build, Init stably sorts them once, and Run
// dispatches them in order.
type Scheduler struct {
	tasks  []Task
	sorted bool
}

// New returns an empty Scheduler, ready to accept tasks during Build.
func New() *Scheduler {
	return &Scheduler{}
}

// Enqueue appends a task during the Build phase. Order of enqueueing is
// preserved as the stable tie-break below arrival time and class.
func (s *Scheduler) Enqueue(t Task) {
	s.tasks = append(s.tasks, t)
	s.sorted = false
}

// Len returns the number of enqueued tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Init performs the Build→Run transition: a stable sort by
// (arrive_time, class_priority, insertion_index). Using the explicit
// composite key (rather than a hand-written less-than comparator) avoids
// the intransitive ordering a direct three-way comparator can produce
// when three task classes share a cycle.
func (s *Scheduler) Init() {
	if s.sorted {
		return
	}

	indices := make([]int, len(s.tasks))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ta, tb := s.tasks[indices[a]], s.tasks[indices[b]]
		if ta.ArriveTime != tb.ArriveTime {
			return ta.ArriveTime < tb.ArriveTime
		}
		return ta.Kind.classPriority() < tb.Kind.classPriority()
	})

	sorted := make([]Task, len(s.tasks))
	for i, idx := range indices {
		sorted[i] = s.tasks[idx]
	}
	s.tasks = sorted
	s.sorted = true
}

// Run dispatches every task in sorted order, advancing the simulated
// clock as it goes, and returns the final clock value. Run calls Init if
// the queue has not already been sorted.
func (s *Scheduler) Run(d Dispatcher) uint64 {
	s.Init()

	var clock uint64
	for _, t := range s.tasks {
		if clock < t.ArriveTime {
			clock = t.ArriveTime
		}

		switch t.Kind {
		case KindRead:
			clock = d.DispatchRead(t.Address, clock)
		case KindWrite:
			clock = d.DispatchWrite(t.Address, clock)
		case KindReportRate:
			d.DispatchReportRate(t.Level, t.ArriveTime)
		case KindReportImage:
			d.DispatchReportImage(t.Level, t.ArriveTime)
		case KindHalt:
			d.DispatchHalt()
			return clock
		}
	}
	return clock
}
