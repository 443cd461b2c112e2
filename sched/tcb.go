// Package sched implements the adaptive multi-level scheduler: task
// control blocks, ready queues, dynamic time-slice tuning, priority
// boosting, and the POSIX real-time scheduling policies layered on top.
package sched

import (
	"time"
)

// Priority is the scheduling class a task runs in (spec.md §3).
type Priority int

const (
	Realtime Priority = iota
	High
	Normal
	Low
	Idle

	numPriorities = int(Idle) + 1
)

// String returns a human-readable priority class name.
func (p Priority) String() string {
	switch p {
	case Realtime:
		return "realtime"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// initialTimeSlice returns the starting time slice for a priority class
// (spec.md §4.4).
func initialTimeSlice(p Priority) time.Duration {
	switch p {
	case Realtime:
		return 1 * time.Millisecond
	case High:
		return 5 * time.Millisecond
	case Normal:
		return 10 * time.Millisecond
	case Low:
		return 20 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

const (
	minTimeSlice = 1 * time.Millisecond
	maxTimeSlice = 50 * time.Millisecond
)

// State is the lifecycle state of a task (spec.md §3). Legal transitions:
// Ready->Running (dispatch), Running->{Ready,Blocked,Finished}
// (yield/block/exit), Blocked->Ready (wake), and Terminated from any state
// via kill.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Finished
	Terminated
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Finished:
		return "finished"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// legalTransitions enumerates the state machine spec.md §3 allows.
var legalTransitions = map[State]map[State]bool{
	Ready:   {Running: true},
	Running: {Ready: true, Blocked: true, Finished: true},
	Blocked: {Ready: true},
}

// CanTransition reports whether moving from `from` to `to` is legal.
// Terminated is reachable from any non-terminal state via kill.
func CanTransition(from, to State) bool {
	if to == Terminated {
		return from != Finished && from != Terminated
	}
	return legalTransitions[from][to]
}

// TaskStats tracks per-task scheduling behavior used to compute the
// efficiency score that drives adaptive time-slice tuning and priority
// boosting (spec.md §4.4, grounded on
// original_source/nos-syscalls/src/adaptive_scheduler.rs's TaskStats).
type TaskStats struct {
	TotalExecTime  time.Duration
	TimeSlices     uint64
	PriorityBoosts uint32
	VoluntaryYields uint32
	Preemptions    uint32
	CacheHitRate   float64 // 0-100, supplied by behavioral telemetry
}

// UpdateExecution records one completed time slice.
func (s *TaskStats) UpdateExecution(execTime time.Duration, preempted bool) {
	s.TotalExecTime += execTime
	s.TimeSlices++
	if preempted {
		s.Preemptions++
	} else {
		s.VoluntaryYields++
	}
}

// EfficiencyScore combines the cache-hit-rate proxy and the voluntary
// yield ratio into a single 0-100 score driving boost/slice decisions.
func (s *TaskStats) EfficiencyScore() float64 {
	if s.TimeSlices == 0 {
		return 100.0
	}
	yieldRatio := float64(s.VoluntaryYields) / float64(s.TimeSlices) * 100.0
	return (s.CacheHitRate + yieldRatio) / 2.0
}

// TCB is a task control block: the scheduler's view of a single
// schedulable unit of execution.
type TCB struct {
	ID             uint64
	Name           string
	BasePriority   Priority
	CurrentPriority Priority
	State          State
	TimeSlice      time.Duration
	CPUAffinity    *AffinityMask
	Stats          TaskStats

	boostCounter    uint32
	cpuUsagePercent float64
	lastSampleAt    time.Duration
}

// NewTCB creates a task at its base priority, Ready state, with the
// initial time slice for that class.
func NewTCB(id uint64, name string, priority Priority) *TCB {
	return &TCB{
		ID:              id,
		Name:            name,
		BasePriority:    priority,
		CurrentPriority: priority,
		State:           Ready,
		TimeSlice:       initialTimeSlice(priority),
		CPUAffinity:     NewAffinityMask(), // all CPUs
	}
}

// Transition moves the task to a new state, rejecting illegal transitions.
func (t *TCB) Transition(to State) bool {
	if !CanTransition(t.State, to) {
		return false
	}
	t.State = to
	return true
}

// UpdateTimeSlice adapts the time slice by the task's efficiency score
// (spec.md §4.4): score > 80 multiplies by 1.2, score < 50 by 0.8,
// otherwise unchanged; the result is clamped to [1ms, 50ms].
func (t *TCB) UpdateTimeSlice() {
	efficiency := t.Stats.EfficiencyScore()

	factor := 1.0
	switch {
	case efficiency > 80.0:
		factor = 1.2
	case efficiency < 50.0:
		factor = 0.8
	}

	slice := time.Duration(float64(t.TimeSlice) * factor)
	switch {
	case slice < minTimeSlice:
		slice = minTimeSlice
	case slice > maxTimeSlice:
		slice = maxTimeSlice
	}
	t.TimeSlice = slice
}

// BoostPriority raises the task one class for one slice when boost is
// true; boosts never lower below base priority, and Realtime never boosts
// further. When boost is false the boost counter decays toward zero, and
// the priority returns to base once it reaches zero.
func (t *TCB) BoostPriority(boost bool) {
	if boost {
		if t.CurrentPriority > Realtime {
			t.CurrentPriority--
		}
		t.boostCounter++
		return
	}

	if t.boostCounter > 0 {
		t.boostCounter--
		if t.boostCounter == 0 {
			t.CurrentPriority = t.BasePriority
		}
	}
}

// UpdateCPUUsage folds a new sample into the CPU-usage EMA. It takes an
// explicit `now` sample timestamp rather than reading and updating a
// shared "last exec time" within the same call, resolving the Open
// Question in spec.md §9 about TaskControlBlock::update_cpu_usage.
func (t *TCB) UpdateCPUUsage(now time.Duration) {
	elapsed := now - t.lastSampleAt
	if elapsed <= 0 {
		return
	}
	instant := float64(t.TimeSlice) / float64(elapsed) * 100.0
	t.cpuUsagePercent = t.cpuUsagePercent*0.9 + instant*0.1
	t.lastSampleAt = now
}

// CPUUsagePercent returns the current CPU-usage EMA.
func (t *TCB) CPUUsagePercent() float64 {
	return t.cpuUsagePercent
}
