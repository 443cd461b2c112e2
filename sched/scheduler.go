package sched

import (
	"sync"
	"sync/atomic"
	"time"

	kerrors "nanokernel/errors"
)

// AdaptiveParameters tunes the scheduler's boost and slice behavior
// (spec.md §4.4, grounded on
// original_source/nos-syscalls/src/adaptive_scheduler.rs's
// AdaptiveParameters).
type AdaptiveParameters struct {
	MinTimeSlice      time.Duration
	MaxTimeSlice      time.Duration
	BoostThreshold    float64 // efficiency score below which a task boosts
	CPUUsageThreshold float64
	CacheHitThreshold float64
}

// DefaultAdaptiveParameters matches the source's defaults.
func DefaultAdaptiveParameters() AdaptiveParameters {
	return AdaptiveParameters{
		MinTimeSlice:      minTimeSlice,
		MaxTimeSlice:      maxTimeSlice,
		BoostThreshold:    70.0,
		CPUUsageThreshold: 80.0,
		CacheHitThreshold: 60.0,
	}
}

// Stats are scheduler-global counters (spec.md §3's "Scheduler stats").
type Stats struct {
	TotalScheduled  uint64
	ContextSwitches atomic.Uint64
	CPUUtilization  float64 // EMA, updated by Tick
}

// RecordContextSwitch increments the global context-switch counter.
func (s *Stats) RecordContextSwitch() {
	s.ContextSwitches.Add(1)
}

// updateUtilization folds a new utilization sample into the EMA
// (util = util*0.9 + sample*0.1, matching the original source).
func (s *Stats) updateUtilization(sample float64) {
	s.CPUUtilization = s.CPUUtilization*0.9 + sample*0.1
}

// readyQueue is a single priority class's FIFO ready list, independently
// lockable so dispatch on one CPU never blocks a push to another class's
// queue (spec.md §4.4: "single-writer per ready queue").
type readyQueue struct {
	mu    sync.Mutex
	tasks []*TCB
}

func (q *readyQueue) push(t *TCB) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

func (q *readyQueue) popCompatible(cpu int) *TCB {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.CPUAffinity == nil || t.CPUAffinity.IsSet(cpu) {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return t
		}
	}
	return nil
}

func (q *readyQueue) remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.ID == id {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return true
		}
	}
	return false
}

func (q *readyQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// hasCompatible reports whether q has any task compatible with
// cpu, without removing it.
func (q *readyQueue) hasCompatible(cpu int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if t.CPUAffinity == nil || t.CPUAffinity.IsSet(cpu) {
			return true
		}
	}
	return false
}

// Scheduler is the adaptive multi-level scheduler (C5): five priority
// ready queues, one "current" task slot per CPU, and the adaptive tuning
// loop from spec.md §4.4 (grounded on
// original_source/nos-syscalls/src/adaptive_scheduler.rs's
// AdaptiveScheduler, with the per-queue locking idiom matching the
// teacher's container.Container.mu pattern).
type Scheduler struct {
	mu       sync.Mutex // protects tasks/current/nextID
	queues   [numPriorities]readyQueue
	tasks    map[uint64]*TCB
	current  map[int]*TCB // per-CPU running task
	nextID   atomic.Uint64
	Stats    Stats
	Adaptive AdaptiveParameters
}

// New creates an empty scheduler.
func New() *Scheduler {
	s := &Scheduler{
		tasks:    make(map[uint64]*TCB),
		current:  make(map[int]*TCB),
		Adaptive: DefaultAdaptiveParameters(),
	}
	s.nextID.Store(1)
	return s
}

// AddTask registers a new task in Ready state at the given priority and
// enqueues it on the matching ready queue.
func (s *Scheduler) AddTask(name string, priority Priority) (*TCB, error) {
	if priority < Realtime || priority > Idle {
		return nil, kerrors.Wrap(kerrors.ErrInvalidPriority, kerrors.ErrKindScheduler, "add_task")
	}

	id := s.nextID.Add(1) - 1
	t := NewTCB(id, name, priority)

	s.mu.Lock()
	s.tasks[id] = t
	s.Stats.TotalScheduled++
	s.mu.Unlock()

	s.queues[priority].push(t)
	return t, nil
}

// RemoveTask removes a task from the scheduler entirely, whatever state
// it is in.
func (s *Scheduler) RemoveTask(id uint64) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	for cpu, cur := range s.current {
		if cur != nil && cur.ID == id {
			delete(s.current, cpu)
		}
	}
	s.mu.Unlock()

	if !ok {
		return kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "remove_task")
	}
	s.queues[t.CurrentPriority].remove(id)
	return nil
}

// Task returns the TCB for id, if any.
func (s *Scheduler) Task(id uint64) (*TCB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Current returns the task currently running on cpu, if any.
func (s *Scheduler) Current(cpu int) (*TCB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.current[cpu]
	return t, ok
}

// ReadyQueueSizes returns the length of each priority class's ready
// queue, indexed by Priority.
func (s *Scheduler) ReadyQueueSizes() [numPriorities]int {
	var sizes [numPriorities]int
	for i := range s.queues {
		sizes[i] = s.queues[i].len()
	}
	return sizes
}

// Dispatch runs the per-CPU dispatch algorithm of spec.md §4.4: continue
// the running task if its slice remains and nothing higher-priority is
// ready; otherwise pop the highest-priority affinity-compatible ready
// task. Returns nil if the CPU should idle.
func (s *Scheduler) Dispatch(cpu int) *TCB {
	s.mu.Lock()
	cur := s.current[cpu]
	s.mu.Unlock()

	if cur != nil && cur.State == Running && cur.TimeSlice > 0 && !s.higherPriorityReady(cur.CurrentPriority, cpu) {
		return cur
	}

	if cur != nil && cur.State == Running {
		// cur is being replaced: put it back on its ready queue.
		cur.Transition(Ready)
		s.queues[cur.CurrentPriority].push(cur)
	}

	for p := Realtime; p <= Idle; p++ {
		next := s.queues[p].popCompatible(cpu)
		if next == nil {
			continue
		}

		s.mu.Lock()
		if cur != nil {
			s.Stats.RecordContextSwitch()
		}
		next.Transition(Running)
		s.current[cpu] = next
		s.mu.Unlock()
		return next
	}

	s.mu.Lock()
	delete(s.current, cpu)
	s.mu.Unlock()
	return nil
}

// higherPriorityReady reports whether any queue with a strictly higher
// priority than p holds a task compatible with cpu.
func (s *Scheduler) higherPriorityReady(p Priority, cpu int) bool {
	for q := Realtime; q < p; q++ {
		if s.queues[q].hasCompatible(cpu) {
			return true
		}
	}
	return false
}

// Yield voluntarily relinquishes cpu's current task, recording the slice
// as a voluntary yield and re-queuing it at its current priority
// (spec.md §5's "voluntary sched_yield" suspension point).
func (s *Scheduler) Yield(cpu int) error {
	return s.relinquish(cpu, false)
}

// Preempt forcibly relinquishes cpu's current task, recording the slice
// as a preemption.
func (s *Scheduler) Preempt(cpu int) error {
	return s.relinquish(cpu, true)
}

func (s *Scheduler) relinquish(cpu int, preempted bool) error {
	s.mu.Lock()
	t := s.current[cpu]
	if t == nil {
		s.mu.Unlock()
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "relinquish")
	}
	delete(s.current, cpu)
	s.mu.Unlock()

	t.Stats.UpdateExecution(t.TimeSlice, preempted)
	if !t.Transition(Ready) {
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "relinquish")
	}
	s.queues[t.CurrentPriority].push(t)
	return nil
}

// Block moves the running task on cpu to Blocked, e.g. on I/O or a
// wait-queue (spec.md §5's blocking suspension point). It is not
// re-queued until Wake is called.
func (s *Scheduler) Block(cpu int) (*TCB, error) {
	s.mu.Lock()
	t := s.current[cpu]
	if t == nil {
		s.mu.Unlock()
		return nil, kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "block")
	}
	delete(s.current, cpu)
	s.mu.Unlock()

	if !t.Transition(Blocked) {
		return nil, kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "block")
	}
	return t, nil
}

// Wake moves a Blocked task back to Ready and re-enqueues it.
func (s *Scheduler) Wake(id uint64) error {
	t, ok := s.Task(id)
	if !ok {
		return kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "wake")
	}
	if !t.Transition(Ready) {
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "wake")
	}
	s.queues[t.CurrentPriority].push(t)
	return nil
}

// Finish moves the running task on cpu to Finished and removes it from
// scheduling.
func (s *Scheduler) Finish(cpu int) error {
	s.mu.Lock()
	t := s.current[cpu]
	if t == nil {
		s.mu.Unlock()
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "finish")
	}
	delete(s.current, cpu)
	s.mu.Unlock()

	if !t.Transition(Finished) {
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "finish")
	}
	s.mu.Lock()
	delete(s.tasks, t.ID)
	s.mu.Unlock()
	return nil
}

// Kill forcibly terminates a task from any non-terminal state, removing
// it from whichever ready queue or CPU slot holds it.
func (s *Scheduler) Kill(id uint64) error {
	t, ok := s.Task(id)
	if !ok {
		return kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "kill")
	}
	if !t.Transition(Terminated) {
		return kerrors.Wrap(kerrors.ErrInvalidTaskState, kerrors.ErrKindScheduler, "kill")
	}

	s.mu.Lock()
	delete(s.tasks, id)
	for cpu, cur := range s.current {
		if cur != nil && cur.ID == id {
			delete(s.current, cpu)
		}
	}
	s.mu.Unlock()

	for p := Realtime; p <= Idle; p++ {
		s.queues[p].remove(id)
	}
	return nil
}

// Tick runs the scheduler's adaptive update loop for cpu's current task:
// CPU-usage sampling, time-slice adaptation, and priority boost/decay
// (spec.md §4.4), then refreshes the global utilization EMA.
func (s *Scheduler) Tick(cpu int, now time.Duration) {
	if t, ok := s.Current(cpu); ok {
		t.UpdateCPUUsage(now)
		t.UpdateTimeSlice()

		if t.Stats.EfficiencyScore() < s.Adaptive.BoostThreshold && t.CurrentPriority != Realtime {
			t.BoostPriority(true)
		} else {
			t.BoostPriority(false)
		}
	}

	s.mu.Lock()
	totalTasks := len(s.tasks)
	s.mu.Unlock()

	if totalTasks == 0 {
		return
	}

	sizes := s.ReadyQueueSizes()
	var ready int
	for _, n := range sizes {
		ready += n
	}

	utilization := 0.0
	if ready > 0 {
		utilization = (float64(ready) - 1.0) / float64(totalTasks) * 100.0
		if utilization < 0 {
			utilization = 0
		}
	}
	s.Stats.updateUtilization(utilization)
}
