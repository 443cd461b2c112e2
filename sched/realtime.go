package sched

import (
	"sync"
	"time"

	kerrors "nanokernel/errors"
)

// Policy is a POSIX scheduling policy (spec.md §4.4).
type Policy int32

const (
	SchedNormal   Policy = 0
	SchedFIFO     Policy = 1
	SchedRR       Policy = 2
	SchedBatch    Policy = 3
	SchedIdlePol  Policy = 5
	SchedDeadline Policy = 6
)

// String returns the POSIX policy name.
func (p Policy) String() string {
	switch p {
	case SchedNormal:
		return "SCHED_NORMAL"
	case SchedFIFO:
		return "SCHED_FIFO"
	case SchedRR:
		return "SCHED_RR"
	case SchedBatch:
		return "SCHED_BATCH"
	case SchedIdlePol:
		return "SCHED_IDLE"
	case SchedDeadline:
		return "SCHED_DEADLINE"
	default:
		return "unknown"
	}
}

// validPolicy reports whether p is one of the recognized POSIX policies.
func validPolicy(p Policy) bool {
	switch p {
	case SchedNormal, SchedFIFO, SchedRR, SchedBatch, SchedIdlePol, SchedDeadline:
		return true
	default:
		return false
	}
}

// SchedParam carries the scheduling priority for sched_setparam/getparam
// (spec.md §6). Deadline scheduling is out of scope: only the policies
// covered by spec.md §4.4's priority-range table are valid.
type SchedParam struct {
	Priority int32
}

// IsValidForPolicy reports whether the priority value is legal for policy
// (spec.md §4.4: {FIFO,RR} -> [1,99]; all others -> {0}).
func (sp SchedParam) IsValidForPolicy(p Policy) bool {
	switch p {
	case SchedNormal, SchedBatch, SchedIdlePol:
		return sp.Priority == 0
	case SchedFIFO, SchedRR:
		return sp.Priority >= 1 && sp.Priority <= 99
	default:
		return false
	}
}

// PriorityRange returns the (min, max) priority values valid for policy.
func PriorityRange(p Policy) (int32, int32, error) {
	switch p {
	case SchedNormal, SchedBatch, SchedIdlePol:
		return 0, 0, nil
	case SchedFIFO, SchedRR:
		return 1, 99, nil
	default:
		return 0, 0, kerrors.Wrap(kerrors.ErrInvalidSchedPolicy, kerrors.ErrKindScheduler, "priority_range")
	}
}

// defaultRRInterval is the default SCHED_RR round-robin time slice
// reported by sched_rr_get_interval (spec.md §4.4).
const defaultRRInterval = 10 * time.Millisecond

// ProcessSchedInfo is the per-task POSIX scheduling record the sched_*
// syscalls operate on, independent of whether the task is currently
// runnable (grounded on
// original_source/kernel/src/posix/realtime.rs's ProcessSchedInfo).
type ProcessSchedInfo struct {
	Policy      Policy
	Param       SchedParam
	Affinity    *AffinityMask
	RRInterval  time.Duration
	CPUTime     time.Duration
}

// newProcessSchedInfo returns the default record: SCHED_NORMAL, priority
// 0, no affinity restriction.
func newProcessSchedInfo() *ProcessSchedInfo {
	return &ProcessSchedInfo{
		Policy:     SchedNormal,
		Param:      SchedParam{Priority: 0},
		Affinity:   NewAffinityMask(),
		RRInterval: defaultRRInterval,
	}
}

// IsRealtime reports whether the policy is one of FIFO/RR/Deadline.
func (i *ProcessSchedInfo) IsRealtime() bool {
	return i.Policy == SchedFIFO || i.Policy == SchedRR || i.Policy == SchedDeadline
}

// Registry backs the sched_* syscalls (spec.md §6): a table of
// ProcessSchedInfo keyed by task id, independent of the scheduler's ready
// queues (grounded on the same original_source file's SchedRegistry,
// with the global BTreeMap<Pid, _> replaced by a mutex-guarded Go map per
// the teacher's socket-table locking idiom).
type Registry struct {
	mu        sync.Mutex
	processes map[uint64]*ProcessSchedInfo
}

// NewRegistry returns an empty scheduling registry.
func NewRegistry() *Registry {
	return &Registry{processes: make(map[uint64]*ProcessSchedInfo)}
}

func (r *Registry) getOrCreate(pid uint64) *ProcessSchedInfo {
	if info, ok := r.processes[pid]; ok {
		return info
	}
	info := newProcessSchedInfo()
	r.processes[pid] = info
	return info
}

// SetScheduler implements sched_setscheduler (syscall 0xE000): validates
// the policy and priority pair and installs it for pid.
func (r *Registry) SetScheduler(pid uint64, policy Policy, param SchedParam) error {
	if !validPolicy(policy) {
		return kerrors.Wrap(kerrors.ErrInvalidSchedPolicy, kerrors.ErrKindScheduler, "sched_setscheduler")
	}
	if !param.IsValidForPolicy(policy) {
		return kerrors.Wrap(kerrors.ErrInvalidPriority, kerrors.ErrKindScheduler, "sched_setscheduler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	info := r.getOrCreate(pid)
	info.Policy = policy
	info.Param = param
	return nil
}

// GetScheduler implements sched_getscheduler (syscall 0xE001).
func (r *Registry) GetScheduler(pid uint64) (Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.processes[pid]
	if !ok {
		return 0, kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "sched_getscheduler")
	}
	return info.Policy, nil
}

// SetParam implements sched_setparam (syscall 0xE002).
func (r *Registry) SetParam(pid uint64, param SchedParam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := r.getOrCreate(pid)
	if !param.IsValidForPolicy(info.Policy) {
		return kerrors.Wrap(kerrors.ErrInvalidPriority, kerrors.ErrKindScheduler, "sched_setparam")
	}
	info.Param = param
	return nil
}

// GetParam implements sched_getparam (syscall 0xE003).
func (r *Registry) GetParam(pid uint64) (SchedParam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.processes[pid]
	if !ok {
		return SchedParam{}, kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "sched_getparam")
	}
	return info.Param, nil
}

// GetPriorityMax implements sched_get_priority_max (syscall 0xE004).
func GetPriorityMax(policy Policy) (int32, error) {
	_, max, err := PriorityRange(policy)
	return max, err
}

// GetPriorityMin implements sched_get_priority_min (syscall 0xE005).
func GetPriorityMin(policy Policy) (int32, error) {
	min, _, err := PriorityRange(policy)
	return min, err
}

// RRGetInterval implements sched_rr_get_interval (syscall 0xE006): only
// valid for a task currently under SCHED_RR.
func (r *Registry) RRGetInterval(pid uint64) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.processes[pid]
	if !ok {
		return 0, kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "sched_rr_get_interval")
	}
	if info.Policy != SchedRR {
		return 0, kerrors.Wrap(kerrors.ErrInvalidSchedPolicy, kerrors.ErrKindScheduler, "sched_rr_get_interval")
	}
	return info.RRInterval, nil
}

// SetAffinity implements sched_setaffinity (syscall 0xE007); an empty
// affinity mask is rejected.
func (r *Registry) SetAffinity(pid uint64, affinity *AffinityMask) error {
	if err := affinity.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	info := r.getOrCreate(pid)
	info.Affinity = affinity
	return nil
}

// GetAffinity implements sched_getaffinity (syscall 0xE008).
func (r *Registry) GetAffinity(pid uint64) (*AffinityMask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.processes[pid]
	if !ok {
		return nil, kerrors.Wrap(kerrors.ErrTaskNotFound, kerrors.ErrKindProcess, "sched_getaffinity")
	}
	return info.Affinity.Clone(), nil
}

// Remove drops pid's scheduling record, e.g. on task exit.
func (r *Registry) Remove(pid uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processes, pid)
}
