package signal

import (
	"time"

	kerrors "nanokernel/errors"
)

// Timespec mirrors struct timespec for sigtimedwait's ts_ptr argument.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Duration converts ts to a time.Duration, failing with InvalidArgument
// for a negative seconds field or a nanosecond field outside [0, 1e9)
// (spec.md §8: "a negative or nanosecond-overflow value fails with
// InvalidArgument").
func (ts Timespec) Duration() (time.Duration, error) {
	if ts.Sec < 0 || ts.Nsec < 0 || ts.Nsec >= 1_000_000_000 {
		return 0, kerrors.New(kerrors.ErrKindInvalid, "sigtimedwait", "invalid timespec")
	}
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec)*time.Nanosecond, nil
}

// Registry resolves a process id to its signal queue, alternate stack,
// and per-thread mask. A real kernel keys these per-thread for the mask
// and alt stack and per-process for the queue; this registry folds both
// under pid for the single-threaded-process model the rest of this
// subsystem assumes.
type Registry struct {
	queues    map[uint64]*Queue
	masks     map[uint64]*Mask
	altStacks map[uint64]*AltStack
}

// NewRegistry returns an empty signal registry.
func NewRegistry() *Registry {
	return &Registry{
		queues:    make(map[uint64]*Queue),
		masks:     make(map[uint64]*Mask),
		altStacks: make(map[uint64]*AltStack),
	}
}

// Register creates the queue, mask, and alt-stack state for pid if not
// already present, and returns the queue.
func (r *Registry) Register(pid uint64) *Queue {
	if q, ok := r.queues[pid]; ok {
		return q
	}
	q := NewQueue(0)
	r.queues[pid] = q
	r.masks[pid] = NewMask()
	r.altStacks[pid] = NewAltStack()
	return q
}

func (r *Registry) queueFor(pid uint64) (*Queue, error) {
	q, ok := r.queues[pid]
	if !ok {
		return nil, kerrors.New(kerrors.ErrKindProcess, "signal", "unregistered pid")
	}
	return q, nil
}

// Sigqueue implements syscall 0x5000: sigqueue(pid, sig, sival).
func (r *Registry) Sigqueue(senderPID, targetPID uint64, signo int, value SigVal, timestamp uint64) error {
	q, err := r.queueFor(targetPID)
	if err != nil {
		return err
	}
	return q.Enqueue(signo, senderPID, value, timestamp)
}

// Sigtimedwait implements syscall 0x5001: it validates ts, then polls the
// queue once for a signal in set, honoring the calling thread's persistent
// mask. It does not block and does not wait out the timeout: when nothing
// is pending it returns an error at once.
func (r *Registry) Sigtimedwait(pid uint64, set Set, ts Timespec) (SigInfo, error) {
	q, err := r.queueFor(pid)
	if err != nil {
		return SigInfo{}, err
	}
	if _, err := ts.Duration(); err != nil {
		return SigInfo{}, err
	}
	mask := r.masks[pid]
	info, ok := q.TryDequeue(mask.Deliverable(set))
	if !ok {
		return SigInfo{}, kerrors.New(kerrors.ErrKindSignal, "sigtimedwait", "timed out waiting for signal")
	}
	return info, nil
}

// Sigwaitinfo implements syscall 0x5002: sigtimedwait with no timeout.
func (r *Registry) Sigwaitinfo(pid uint64, set Set) (SigInfo, error) {
	q, err := r.queueFor(pid)
	if err != nil {
		return SigInfo{}, err
	}
	mask := r.masks[pid]
	info, ok := q.TryDequeue(mask.Deliverable(set))
	if !ok {
		return SigInfo{}, kerrors.New(kerrors.ErrKindSignal, "sigwaitinfo", "no signal pending")
	}
	return info, nil
}

// Sigaltstack implements syscall 0x5003. If newStack is non-nil it
// installs the new stack; oldStack, when requested via returnOld, is the
// stack that was in effect before the call.
func (r *Registry) Sigaltstack(pid uint64, newStack *StackT, returnOld bool) (StackT, error) {
	stack, ok := r.altStacks[pid]
	if !ok {
		return StackT{}, kerrors.New(kerrors.ErrKindProcess, "sigaltstack", "unregistered pid")
	}
	var old StackT
	if returnOld {
		old = stack.Get()
	}
	if newStack != nil {
		if err := stack.Set(*newStack); err != nil {
			return StackT{}, err
		}
	}
	return old, nil
}

// PthreadSigmask implements syscall 0x5004: pthread_sigmask(how, new, old).
func (r *Registry) PthreadSigmask(pid uint64, how How, newSet *Set) (Set, error) {
	mask, ok := r.masks[pid]
	if !ok {
		return EmptySet, kerrors.New(kerrors.ErrKindProcess, "pthread_sigmask", "unregistered pid")
	}
	if newSet == nil {
		return mask.Current(), nil
	}
	return mask.Apply(how, *newSet)
}
