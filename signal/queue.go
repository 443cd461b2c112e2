// Package signal implements the POSIX real-time signal subsystem (C6):
// per-process ordered signal queues, sigqueue/sigtimedwait/sigwaitinfo,
// alternate signal stacks, and per-thread signal masks.
package signal

import (
	"sort"
	"sync"

	kerrors "nanokernel/errors"
)

// Standard and real-time signal numbering (POSIX/Linux layout).
const (
	SIGKILL = 9
	SIGSTOP = 19

	SIGRTMIN = 34
	SIGRTMAX = 64

	maxSigno = 64
)

// IsRealtime reports whether signo falls in [SIGRTMIN, SIGRTMAX].
func IsRealtime(signo int) bool {
	return signo >= SIGRTMIN && signo <= SIGRTMAX
}

// validSignal reports whether signo is in the supported range (spec.md
// §4.5: sigqueue fails with InvalidSignal for an out-of-range signo).
func validSignal(signo int) bool {
	return signo > 0 && signo <= maxSigno
}

// SigVal is the user-supplied payload attached to a queued signal
// (the `sival` of spec.md §3's SignalQueue entry).
type SigVal struct {
	Int int32
	Ptr uintptr
}

// SigInfo is what sigtimedwait/sigwaitinfo return: the delivered signal's
// number, sender, and payload.
type SigInfo struct {
	Signo     int
	SenderPID uint64
	Value     SigVal
	Timestamp uint64 // monotonic ns, caller-supplied ordering tiebreak
}

// pendingEntry is one queued signal instance, ordered by submission.
type pendingEntry struct {
	senderPID uint64
	value     SigVal
	timestamp uint64
	seq       uint64
}

// Queue is a single process's pending-signal store (spec.md §3's
// SignalQueue). Real-time signals preserve FIFO order per signo and
// deliver in increasing signo order across numbers; standard signals
// coalesce to at most one pending instance, keeping the first submission's
// sival.
type Queue struct {
	mu       sync.Mutex
	cap      int
	rt       map[int][]pendingEntry // signo -> FIFO of pending instances
	standard map[int]pendingEntry   // signo -> the single coalesced instance
	nextSeq  uint64
}

// DefaultQueueCap is the per-process pending-signal depth cap (spec.md
// §4.5: sigqueue fails with QueueFull past this bound).
const DefaultQueueCap = 1024

// NewQueue returns an empty signal queue with the given capacity. A
// capacity of 0 uses DefaultQueueCap.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCap
	}
	return &Queue{
		cap:      capacity,
		rt:       make(map[int][]pendingEntry),
		standard: make(map[int]pendingEntry),
	}
}

// depth returns the total number of pending signal instances. Callers
// must hold q.mu.
func (q *Queue) depth() int {
	n := len(q.standard)
	for _, entries := range q.rt {
		n += len(entries)
	}
	return n
}

// Enqueue queues a signal for delivery (spec.md §4.5's sigqueue). It
// rejects out-of-range signal numbers and a full queue; a standard signal
// that would coalesce into an already-pending instance still succeeds.
func (q *Queue) Enqueue(signo int, senderPID uint64, value SigVal, timestamp uint64) error {
	if !validSignal(signo) {
		return kerrors.Wrap(kerrors.ErrInvalidSignal, kerrors.ErrKindSignal, "sigqueue")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if IsRealtime(signo) {
		if q.depth() >= q.cap {
			return kerrors.Wrap(kerrors.ErrQueueFull, kerrors.ErrKindSignal, "sigqueue")
		}
		q.nextSeq++
		q.rt[signo] = append(q.rt[signo], pendingEntry{
			senderPID: senderPID, value: value, timestamp: timestamp, seq: q.nextSeq,
		})
		return nil
	}

	// Standard signal: coalesce. A second sigqueue before delivery is a
	// no-op success, keeping the first submission's sival.
	if _, pending := q.standard[signo]; pending {
		return nil
	}
	if q.depth() >= q.cap {
		return kerrors.Wrap(kerrors.ErrQueueFull, kerrors.ErrKindSignal, "sigqueue")
	}
	q.nextSeq++
	q.standard[signo] = pendingEntry{senderPID: senderPID, value: value, timestamp: timestamp, seq: q.nextSeq}
	return nil
}

// pendingSignos returns the signals in set that currently have a pending
// instance, in delivery order: increasing signo, real-time before
// standard is not distinguished by spec.md beyond "lowest signo first
// across signos" — both classes are ordered purely by signo here.
// Callers must hold q.mu.
func (q *Queue) pendingSignos(set Set) []int {
	var out []int
	for signo := 1; signo <= maxSigno; signo++ {
		if !set.IsMember(signo) {
			continue
		}
		if _, ok := q.standard[signo]; ok {
			out = append(out, signo)
			continue
		}
		if len(q.rt[signo]) > 0 {
			out = append(out, signo)
		}
	}
	sort.Ints(out)
	return out
}

// TryDequeue removes and returns the first deliverable signal in set, if
// any is pending. This is the core of sigtimedwait/sigwaitinfo: the
// signal is removed from the queue atomically with the return, and the
// handler is never invoked.
func (q *Queue) TryDequeue(set Set) (SigInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	signos := q.pendingSignos(set)
	if len(signos) == 0 {
		return SigInfo{}, false
	}
	signo := signos[0]

	if entries, ok := q.rt[signo]; ok && len(entries) > 0 {
		head := entries[0]
		q.rt[signo] = entries[1:]
		if len(q.rt[signo]) == 0 {
			delete(q.rt, signo)
		}
		return SigInfo{Signo: signo, SenderPID: head.senderPID, Value: head.value, Timestamp: head.timestamp}, true
	}

	entry := q.standard[signo]
	delete(q.standard, signo)
	return SigInfo{Signo: signo, SenderPID: entry.senderPID, Value: entry.value, Timestamp: entry.timestamp}, true
}

// Depth returns the total number of pending signal instances, for
// diagnostics.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.depth()
}
