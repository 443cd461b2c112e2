package syscalltable

import (
	stderrors "errors"
	"sync"

	kerrors "nanokernel/errors"
)

// Errno-compatible negative return codes (spec.md §6: "All syscalls
// return 0 on success or a negative errno-compatible code on failure").
// These mirror the subset of POSIX errno values the syscall surface
// above can actually produce; they are not a complete errno table.
const (
	codeOK       int64 = 0
	codeEPERM    int64 = -1
	codeESRCH    int64 = -3
	codeEAGAIN   int64 = -11
	codeENOMEM   int64 = -12
	codeEINVAL   int64 = -22
	codeENOSYS   int64 = -38
	codeEGeneric int64 = -5 // EIO, the fallback for an unclassified failure
)

// PolicyFunc gates a syscall before dispatch (spec.md §4.2's policy
// checks), generalized from the teacher's seccomp BPF allow/deny filter
// to a plain predicate run ahead of the handler.
type PolicyFunc func(id ID, callerPID uint64) error

// Dispatcher owns a Table and an optional PolicyFunc and is the single
// entry point the syscall surface is invoked through.
type Dispatcher struct {
	mu     sync.RWMutex
	table  Table
	policy PolicyFunc
}

// NewDispatcher returns a Dispatcher over table with no policy gate
// (every syscall in the table is allowed).
func NewDispatcher(table Table) *Dispatcher {
	return &Dispatcher{table: table}
}

// SetPolicy installs a gate run before every dispatch. A nil policy
// allows everything.
func (d *Dispatcher) SetPolicy(p PolicyFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policy = p
}

// Register installs or overrides the handler for id.
func (d *Dispatcher) Register(id ID, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.table == nil {
		d.table = Table{}
	}
	d.table[id] = h
}

// Dispatch resolves id in the table, runs the policy gate, and invokes
// the handler. It returns the errno-compatible code callers expect
// (spec.md §6) alongside the handler's raw result, for callers that want
// the typed value (e.g. sched_getparam's output) rather than just the
// code.
func (d *Dispatcher) Dispatch(id ID, args *Args) (int64, any) {
	d.mu.RLock()
	h, ok := d.table[id]
	policy := d.policy
	d.mu.RUnlock()

	if policy != nil {
		if err := policy(id, args.CallerPID); err != nil {
			return errnoFor(err), nil
		}
	}
	if !ok {
		return codeENOSYS, nil
	}

	result, err := h(args)
	if err != nil {
		return errnoFor(err), nil
	}
	return codeOK, result
}

// errnoFor maps a KernelError's ErrorKind (and, where the kind is too
// coarse, specific sentinel errors) to an errno-compatible negative
// code. Errors never surface as formatted strings for dispatch
// purposes — only the typed classification drives the return code.
func errnoFor(err error) int64 {
	switch {
	case stderrors.Is(err, kerrors.ErrQueueFull):
		return codeEAGAIN
	case stderrors.Is(err, kerrors.ErrInvalidSignal),
		stderrors.Is(err, kerrors.ErrInvalidPriority),
		stderrors.Is(err, kerrors.ErrInvalidSchedPolicy),
		stderrors.Is(err, kerrors.ErrEmptyCPUSet):
		return codeEINVAL
	case stderrors.Is(err, kerrors.ErrTaskNotFound):
		return codeESRCH
	case stderrors.Is(err, kerrors.ErrServiceNotResolved):
		return codeENOSYS
	}

	kind, ok := kerrors.GetKind(err)
	if !ok {
		return codeEGeneric
	}
	switch kind {
	case kerrors.ErrKindOutOfMemory:
		return codeENOMEM
	case kerrors.ErrKindInvalid:
		return codeEINVAL
	case kerrors.ErrKindProcess, kerrors.ErrKindScheduler:
		return codeESRCH
	case kerrors.ErrKindSecurity:
		return codeEPERM
	case kerrors.ErrKindSignal:
		return codeEAGAIN
	default:
		return codeEGeneric
	}
}
