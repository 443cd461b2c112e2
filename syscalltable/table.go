// Package syscalltable implements the modular syscall dispatch table (C9):
// a table keyed by numeric syscall id, a policy-check gate run before
// execution, and errno-compatible return codes. It is named syscalltable
// rather than syscall because the latter is a standard library package.
package syscalltable

import (
	"nanokernel/sched"
	"nanokernel/signal"
)

// ID is a syscall numeric identifier (spec.md §6). Ids are grouped by
// subsystem: 0x5xxx signals, 0xExxx scheduling.
type ID uint32

const (
	SigQueue       ID = 0x5000
	SigTimedwait   ID = 0x5001
	SigWaitinfo    ID = 0x5002
	SigAltstack    ID = 0x5003
	PthreadSigmask ID = 0x5004

	SchedSetScheduler   ID = 0xE000
	SchedGetScheduler   ID = 0xE001
	SchedSetParam       ID = 0xE002
	SchedGetParam       ID = 0xE003
	SchedGetPriorityMax ID = 0xE004
	SchedGetPriorityMin ID = 0xE005
	SchedRRGetInterval  ID = 0xE006
	SchedSetAffinity    ID = 0xE007
	SchedGetAffinity    ID = 0xE008
)

// String returns the syscall's POSIX/spec name.
func (id ID) String() string {
	switch id {
	case SigQueue:
		return "sigqueue"
	case SigTimedwait:
		return "sigtimedwait"
	case SigWaitinfo:
		return "sigwaitinfo"
	case SigAltstack:
		return "sigaltstack"
	case PthreadSigmask:
		return "pthread_sigmask"
	case SchedSetScheduler:
		return "sched_setscheduler"
	case SchedGetScheduler:
		return "sched_getscheduler"
	case SchedSetParam:
		return "sched_setparam"
	case SchedGetParam:
		return "sched_getparam"
	case SchedGetPriorityMax:
		return "sched_get_priority_max"
	case SchedGetPriorityMin:
		return "sched_get_priority_min"
	case SchedRRGetInterval:
		return "sched_rr_get_interval"
	case SchedSetAffinity:
		return "sched_setaffinity"
	case SchedGetAffinity:
		return "sched_getaffinity"
	default:
		return "unknown"
	}
}

// Args is the marshalled argument/out-parameter block for one syscall
// invocation (spec.md §6's *_ptr columns). A hosted simulation has no
// raw pointers to dereference, so each *_ptr argument becomes a typed
// field here instead; only the fields relevant to the invoked ID are
// read.
type Args struct {
	CallerPID uint64
	TargetPID uint64

	Signo int
	Sival signal.SigVal
	Set   signal.Set
	TS    signal.Timespec
	How   signal.How

	NewSet    *signal.Set
	NewStack  *signal.StackT
	ReturnOld bool

	Policy   sched.Policy
	Param    sched.SchedParam
	Affinity *sched.AffinityMask
}

// Handler executes one syscall given its marshalled Args, returning a
// result value (nil for calls with no output) or an error.
type Handler func(*Args) (any, error)

// Table is the modular dispatch table keyed by numeric syscall id
// (spec.md §6, C9), grounded on the teacher's container/syscalls.go tiny
// id-to-wrapper shape, generalized from a handful of OCI verbs to this
// kernel's syscall surface.
type Table map[ID]Handler

// NewDefaultTable builds the standard table wired against a signal
// registry and a scheduling registry.
func NewDefaultTable(signals *signal.Registry, sc *sched.Registry) Table {
	return Table{
		SigQueue: func(a *Args) (any, error) {
			return nil, signals.Sigqueue(a.CallerPID, a.TargetPID, a.Signo, a.Sival, 0)
		},
		SigTimedwait: func(a *Args) (any, error) {
			return signals.Sigtimedwait(a.CallerPID, a.Set, a.TS)
		},
		SigWaitinfo: func(a *Args) (any, error) {
			return signals.Sigwaitinfo(a.CallerPID, a.Set)
		},
		SigAltstack: func(a *Args) (any, error) {
			return signals.Sigaltstack(a.CallerPID, a.NewStack, a.ReturnOld)
		},
		PthreadSigmask: func(a *Args) (any, error) {
			return signals.PthreadSigmask(a.CallerPID, a.How, a.NewSet)
		},
		SchedSetScheduler: func(a *Args) (any, error) {
			return nil, sc.SetScheduler(a.TargetPID, a.Policy, a.Param)
		},
		SchedGetScheduler: func(a *Args) (any, error) {
			return sc.GetScheduler(a.TargetPID)
		},
		SchedSetParam: func(a *Args) (any, error) {
			return nil, sc.SetParam(a.TargetPID, a.Param)
		},
		SchedGetParam: func(a *Args) (any, error) {
			return sc.GetParam(a.TargetPID)
		},
		SchedGetPriorityMax: func(a *Args) (any, error) {
			return sched.GetPriorityMax(a.Policy)
		},
		SchedGetPriorityMin: func(a *Args) (any, error) {
			return sched.GetPriorityMin(a.Policy)
		},
		SchedRRGetInterval: func(a *Args) (any, error) {
			return sc.RRGetInterval(a.TargetPID)
		},
		SchedSetAffinity: func(a *Args) (any, error) {
			return nil, sc.SetAffinity(a.TargetPID, a.Affinity)
		},
		SchedGetAffinity: func(a *Args) (any, error) {
			return sc.GetAffinity(a.TargetPID)
		},
	}
}
