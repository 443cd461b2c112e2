package syscalltable

import (
	"testing"

	kerrors "nanokernel/errors"
	"nanokernel/sched"
	"nanokernel/signal"
)

func newTestDispatcher() (*Dispatcher, *signal.Registry, *sched.Registry) {
	sigs := signal.NewRegistry()
	scheds := sched.NewRegistry()
	d := NewDispatcher(NewDefaultTable(sigs, scheds))
	return d, sigs, scheds
}

func TestDispatch_UnknownIDReturnsENOSYS(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(ID(0x9999), &Args{})
	if code != codeENOSYS {
		t.Errorf("code = %d, want ENOSYS (%d)", code, codeENOSYS)
	}
}

func TestDispatch_SchedSetThenGetSchedulerRoundTrips(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(SchedSetScheduler, &Args{
		TargetPID: 1,
		Policy:    sched.SchedFIFO,
		Param:     sched.SchedParam{Priority: 50},
	})
	if code != codeOK {
		t.Fatalf("sched_setscheduler code = %d, want 0", code)
	}

	code, result := d.Dispatch(SchedGetScheduler, &Args{TargetPID: 1})
	if code != codeOK {
		t.Fatalf("sched_getscheduler code = %d, want 0", code)
	}
	if result.(sched.Policy) != sched.SchedFIFO {
		t.Errorf("sched_getscheduler = %v, want SCHED_FIFO", result)
	}
}

func TestDispatch_SchedSetSchedulerRejectsBadPriority(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(SchedSetScheduler, &Args{
		TargetPID: 1,
		Policy:    sched.SchedFIFO,
		Param:     sched.SchedParam{Priority: 200}, // out of [1,99]
	})
	if code != codeEINVAL {
		t.Errorf("code = %d, want EINVAL (%d)", code, codeEINVAL)
	}
}

func TestDispatch_SchedGetSchedulerUnknownPIDReturnsESRCH(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(SchedGetScheduler, &Args{TargetPID: 999})
	if code != codeESRCH {
		t.Errorf("code = %d, want ESRCH (%d)", code, codeESRCH)
	}
}

func TestDispatch_SigqueueThenSigwaitinfo(t *testing.T) {
	d, sigs, _ := newTestDispatcher()
	sigs.Register(1)

	code, _ := d.Dispatch(SigQueue, &Args{
		CallerPID: 2,
		TargetPID: 1,
		Signo:     signal.SIGRTMIN,
		Sival:     signal.SigVal{Int: 7},
	})
	if code != codeOK {
		t.Fatalf("sigqueue code = %d, want 0", code)
	}

	code, result := d.Dispatch(SigWaitinfo, &Args{
		CallerPID: 1,
		Set:       signal.EmptySet.Add(signal.SIGRTMIN),
	})
	if code != codeOK {
		t.Fatalf("sigwaitinfo code = %d, want 0", code)
	}
	info := result.(signal.SigInfo)
	if info.Signo != signal.SIGRTMIN || info.Value.Int != 7 {
		t.Errorf("sigwaitinfo = %+v, want signo=%d sival=7", info, signal.SIGRTMIN)
	}
}

func TestDispatch_SigqueueUnregisteredPIDReturnsESRCH(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(SigQueue, &Args{CallerPID: 1, TargetPID: 42, Signo: signal.SIGRTMIN})
	if code != codeESRCH {
		t.Errorf("code = %d, want ESRCH (%d)", code, codeESRCH)
	}
}

func TestDispatch_PolicyGateDeniesSyscall(t *testing.T) {
	d, sigs, _ := newTestDispatcher()
	sigs.Register(1)
	d.SetPolicy(func(id ID, callerPID uint64) error {
		return kerrors.New(kerrors.ErrKindSecurity, "policy", "denied")
	})

	code, _ := d.Dispatch(SigQueue, &Args{CallerPID: 2, TargetPID: 1, Signo: signal.SIGRTMIN})
	if code != codeEPERM {
		t.Errorf("code = %d, want EPERM (%d)", code, codeEPERM)
	}
}

func TestDispatch_SchedGetPriorityMaxMin(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, result := d.Dispatch(SchedGetPriorityMax, &Args{Policy: sched.SchedRR})
	if code != codeOK || result.(int32) != 99 {
		t.Errorf("sched_get_priority_max = (%d, %v), want (0, 99)", code, result)
	}

	code, result = d.Dispatch(SchedGetPriorityMin, &Args{Policy: sched.SchedNormal})
	if code != codeOK || result.(int32) != 0 {
		t.Errorf("sched_get_priority_min = (%d, %v), want (0, 0)", code, result)
	}
}

func TestDispatch_SchedSetAffinityRejectsEmptyMask(t *testing.T) {
	d, _, _ := newTestDispatcher()

	code, _ := d.Dispatch(SchedSetAffinity, &Args{TargetPID: 1, Affinity: sched.NewEmptyAffinityMask()})
	if code != codeEINVAL {
		t.Errorf("code = %d, want EINVAL (%d)", code, codeEINVAL)
	}
}
