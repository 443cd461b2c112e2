package signal

import kerrors "nanokernel/errors"

// MinSigStkSz is the minimum size an alternate signal stack may declare
// (MINSIGSTKSZ).
const MinSigStkSz = 2048

// Stack flags (sigaltstack ss_flags).
const (
	SSOnStack = 1 << iota
	SSDisable
)

// StackT describes an alternate signal stack (struct sigaltstack).
type StackT struct {
	SP    uintptr
	Flags int
	Size  uintptr
}

// AltStack tracks a thread's alternate signal stack registration and
// whether a handler is currently executing on it.
type AltStack struct {
	current StackT
	active  bool
}

// NewAltStack returns a thread with no alternate stack configured
// (equivalent to an initial ss_flags of SS_DISABLE).
func NewAltStack() *AltStack {
	return &AltStack{current: StackT{Flags: SSDisable}}
}

// Get returns the currently registered stack, with SS_ONSTACK set in the
// returned Flags if a handler is presently executing on it (sigaltstack's
// oss output parameter never round-trips SS_ONSTACK from the caller, only
// reports it).
func (a *AltStack) Get() StackT {
	out := a.current
	if a.active {
		out.Flags |= SSOnStack
	} else {
		out.Flags &^= SSOnStack
	}
	return out
}

// Set installs a new alternate stack (sigaltstack's ss input parameter).
// It rejects a change while a handler is executing on the current stack,
// an SS_ONSTACK bit in the request (read-only, per spec.md §4.5), and a
// non-disable stack below MinSigStkSz.
func (a *AltStack) Set(ss StackT) error {
	if a.active {
		return kerrors.Wrap(kerrors.ErrAltStackActive, kerrors.ErrKindSignal, "sigaltstack")
	}
	if ss.Flags&SSOnStack != 0 {
		return kerrors.New(kerrors.ErrKindInvalid, "sigaltstack", "SS_ONSTACK is read-only")
	}
	if ss.Flags&SSDisable != 0 {
		a.current = StackT{Flags: SSDisable}
		return nil
	}
	if ss.Size < MinSigStkSz {
		return kerrors.Wrap(kerrors.ErrAltStackTooSmall, kerrors.ErrKindSignal, "sigaltstack")
	}
	a.current = ss
	return nil
}

// Enter marks the alternate stack as active for the duration of a
// handler invocation. It fails if no stack is registered or one is
// already active (spec.md: ErrAltStackActive).
func (a *AltStack) Enter() error {
	if a.current.Flags&SSDisable != 0 {
		return kerrors.New(kerrors.ErrKindSignal, "sigaltstack", "no alternate stack registered")
	}
	if a.active {
		return kerrors.Wrap(kerrors.ErrAltStackActive, kerrors.ErrKindSignal, "sigaltstack")
	}
	a.active = true
	return nil
}

// Leave marks the alternate stack as no longer in use, once the handler
// executing on it returns.
func (a *AltStack) Leave() {
	a.active = false
}

// Active reports whether a handler is currently executing on the
// alternate stack.
func (a *AltStack) Active() bool {
	return a.active
}
