package signal

import kerrors "nanokernel/errors"

// Set is a bitmask over signal numbers 1..64 (sigset_t equivalent).
type Set uint64

// EmptySet is a mask with no signals blocked.
const EmptySet Set = 0

// FullSet blocks every maskable signal (SIGKILL and SIGSTOP excluded,
// since they can never be represented as blocked).
func FullSet() Set {
	var s Set
	for signo := 1; signo <= maxSigno; signo++ {
		if signo == SIGKILL || signo == SIGSTOP {
			continue
		}
		s = s.Add(signo)
	}
	return s
}

// Add returns set with signo included.
func (s Set) Add(signo int) Set {
	if signo < 1 || signo > maxSigno {
		return s
	}
	return s | (1 << uint(signo-1))
}

// Remove returns set with signo excluded.
func (s Set) Remove(signo int) Set {
	if signo < 1 || signo > maxSigno {
		return s
	}
	return s &^ (1 << uint(signo-1))
}

// IsMember reports whether signo is present in set.
func (s Set) IsMember(signo int) bool {
	if signo < 1 || signo > maxSigno {
		return false
	}
	return s&(1<<uint(signo-1)) != 0
}

// How selects the pthread_sigmask combination mode.
type How int

const (
	SigBlock How = iota
	SigUnblock
	SigSetMask
)

// Mask is a thread's signal mask, gating delivery of maskable signals
// (spec.md §4.5: SIGKILL and SIGSTOP can never be blocked).
type Mask struct {
	blocked Set
}

// NewMask returns a mask that blocks nothing.
func NewMask() *Mask {
	return &Mask{blocked: EmptySet}
}

// sanitize strips SIGKILL/SIGSTOP from a requested block set: attempting
// to block them is accepted (per pthread_sigmask semantics) but silently
// has no effect, rather than failing the call.
func sanitize(set Set) Set {
	return set.Remove(SIGKILL).Remove(SIGSTOP)
}

// Apply mutates the mask per how/set, mirroring pthread_sigmask, and
// returns the mask that was in effect before the call (for oldset).
func (m *Mask) Apply(how How, set Set) (Set, error) {
	old := m.blocked
	clean := sanitize(set)

	switch how {
	case SigBlock:
		m.blocked |= clean
	case SigUnblock:
		m.blocked &^= clean
	case SigSetMask:
		m.blocked = clean
	default:
		return old, kerrors.New(kerrors.ErrKindInvalid, "pthread_sigmask", "unknown how value")
	}
	return old, nil
}

// IsBlocked reports whether signo is currently blocked. SIGKILL and
// SIGSTOP are never blocked regardless of the stored mask.
func (m *Mask) IsBlocked(signo int) bool {
	if signo == SIGKILL || signo == SIGSTOP {
		return false
	}
	return m.blocked.IsMember(signo)
}

// Current returns the mask's blocked set.
func (m *Mask) Current() Set {
	return m.blocked
}

// Deliverable returns set minus every signal currently blocked by m,
// used to compute the wait-set passed to Queue.TryDequeue when a
// sigtimedwait call should also honor the thread's persistent mask for
// signals outside the explicit wait set.
func (m *Mask) Deliverable(set Set) Set {
	return set &^ m.blocked
}
