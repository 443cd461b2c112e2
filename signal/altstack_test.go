package signal

import "testing"

func TestAltStack_SetRejectsTooSmall(t *testing.T) {
	a := NewAltStack()
	err := a.Set(StackT{SP: 0x1000, Size: MinSigStkSz - 1})
	if err == nil {
		t.Fatal("Set() error = nil, want ErrAltStackTooSmall")
	}
}

func TestAltStack_SetRejectsSSOnStackInRequest(t *testing.T) {
	a := NewAltStack()
	err := a.Set(StackT{SP: 0x1000, Size: MinSigStkSz, Flags: SSOnStack})
	if err == nil {
		t.Fatal("Set() error = nil, want rejection of read-only SS_ONSTACK")
	}
}

func TestAltStack_EnterLeaveRoundTrip(t *testing.T) {
	a := NewAltStack()
	if err := a.Set(StackT{SP: 0x1000, Size: MinSigStkSz}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := a.Enter(); err != nil {
		t.Fatalf("Enter() error = %v", err)
	}
	if a.Get().Flags&SSOnStack == 0 {
		t.Error("Get().Flags missing SS_ONSTACK while active")
	}

	a.Leave()
	if a.Get().Flags&SSOnStack != 0 {
		t.Error("Get().Flags still reports SS_ONSTACK after Leave()")
	}
}

func TestAltStack_SetFailsWhileActive(t *testing.T) {
	a := NewAltStack()
	a.Set(StackT{SP: 0x1000, Size: MinSigStkSz})
	a.Enter()

	if err := a.Set(StackT{SP: 0x2000, Size: MinSigStkSz}); err == nil {
		t.Fatal("Set() error = nil, want ErrAltStackActive while a handler runs")
	}
}

func TestAltStack_DisableThenRestorePreviousStack(t *testing.T) {
	// Scenario: spec.md §8 "sigaltstack(new, old) followed by
	// sigaltstack(old, _) restores the previous stack."
	a := NewAltStack()
	first := StackT{SP: 0x1000, Size: MinSigStkSz}
	if err := a.Set(first); err != nil {
		t.Fatalf("Set(first) error = %v", err)
	}
	old := a.Get()

	if err := a.Set(StackT{Flags: SSDisable}); err != nil {
		t.Fatalf("Set(disable) error = %v", err)
	}
	if err := a.Set(old); err != nil {
		t.Fatalf("Set(old) error = %v", err)
	}
	if a.Get().SP != first.SP {
		t.Errorf("restored stack SP = %#x, want %#x", a.Get().SP, first.SP)
	}
}
