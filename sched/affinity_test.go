package sched

import "testing"

func TestAffinityMask_DefaultAllowsAllCPUs(t *testing.T) {
	m := NewAffinityMask()
	if m.Count() != MaxCPUs {
		t.Errorf("Count() = %d, want %d", m.Count(), MaxCPUs)
	}
	if !m.IsSet(0) || !m.IsSet(MaxCPUs-1) {
		t.Error("default mask should include CPU 0 and the last CPU")
	}
}

func TestAffinityMask_SetClear(t *testing.T) {
	m := NewEmptyAffinityMask()
	m.Set(3)
	if !m.IsSet(3) {
		t.Error("IsSet(3) = false after Set(3)")
	}
	m.Clear(3)
	if m.IsSet(3) {
		t.Error("IsSet(3) = true after Clear(3)")
	}
}

func TestAffinityMask_ValidateRejectsEmpty(t *testing.T) {
	m := NewEmptyAffinityMask()
	if err := m.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error for empty set")
	}
	m.Set(0)
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil once a CPU is set", err)
	}
}

func TestAffinityMask_CloneIsIndependent(t *testing.T) {
	m := NewEmptyAffinityMask()
	m.Set(5)
	clone := m.Clone()
	clone.Set(6)

	if m.IsSet(6) {
		t.Error("mutating the clone affected the original")
	}
	if !clone.IsSet(5) || !clone.IsSet(6) {
		t.Error("clone missing expected bits")
	}
}
