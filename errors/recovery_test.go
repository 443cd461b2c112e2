package errors

import "testing"

func TestRecoveryController_DefaultConfig(t *testing.T) {
	c := NewRecoveryController()
	cfg := c.Config()
	if !cfg.AutoRecover {
		t.Error("AutoRecover should default to true")
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
}

func TestRecoveryController_DetermineAction_Memory(t *testing.T) {
	c := NewRecoveryController()
	action, ok := c.DetermineAction(ErrKindOutOfMemory, SeverityError)
	if !ok || action != ActionDegrade {
		t.Errorf("DetermineAction(OutOfMemory, Error) = (%v, %v), want (Degrade, true)", action, ok)
	}
}

func TestRecoveryController_DetermineAction_LowSeverityNoop(t *testing.T) {
	c := NewRecoveryController()
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityInfo); ok {
		t.Error("Info severity should never recommend recovery")
	}
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityWarning); ok {
		t.Error("Warning severity should never recommend recovery")
	}
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityFatal); ok {
		t.Error("Fatal severity should never recommend recovery")
	}
}

func TestRecoveryController_DetermineAction_CriticalForcesReset(t *testing.T) {
	c := NewRecoveryController()
	action, ok := c.DetermineAction(ErrKindSecurity, SeverityCritical)
	if !ok || action != ActionReset {
		t.Errorf("Critical severity should force Reset, got (%v, %v)", action, ok)
	}
}

func TestRecoveryController_DetermineAction_SecurityNoRecovery(t *testing.T) {
	c := NewRecoveryController()
	if _, ok := c.DetermineAction(ErrKindSecurity, SeverityError); ok {
		t.Error("security errors at Error severity should not recover")
	}
}

func TestRecoveryController_MaxAttemptsExhausted(t *testing.T) {
	c := NewRecoveryController()
	for i := 0; i < 3; i++ {
		if _, ok := c.DetermineAction(ErrKindNetwork, SeverityError); !ok {
			t.Fatalf("attempt %d should still be allowed", i)
		}
	}
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityError); ok {
		t.Error("4th attempt should exceed MaxAttempts and be refused")
	}
}

func TestRecoveryController_RecordSuccessResetsBudget(t *testing.T) {
	c := NewRecoveryController()
	for i := 0; i < 3; i++ {
		c.DetermineAction(ErrKindNetwork, SeverityError)
	}
	c.RecordSuccess(ErrKindNetwork)
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityError); !ok {
		t.Error("RecordSuccess should reset the attempt budget")
	}
}

func TestRecoveryController_ErrorTypeActionOverride(t *testing.T) {
	c := NewRecoveryController()
	cfg := c.Config()
	cfg.ErrorTypeActions[ErrKindFileSystem] = ActionFallback
	c.UpdateConfig(cfg)

	action, ok := c.DetermineAction(ErrKindFileSystem, SeverityError)
	if !ok || action != ActionFallback {
		t.Errorf("override should take effect, got (%v, %v)", action, ok)
	}
}

func TestRecoveryController_Disabled(t *testing.T) {
	c := NewRecoveryController()
	c.SetEnabled(false)
	if c.Enabled() {
		t.Error("Enabled() should report false after SetEnabled(false)")
	}
	if _, ok := c.DetermineAction(ErrKindNetwork, SeverityError); ok {
		t.Error("disabled controller should never recommend recovery")
	}
}

func TestRecoveryController_Stats(t *testing.T) {
	c := NewRecoveryController()
	c.DetermineAction(ErrKindOutOfMemory, SeverityError)
	c.RecordSuccess(ErrKindOutOfMemory)
	c.DetermineAction(ErrKindNetwork, SeverityError)
	c.RecordFailure(ErrKindNetwork)

	stats := c.Stats()
	if stats.TotalAttempts != 2 {
		t.Errorf("TotalAttempts = %d, want 2", stats.TotalAttempts)
	}
	if stats.SuccessfulRecoveries != 1 {
		t.Errorf("SuccessfulRecoveries = %d, want 1", stats.SuccessfulRecoveries)
	}
	if stats.FailedRecoveries != 1 {
		t.Errorf("FailedRecoveries = %d, want 1", stats.FailedRecoveries)
	}
}

func TestRecoveryController_ConfigureAdaptive(t *testing.T) {
	c := NewRecoveryController()

	c.ConfigureAdaptive(ErrorStats{CriticalErrors: 11})
	cfg := c.Config()
	if cfg.MaxAttempts != 1 || cfg.AutoRecover {
		t.Errorf("high critical error rate should set MaxAttempts=1, AutoRecover=false; got %+v", cfg)
	}

	c2 := NewRecoveryController()
	c2.ConfigureAdaptive(ErrorStats{TotalErrors: 101})
	cfg2 := c2.Config()
	if cfg2.MaxAttempts != 2 {
		t.Errorf("moderate error rate should set MaxAttempts=2, got %d", cfg2.MaxAttempts)
	}

	c3 := NewRecoveryController()
	c3.ConfigureAdaptive(ErrorStats{TotalErrors: 5})
	cfg3 := c3.Config()
	if cfg3.MaxAttempts != 3 {
		t.Errorf("normal error rate should set MaxAttempts=3, got %d", cfg3.MaxAttempts)
	}
}

func TestRecoveryController_ResetStats(t *testing.T) {
	c := NewRecoveryController()
	c.RecordError(ErrKindNetwork)
	c.DetermineAction(ErrKindNetwork, SeverityError)
	c.ResetStats()

	if counts := c.ErrorCounts(); len(counts) != 0 {
		t.Errorf("ErrorCounts should be empty after reset, got %v", counts)
	}
	stats := c.Stats()
	if stats.TotalAttempts != 0 {
		t.Errorf("stats should be zeroed after reset, got %+v", stats)
	}
}

func TestRecoveryAction_String(t *testing.T) {
	tests := []struct {
		a    RecoveryAction
		want string
	}{
		{ActionRetry, "retry"},
		{ActionFallback, "fallback"},
		{ActionDegrade, "degrade"},
		{ActionReset, "reset"},
		{ActionRestart, "restart"},
		{ActionNone, "none"},
		{RecoveryAction(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.a.String(); got != tt.want {
			t.Errorf("RecoveryAction(%d).String() = %q, want %q", tt.a, got, tt.want)
		}
	}
}
