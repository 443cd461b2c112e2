package boot

import (
	"errors"
	"testing"
)

func TestRunHooks_EmptySetSucceeds(t *testing.T) {
	if err := RunHooks(HookSet{}, HookPreDetectHardware, &BootContext{}); err != nil {
		t.Fatalf("empty hook set should never fail: %v", err)
	}
}

func TestRunHooks_StopsAtFirstFailure(t *testing.T) {
	var ran []int
	hooks := HookSet{
		HookPostValidate: {
			func(*BootContext) error { ran = append(ran, 1); return nil },
			func(*BootContext) error { ran = append(ran, 2); return errors.New("boom") },
			func(*BootContext) error { ran = append(ran, 3); return nil },
		},
	}

	err := RunHooks(hooks, HookPostValidate, &BootContext{})
	if err == nil {
		t.Fatal("expected failure from second hook")
	}
	if len(ran) != 2 {
		t.Errorf("expected exactly two hooks to run before stopping, ran %v", ran)
	}
}

func TestRunHooks_ReceivesBootContext(t *testing.T) {
	cfg, err := NewBootConfigFromCmdline(ProtocolBIOS, "quiet")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	bc := &BootContext{Config: cfg}

	var seen *BootConfig
	hooks := HookSet{
		HookPreKernelLoad: {func(b *BootContext) error {
			seen = b.Config
			return nil
		}},
	}

	if err := RunHooks(hooks, HookPreKernelLoad, bc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != cfg {
		t.Error("hook should observe the same BootConfig passed in BootContext")
	}
}
