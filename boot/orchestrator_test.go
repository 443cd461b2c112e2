package boot

import "testing"

func happyOrchestrator() *Orchestrator {
	detector := SimulatedHardwareDetector{Info: DefaultHardwareInfo()}
	loader := DefaultKernelLoader()
	return NewOrchestrator(detector, loader, NewRecordingPublisher())
}

func TestOrchestrator_HappyBoot(t *testing.T) {
	o := happyOrchestrator()

	info, err := o.Boot(ProtocolBIOS, "quiet")
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if info.BootTimestamp == 0 {
		t.Error("boot_timestamp must be nonzero")
	}
	if info.KernelInfo.LoadAddr != 0x100000 || info.KernelInfo.Size != 0x500000 || info.KernelInfo.EntryPoint != 0x100000 {
		t.Errorf("unexpected kernel info: %+v", info.KernelInfo)
	}

	pub := o.Publisher.(*RecordingPublisher)
	if n := pub.CountKind(EventBootReady); n != 1 {
		t.Errorf("expected exactly one BootReady event, got %d", n)
	}
	if o.State().Stage != StageReady {
		t.Errorf("expected terminal stage Ready, got %v", o.State().Stage)
	}
}

func TestOrchestrator_FailsClosedOnBadHardware(t *testing.T) {
	hw := DefaultHardwareInfo()
	hw.CPUFeatures.LongMode = false
	o := NewOrchestrator(SimulatedHardwareDetector{Info: hw}, DefaultKernelLoader(), NewRecordingPublisher())

	_, err := o.Boot(ProtocolBIOS, "")
	if err == nil {
		t.Fatal("expected boot to fail without long mode support")
	}
	st := o.State()
	if !st.Failed || st.Stage != StageValidatePrerequisites {
		t.Errorf("expected Failed at validate_prerequisites, got %+v", st)
	}

	pub := o.Publisher.(*RecordingPublisher)
	if n := pub.CountKind(EventBootReady); n != 0 {
		t.Errorf("expected no BootReady event on failed boot, got %d", n)
	}
}

func TestOrchestrator_FailsClosedOnInsufficientMemory(t *testing.T) {
	hw := DefaultHardwareInfo()
	hw.MemoryMap = []MemoryRegion{{Start: 0x100000, Size: 4096, Type: RegionAvailable}}
	o := NewOrchestrator(SimulatedHardwareDetector{Info: hw}, DefaultKernelLoader(), NewRecordingPublisher())

	_, err := o.Boot(ProtocolBIOS, "")
	if err == nil {
		t.Fatal("expected boot to fail with insufficient memory")
	}
	if o.State().Stage != StageValidatePrerequisites {
		t.Errorf("expected failure at validate_prerequisites, got %v", o.State().Stage)
	}
}

func TestOrchestrator_GraphicsRequestedButUnsupported(t *testing.T) {
	o := happyOrchestrator()

	_, err := o.Boot(ProtocolUEFI, "")
	if err != nil {
		t.Fatalf("baseline boot should succeed: %v", err)
	}

	// DefaultHardwareInfo reports Graphics.Supported = false, so a config
	// requesting a graphics mode must fail InitGraphics.
	o2 := happyOrchestrator()
	cfg, err := NewBootConfigFromCmdline(ProtocolBIOS, "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg = cfg.WithGraphics(GraphicsMode{Width: 800, Height: 600, BPP: 32})

	_, err = o2.BootWithConfig(cfg)
	if err == nil {
		t.Fatal("expected boot to fail when graphics is requested but unsupported")
	}
	st := o2.State()
	if !st.Failed || st.Stage != StageInitGraphics {
		t.Errorf("expected Failed at init_graphics, got %+v", st)
	}

	pub := o2.Publisher.(*RecordingPublisher)
	if n := pub.CountKind(EventGraphicsInitialized); n != 0 {
		t.Errorf("expected no GraphicsInitialized event when unsupported, got %d", n)
	}
}

func TestOrchestrator_GraphicsRequestedAndSupported(t *testing.T) {
	hw := DefaultHardwareInfo()
	hw.Graphics.Supported = true
	o := NewOrchestrator(SimulatedHardwareDetector{Info: hw}, DefaultKernelLoader(), NewRecordingPublisher())

	cfg, err := NewBootConfigFromCmdline(ProtocolBIOS, "")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg = cfg.WithGraphics(GraphicsMode{Width: 800, Height: 600, BPP: 32})

	info, err := o.BootWithConfig(cfg)
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if info.Graphics == nil || info.Graphics.Width != 800 || info.Graphics.Height != 600 || info.Graphics.BPP != 32 {
		t.Errorf("expected graphics framebuffer info populated, got %+v", info.Graphics)
	}

	pub := o.Publisher.(*RecordingPublisher)
	if n := pub.CountKind(EventGraphicsInitialized); n != 1 {
		t.Errorf("expected exactly one GraphicsInitialized event, got %d", n)
	}
}

func TestOrchestrator_HookVetoesBoot(t *testing.T) {
	o := happyOrchestrator()
	o.Hooks = HookSet{
		HookPostValidate: {func(bc *BootContext) error {
			return errVeto
		}},
	}

	_, err := o.Boot(ProtocolBIOS, "")
	if err == nil {
		t.Fatal("expected hook veto to fail the boot")
	}
	if o.State().Stage != StageValidatePrerequisites {
		t.Errorf("expected failure recorded at validate_prerequisites, got %v", o.State().Stage)
	}
}

func TestOrchestrator_NeverRetriesOnFailure(t *testing.T) {
	hw := DefaultHardwareInfo()
	hw.CPUFeatures.LongMode = false
	o := NewOrchestrator(SimulatedHardwareDetector{Info: hw}, DefaultKernelLoader(), NewRecordingPublisher())

	_, err1 := o.Boot(ProtocolBIOS, "")
	_, err2 := o.Boot(ProtocolBIOS, "")
	if err1 == nil || err2 == nil {
		t.Fatal("expected both attempts to fail independently; the orchestrator does not self-heal")
	}
}

type sentinelError struct{ msg string }

func (e *sentinelError) Error() string { return e.msg }

var errVeto = &sentinelError{msg: "policy vetoed boot"}
