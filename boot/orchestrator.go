package boot

import (
	"fmt"
	"sync"
	"time"

	kerrors "nanokernel/errors"
	"nanokernel/logging"
)

// Stage is one step of the orchestrator's strict linear pipeline
// (spec.md §4.2). Stages never repeat and never run out of order.
type Stage int

const (
	StageLoadConfig Stage = iota
	StageDetectHardware
	StageValidatePrerequisites
	StageInitGraphics
	StageAssembleBootInfo
	StageLoadKernel
	StageValidate
	StagePublish
	StageReady
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageLoadConfig:
		return "load_config"
	case StageDetectHardware:
		return "detect_hardware"
	case StageValidatePrerequisites:
		return "validate_prerequisites"
	case StageInitGraphics:
		return "init_graphics"
	case StageAssembleBootInfo:
		return "assemble_boot_info"
	case StageLoadKernel:
		return "load_kernel"
	case StageValidate:
		return "validate"
	case StagePublish:
		return "publish"
	case StageReady:
		return "ready"
	default:
		return "unknown"
	}
}

// OrchestratorState is the boot state machine's current position: either
// mid-pipeline at a Stage, terminally Ready, or terminally Failed at the
// stage that rejected the boot. There is no backtracking out of Failed.
type OrchestratorState struct {
	Stage         Stage
	Failed        bool
	FailureReason string
}

// BootContext carries the data a boot attempt accumulates as it moves
// through the pipeline, and is what hooks observe/veto against.
type BootContext struct {
	Config    *BootConfig
	Hardware  HardwareInfo
	Info      *BootInfo
	StartedAt time.Time
}

// MinMemoryBytes is the default "memory minimum" prerequisite
// (spec.md §4.2, ValidatePrerequisites): 16 MiB of Available memory.
const MinMemoryBytes uint64 = 16 * 1024 * 1024

// Orchestrator drives the boot pipeline described in spec.md §4.2. It
// replaces the source's DI-container service resolution with a
// statically-composed struct of concrete collaborators (spec.md §9):
// there is no "which BootConfigRepository" to resolve at runtime, the
// caller wires the one it wants at construction time.
type Orchestrator struct {
	HardwareDetector HardwareDetectionService
	KernelLoader     KernelLoader
	Publisher        EventPublisher
	Hooks            HookSet
	MinMemoryBytes   uint64
	Now              func() time.Time

	mu    sync.Mutex
	state OrchestratorState
}

// NewOrchestrator builds an Orchestrator with the given collaborators.
// A nil Publisher defaults to a new RecordingPublisher; a zero
// MinMemoryBytes defaults to MinMemoryBytes.
func NewOrchestrator(detector HardwareDetectionService, loader KernelLoader, publisher EventPublisher) *Orchestrator {
	if publisher == nil {
		publisher = NewRecordingPublisher()
	}
	return &Orchestrator{
		HardwareDetector: detector,
		KernelLoader:     loader,
		Publisher:        publisher,
		Hooks:            HookSet{},
		MinMemoryBytes:   MinMemoryBytes,
		Now:              time.Now,
		state:            OrchestratorState{Stage: StageLoadConfig},
	}
}

// State returns a snapshot of the orchestrator's current position.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) advance(stage Stage) {
	o.mu.Lock()
	o.state = OrchestratorState{Stage: stage}
	o.mu.Unlock()
}

func (o *Orchestrator) fail(stage Stage, err error) error {
	o.mu.Lock()
	o.state = OrchestratorState{Stage: stage, Failed: true, FailureReason: err.Error()}
	o.mu.Unlock()
	return err
}

// Boot runs the full pipeline of spec.md §4.2 for a single boot attempt,
// building its BootConfig from a command line via NewBootConfigFromCmdline.
// Use BootWithConfig directly when the caller needs to pass a config that
// NewBootConfigFromCmdline cannot express, such as one built with
// WithGraphics.
func (o *Orchestrator) Boot(protocol Protocol, cmdline string) (*BootInfo, error) {
	o.advance(StageLoadConfig)
	cfg, err := NewBootConfigFromCmdline(protocol, cmdline)
	if err != nil {
		return nil, o.fail(StageLoadConfig, err)
	}
	return o.BootWithConfig(cfg)
}

// BootWithConfig runs the full pipeline of spec.md §4.2 for a single boot
// attempt against an already-built BootConfig: DetectHardware,
// ValidatePrerequisites, InitGraphics (if requested), AssembleBootInfo,
// LoadKernel, Validate, Publish. No stage begins until the previous one has
// succeeded; any failure places the orchestrator in Failed and is never
// retried here (spec.md's "retries are a platform concern" — that's the
// caller's watchdog, not this type).
func (o *Orchestrator) BootWithConfig(cfg *BootConfig) (*BootInfo, error) {
	log := logging.WithComponent(logging.Default(), "boot")
	bc := &BootContext{StartedAt: o.Now()}

	o.advance(StageLoadConfig)
	bc.Config = cfg
	log.Info("config loaded", "protocol", cfg.Protocol.String())

	// Stage 2: DetectHardware.
	o.advance(StageDetectHardware)
	if err := RunHooks(o.Hooks, HookPreDetectHardware, bc); err != nil {
		return nil, o.fail(StageDetectHardware, err)
	}
	if o.HardwareDetector == nil {
		return nil, o.fail(StageDetectHardware, kerrors.WrapWithDetail(kerrors.ErrServiceNotResolved,
			kerrors.ErrKindServiceResolution, "detect_hardware", "no HardwareDetectionService configured"))
	}
	hw, err := o.HardwareDetector.DetectHardware()
	if err != nil {
		return nil, o.fail(StageDetectHardware, kerrors.Wrap(err, kerrors.ErrKindHardware, "detect_hardware"))
	}
	bc.Hardware = hw
	log.Info("hardware detected", "available_bytes", hw.TotalAvailable())

	// Stage 3: ValidatePrerequisites.
	o.advance(StageValidatePrerequisites)
	if err := o.validatePrerequisites(cfg, hw); err != nil {
		return nil, o.fail(StageValidatePrerequisites, err)
	}
	if err := RunHooks(o.Hooks, HookPostValidate, bc); err != nil {
		return nil, o.fail(StageValidatePrerequisites, err)
	}

	// Stage 4: InitGraphics (optional).
	o.advance(StageInitGraphics)
	var fb *GraphicsFramebufferInfo
	if cfg.GraphicsMode != nil {
		if !hw.Graphics.Supported {
			return nil, o.fail(StageInitGraphics, kerrors.WrapWithDetail(kerrors.ErrHardwareUnsupported,
				kerrors.ErrKindHardware, "init_graphics", "graphics requested but not supported by detected hardware"))
		}
		fb = &GraphicsFramebufferInfo{
			Width:  cfg.GraphicsMode.Width,
			Height: cfg.GraphicsMode.Height,
			BPP:    cfg.GraphicsMode.BPP,
		}
		o.Publisher.Publish(Event{Kind: EventGraphicsInitialized, Stage: StageInitGraphics, Detail: "graphics mode initialized"})
	}

	// Stage 5: AssembleBootInfo.
	o.advance(StageAssembleBootInfo)
	if err := RunHooks(o.Hooks, HookPreKernelLoad, bc); err != nil {
		return nil, o.fail(StageAssembleBootInfo, err)
	}
	info := NewBootInfo(cfg, hw)
	info.Graphics = fb
	bc.Info = info

	// Stage 6: LoadKernel.
	o.advance(StageLoadKernel)
	if o.KernelLoader == nil {
		return nil, o.fail(StageLoadKernel, kerrors.WrapWithDetail(kerrors.ErrServiceNotResolved,
			kerrors.ErrKindServiceResolution, "load_kernel", "no KernelLoader configured"))
	}
	kinfo, err := o.KernelLoader.LoadKernel(hw.MemoryMap)
	if err != nil {
		return nil, o.fail(StageLoadKernel, err)
	}
	info.KernelInfo = kinfo
	log.Info("kernel loaded", "load_addr", fmt.Sprintf("0x%x", kinfo.LoadAddr), "entry", fmt.Sprintf("0x%x", kinfo.EntryPoint))

	// Stage 7: Validate.
	o.advance(StageValidate)
	info.BootTimestamp = uint64(o.Now().Sub(bc.StartedAt).Nanoseconds())
	if info.BootTimestamp == 0 {
		info.BootTimestamp = 1 // monotonic ns since boot start must be nonzero on success
	}
	if err := info.Validate(); err != nil {
		return nil, o.fail(StageValidate, err)
	}

	// Stage 8: Publish BootReady.
	o.advance(StagePublish)
	o.Publisher.Publish(Event{Kind: EventBootReady, Stage: StagePublish, Timestamp: info.BootTimestamp, Detail: "boot sequence complete"})
	if err := RunHooks(o.Hooks, HookPostBootReady, bc); err != nil {
		return nil, o.fail(StagePublish, err)
	}

	o.advance(StageReady)
	log.Info("boot ready", "timestamp_ns", info.BootTimestamp)
	return info, nil
}

// validatePrerequisites checks spec.md §4.2 stage 3's invariants: CPU
// features, memory minimum, protocol support.
func (o *Orchestrator) validatePrerequisites(cfg *BootConfig, hw HardwareInfo) error {
	if !hw.CPUFeatures.LongMode {
		return kerrors.WrapWithDetail(kerrors.ErrHardwareUnsupported, kerrors.ErrKindHardware,
			"validate_prerequisites", "CPU does not support long mode")
	}
	if cfg.Protocol != ProtocolBIOS && cfg.Protocol != ProtocolUEFI && cfg.Protocol != ProtocolMultiboot2 {
		return kerrors.WrapWithDetail(kerrors.ErrInvalidBootConfig, kerrors.ErrKindConfiguration,
			"validate_prerequisites", "unsupported boot protocol")
	}
	min := o.MinMemoryBytes
	if min == 0 {
		min = MinMemoryBytes
	}
	if hw.TotalAvailable() < min {
		return kerrors.WrapWithDetail(kerrors.ErrHardwareUnsupported, kerrors.ErrKindHardware,
			"validate_prerequisites", fmt.Sprintf("available memory %d below minimum %d", hw.TotalAvailable(), min))
	}
	return nil
}
