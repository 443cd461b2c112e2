// Package boot implements the staged boot orchestrator: configuration,
// hardware detection, kernel loading, and the BootInfo handoff record
// passed to the kernel runtime.
package boot

import (
	"strconv"
	"strings"

	kerrors "nanokernel/errors"
)

// Protocol identifies the firmware boot protocol that produced the
// environment the bootloader runs under.
type Protocol uint32

const (
	// ProtocolBIOS is legacy BIOS/MBR boot.
	ProtocolBIOS Protocol = 1
	// ProtocolUEFI is UEFI boot.
	ProtocolUEFI Protocol = 2
	// ProtocolMultiboot2 is a Multiboot2-compliant loader (e.g. GRUB).
	ProtocolMultiboot2 Protocol = 3
)

// String returns a human-readable protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolBIOS:
		return "bios"
	case ProtocolUEFI:
		return "uefi"
	case ProtocolMultiboot2:
		return "multiboot2"
	default:
		return "unknown"
	}
}

// BootPhase marks where in the boot sequence a BootConfig was produced,
// distinct from the orchestrator's own stage state machine.
type BootPhase int

const (
	PhaseEarly BootPhase = iota
	PhaseConfigured
)

// BootConfig is the normalised, immutable-once-produced configuration for
// a single boot attempt.
type BootConfig struct {
	Protocol      Protocol
	GraphicsMode  *GraphicsMode
	Cmdline       string
	Phase         BootPhase
	Options       map[string]string
	Quiet         bool
	Debug         bool
	MemoryBytes   uint64 // from mem=<bytes>, 0 if unspecified
	NoAPIC        bool
	NoSMP         bool
	ConsoleDevice string
	RootPath      string
}

// GraphicsMode is the requested display mode, if graphics init is enabled.
type GraphicsMode struct {
	Width  uint32
	Height uint32
	BPP    uint8
}

// DefaultBootConfig returns the configuration used when no command line is
// supplied.
func DefaultBootConfig(protocol Protocol) *BootConfig {
	return &BootConfig{
		Protocol: protocol,
		Cmdline:  "",
		Phase:    PhaseConfigured,
		Options:  map[string]string{},
	}
}

// NewBootConfigFromCmdline parses a kernel command line (spec.md §6):
// whitespace-separated key=value pairs, unknown keys ignored.
func NewBootConfigFromCmdline(protocol Protocol, cmdline string) (*BootConfig, error) {
	cfg := &BootConfig{
		Protocol: protocol,
		Cmdline:  cmdline,
		Phase:    PhaseConfigured,
		Options:  map[string]string{},
	}

	for _, tok := range strings.Fields(cmdline) {
		key, value, hasValue := strings.Cut(tok, "=")
		cfg.Options[key] = value

		switch key {
		case "quiet":
			cfg.Quiet = true
		case "debug":
			cfg.Debug = true
		case "noapic":
			cfg.NoAPIC = true
		case "nosmp":
			cfg.NoSMP = true
		case "console":
			if hasValue {
				cfg.ConsoleDevice = value
			}
		case "root":
			if hasValue {
				cfg.RootPath = value
			}
		case "mem":
			if hasValue {
				n, err := strconv.ParseUint(value, 10, 64)
				if err != nil {
					return nil, kerrors.WrapWithDetail(kerrors.ErrInvalidBootConfig, kerrors.ErrKindConfiguration,
						"parse_cmdline", "mem= value is not a valid integer: "+value)
				}
				cfg.MemoryBytes = n
			}
		}
	}

	return cfg, nil
}

// WithGraphics returns a copy of the config requesting the given graphics
// mode.
func (c BootConfig) WithGraphics(mode GraphicsMode) *BootConfig {
	c.GraphicsMode = &mode
	return &c
}
