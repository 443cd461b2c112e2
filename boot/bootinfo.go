package boot

import (
	"encoding/binary"

	kerrors "nanokernel/errors"
)

// bootMagic is the platform-fixed constant identifying a valid BootInfo
// blob (spec.md §6).
var bootMagic = binary.BigEndian.Uint64([]byte("NANOKRNL"))

const (
	regionWireSize = 20 // start u64 + size u64 + type u32
	headerWireSize = 8 + 4 + 8 + 8 + 24 + 8 + 8 + 8
)

// GraphicsFramebufferInfo describes the framebuffer handed to the kernel
// when graphics init ran during boot.
type GraphicsFramebufferInfo struct {
	Address uint64
	Width   uint32
	Height  uint32
	BPP     uint8
}

// BootInfo is the final handoff record passed from the boot orchestrator
// to the kernel runtime (spec.md §3, §6).
type BootInfo struct {
	Magic          uint64
	Protocol       Protocol
	MemoryMap      []MemoryRegion
	KernelInfo     KernelInfo
	Graphics       *GraphicsFramebufferInfo
	Cmdline        string
	BootTimestamp  uint64
}

// NewBootInfo assembles a BootInfo from a configuration and detected
// hardware, leaving KernelInfo and BootTimestamp to be filled by later
// pipeline stages.
func NewBootInfo(cfg *BootConfig, hw HardwareInfo) *BootInfo {
	return &BootInfo{
		Magic:     bootMagic,
		Protocol:  cfg.Protocol,
		MemoryMap: hw.MemoryMap,
		Cmdline:   cfg.Cmdline,
	}
}

// Validate checks every invariant spec.md §3 places on a completed
// BootInfo. Any failure is fatal to the boot sequence.
func (b BootInfo) Validate() error {
	if b.Magic != bootMagic {
		return kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"validate", "magic mismatch")
	}
	if b.Protocol != ProtocolBIOS && b.Protocol != ProtocolUEFI && b.Protocol != ProtocolMultiboot2 {
		return kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"validate", "unrecognized protocol")
	}
	if err := ValidateMemoryMap(b.MemoryMap); err != nil {
		return err
	}
	if _, err := NewKernelInfo(b.KernelInfo.LoadAddr, b.KernelInfo.Size, b.KernelInfo.EntryPoint); err != nil {
		return err
	}
	if b.BootTimestamp == 0 {
		return kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"validate", "boot_timestamp must be nonzero on a successful boot")
	}
	return nil
}

// Encode serializes the BootInfo into the wire layout of spec.md §6: a
// fixed-width header followed by the memory map entries and a
// NUL-terminated command line. There is no physical address to cross in
// a hosted program, so memory_map_ptr/cmdline_ptr are byte offsets into
// the returned buffer rather than physical addresses. graphics_info_ptr
// carries the framebuffer Address itself (0 if headless); the framebuffer's
// width, height and BPP are not encoded.
func (b BootInfo) Encode() ([]byte, error) {
	mapOffset := uint64(headerWireSize)
	mapBytes := uint64(len(b.MemoryMap)) * regionWireSize
	cmdlineOffset := mapOffset + mapBytes

	cmdline := append([]byte(b.Cmdline), 0)

	var graphicsPtr uint64
	if b.Graphics != nil {
		graphicsPtr = b.Graphics.Address
	}

	buf := make([]byte, headerWireSize, uint64(headerWireSize)+mapBytes+uint64(len(cmdline)))
	binary.BigEndian.PutUint64(buf[0:8], b.Magic)
	binary.BigEndian.PutUint32(buf[8:12], uint32(b.Protocol))
	binary.BigEndian.PutUint64(buf[12:20], mapOffset)
	binary.BigEndian.PutUint64(buf[20:28], uint64(len(b.MemoryMap)))
	binary.BigEndian.PutUint64(buf[28:36], b.KernelInfo.LoadAddr)
	binary.BigEndian.PutUint64(buf[36:44], b.KernelInfo.Size)
	binary.BigEndian.PutUint64(buf[44:52], b.KernelInfo.EntryPoint)
	binary.BigEndian.PutUint64(buf[52:60], graphicsPtr)
	binary.BigEndian.PutUint64(buf[60:68], cmdlineOffset)
	binary.BigEndian.PutUint64(buf[68:76], b.BootTimestamp)

	for _, r := range b.MemoryMap {
		entry := make([]byte, regionWireSize)
		binary.BigEndian.PutUint64(entry[0:8], r.Start)
		binary.BigEndian.PutUint64(entry[8:16], r.Size)
		binary.BigEndian.PutUint32(entry[16:20], uint32(r.Type))
		buf = append(buf, entry...)
	}

	buf = append(buf, cmdline...)
	return buf, nil
}

// DecodeBootInfo reverses Encode.
func DecodeBootInfo(data []byte) (*BootInfo, error) {
	if len(data) < headerWireSize {
		return nil, kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"decode", "buffer shorter than boot info header")
	}

	magic := binary.BigEndian.Uint64(data[0:8])
	protocol := Protocol(binary.BigEndian.Uint32(data[8:12]))
	mapOffset := binary.BigEndian.Uint64(data[12:20])
	mapLen := binary.BigEndian.Uint64(data[20:28])
	loadAddr := binary.BigEndian.Uint64(data[28:36])
	size := binary.BigEndian.Uint64(data[36:44])
	entryPoint := binary.BigEndian.Uint64(data[44:52])
	graphicsPtr := binary.BigEndian.Uint64(data[52:60])
	cmdlineOffset := binary.BigEndian.Uint64(data[60:68])
	timestamp := binary.BigEndian.Uint64(data[68:76])

	mapEnd := mapOffset + mapLen*regionWireSize
	if uint64(len(data)) < mapEnd || uint64(len(data)) < cmdlineOffset {
		return nil, kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"decode", "buffer truncated before declared memory map or command line")
	}

	regions := make([]MemoryRegion, 0, mapLen)
	for off := mapOffset; off < mapEnd; off += regionWireSize {
		regions = append(regions, MemoryRegion{
			Start: binary.BigEndian.Uint64(data[off : off+8]),
			Size:  binary.BigEndian.Uint64(data[off+8 : off+16]),
			Type:  RegionType(binary.BigEndian.Uint32(data[off+16 : off+20])),
		})
	}

	cmdlineBytes := data[cmdlineOffset:]
	nul := len(cmdlineBytes)
	for i, c := range cmdlineBytes {
		if c == 0 {
			nul = i
			break
		}
	}

	var graphics *GraphicsFramebufferInfo
	if graphicsPtr != 0 {
		graphics = &GraphicsFramebufferInfo{Address: graphicsPtr}
	}

	return &BootInfo{
		Magic:         magic,
		Protocol:      protocol,
		MemoryMap:     regions,
		KernelInfo:    KernelInfo{LoadAddr: loadAddr, Size: size, EntryPoint: entryPoint},
		Graphics:      graphics,
		Cmdline:       string(cmdlineBytes[:nul]),
		BootTimestamp: timestamp,
	}, nil
}
