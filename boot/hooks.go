package boot

import (
	"fmt"

	kerrors "nanokernel/errors"
)

// HookPoint identifies where in the orchestrator pipeline a set of hooks
// runs. Unlike an OCI runtime's lifecycle hooks, these run in-process —
// there is no subprocess to exec before an OS exists.
type HookPoint int

const (
	HookPreDetectHardware HookPoint = iota
	HookPostValidate
	HookPreKernelLoad
	HookPostBootReady
)

// String returns a human-readable hook point name.
func (p HookPoint) String() string {
	switch p {
	case HookPreDetectHardware:
		return "pre_detect_hardware"
	case HookPostValidate:
		return "post_validate"
	case HookPreKernelLoad:
		return "pre_kernel_load"
	case HookPostBootReady:
		return "post_boot_ready"
	default:
		return "unknown"
	}
}

// Hook is a single boot-stage callback. It receives the in-progress
// BootContext and may inspect or veto the boot by returning an error.
type Hook func(*BootContext) error

// HookSet maps a HookPoint to the ordered list of hooks run at that point.
type HookSet map[HookPoint][]Hook

// RunHooks executes every hook registered at point, in registration order,
// stopping at the first failure. A failing hook aborts the boot — there is
// no partial-success notion for a hook set.
func RunHooks(hooks HookSet, point HookPoint, bc *BootContext) error {
	for i, h := range hooks[point] {
		if err := h(bc); err != nil {
			return kerrors.WrapWithDetail(kerrors.ErrHookFailed, kerrors.ErrKindBootValidation,
				"run_hooks", fmt.Sprintf("%s hook #%d failed: %v", point, i, err))
		}
	}
	return nil
}
