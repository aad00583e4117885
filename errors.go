package bootloader

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Sentinel errors for the handoff sequence and its layout contract.
var (
	// ErrBadEntryEL reports a reset exception level the sequence cannot
	// start from (EL0 or an unarchitected value).
	ErrBadEntryEL = errors.New("boot: invalid entry exception level")

	// ErrStackAlign reports a boot stack base that violates the
	// 16-byte AAPCS64 alignment.
	ErrStackAlign = errors.New("boot: stack base not 16-byte aligned")

	// ErrStackRange reports a per-core stack region that does not fit
	// inside guest memory.
	ErrStackRange = errors.New("boot: stack region outside memory")

	// ErrBSSAlign reports BSS bounds that are not KernelAlign
	// multiples.
	ErrBSSAlign = errors.New("boot: bss bounds not 0x1000-aligned")

	// ErrBSSRange reports inverted or out-of-memory BSS bounds.
	ErrBSSRange = errors.New("boot: bss region invalid")

	// ErrRegionOverlap reports a boot stack that intersects the BSS.
	ErrRegionOverlap = errors.New("boot: stack and bss regions overlap")

	// ErrNoEntry reports a kernel entry point that is zero or outside
	// guest memory.
	ErrNoEntry = errors.New("boot: kernel entry invalid")

	// ErrEntryAlign reports a kernel entry that is not 4-byte aligned;
	// A64 instructions are word-sized.
	ErrEntryAlign = errors.New("boot: kernel entry not instruction-aligned")

	// ErrKernelEntered reports a second kernel entry on a core that
	// already handed off.
	ErrKernelEntered = errors.New("boot: kernel already entered on this core")

	// ErrIllegalReturn reports an exception return the architecture
	// would reject: upward drop, AArch32 target without support, or a
	// register-width configuration that contradicts the SPSR.
	ErrIllegalReturn = errors.New("boot: illegal exception return")

	// ErrNoStack reports a kernel entry attempted before the stack
	// pointer was established.
	ErrNoStack = errors.New("boot: stack pointer not established")
)

// isProductionEnv checks if we're running in production environment
func isProductionEnv() bool {
	env := os.Getenv("BOOT_ENV")
	if env == "production" || env == "prod" {
		return true
	}

	// Check if debug mode is explicitly disabled
	if debug := os.Getenv("BOOT_DEBUG"); debug != "" {
		if val, err := strconv.ParseBool(debug); err == nil && !val {
			return true
		}
	}

	return false
}

// detailErr wraps a sentinel with the offending values in development
// and returns the bare sentinel in production.
func detailErr(sentinel error, format string, args ...any) error {
	if isProductionEnv() {
		return sentinel
	}
	args = append(args, sentinel)
	return fmt.Errorf(format+": %w", args...)
}
