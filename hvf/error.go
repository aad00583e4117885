package hvf

import (
	"fmt"
	"os"
	"strconv"
)

// Hypervisor framework hv_return_t values for ARM64.
const (
	HV_SUCCESS             uint32 = 0x00000000
	HV_ERROR               uint32 = 0xFAE94001
	HV_BUSY                uint32 = 0xFAE94002
	HV_BAD_ARGUMENT        uint32 = 0xFAE94003
	HV_ILLEGAL_GUEST_STATE uint32 = 0xFAE94004
	HV_NO_RESOURCES        uint32 = 0xFAE94005
	HV_NO_DEVICE           uint32 = 0xFAE94006
	HV_DENIED              uint32 = 0xFAE94007
	HV_EXISTS              uint32 = 0xFAE94008
	HV_UNSUPPORTED         uint32 = 0xFAE9400F
)

// HVError wraps an hv_return_t error code.
// Code stores the raw 32-bit hv_return_t value (often 0xFAE940xx).
type HVError struct {
	Code    uint32
	message string // overrides the code-derived text when set
}

func (e HVError) Error() string {
	if e.message != "" {
		return e.message
	}
	if isProductionEnv() {
		return e.sanitizedError()
	}
	return e.detailedError()
}

// detailedError carries full context for development builds.
func (e HVError) detailedError() string {
	switch e.Code {
	case HV_SUCCESS:
		return "hvf: success"
	case HV_ERROR:
		return "hvf: general error (HV_ERROR) - check system requirements and API usage"
	case HV_BUSY:
		return "hvf: resource busy (HV_BUSY) - another operation is in progress"
	case HV_BAD_ARGUMENT:
		return "hvf: invalid argument (HV_BAD_ARGUMENT) - check parameter values and alignment"
	case HV_ILLEGAL_GUEST_STATE:
		return "hvf: illegal guest state (HV_ILLEGAL_GUEST_STATE) - guest CPU state is invalid"
	case HV_NO_RESOURCES:
		return "hvf: insufficient resources (HV_NO_RESOURCES) - system memory or limits exceeded"
	case HV_NO_DEVICE:
		return "hvf: device not found (HV_NO_DEVICE) - hardware virtualization unavailable"
	case HV_DENIED:
		return "hvf: access denied (HV_DENIED) - missing entitlement 'com.apple.security.hypervisor' or insufficient privileges"
	case HV_EXISTS:
		return "hvf: resource exists (HV_EXISTS) - VM or vCPU already created"
	case HV_UNSUPPORTED:
		return "hvf: operation unsupported (HV_UNSUPPORTED) - feature not available on this hardware/OS"
	default:
		return fmt.Sprintf("hvf: unknown error code 0x%08x - consult the Hypervisor framework documentation", e.Code)
	}
}

// sanitizedError keeps production messages down to the category.
func (e HVError) sanitizedError() string {
	switch e.Code {
	case HV_SUCCESS:
		return "hvf: success"
	case HV_ERROR:
		return "hvf: general error"
	case HV_BUSY:
		return "hvf: resource busy"
	case HV_BAD_ARGUMENT:
		return "hvf: invalid argument"
	case HV_ILLEGAL_GUEST_STATE:
		return "hvf: illegal guest state"
	case HV_NO_RESOURCES:
		return "hvf: insufficient resources"
	case HV_NO_DEVICE:
		return "hvf: device not found"
	case HV_DENIED:
		return "hvf: access denied"
	case HV_EXISTS:
		return "hvf: resource exists"
	case HV_UNSUPPORTED:
		return "hvf: operation unsupported"
	default:
		return "hvf: hypervisor error"
	}
}

// isProductionEnv mirrors the environment contract of the rest of the
// repository: BOOT_ENV selects production, BOOT_DEBUG=false does too.
func isProductionEnv() bool {
	env := os.Getenv("BOOT_ENV")
	if env == "production" || env == "prod" {
		return true
	}
	if debug := os.Getenv("BOOT_DEBUG"); debug != "" {
		if val, err := strconv.ParseBool(debug); err == nil && !val {
			return true
		}
	}
	return false
}

// hvErr converts a framework return code into an error, nil on success.
func hvErr(code uint32) error {
	if code == HV_SUCCESS {
		return nil
	}
	return HVError{Code: code}
}

// Common specific errors for API consumers.
var (
	ErrVMClosed         = &HVError{Code: HV_ERROR, message: "hvf: VM is closed"}
	ErrCoreClosed       = &HVError{Code: HV_ERROR, message: "hvf: core is closed"}
	ErrInvalidAlignment = &HVError{Code: HV_BAD_ARGUMENT, message: "hvf: address not page-aligned"}
	ErrInvalidRegister  = &HVError{Code: HV_BAD_ARGUMENT, message: "hvf: register not reachable from a framework guest"}
	ErrVMAlreadyActive  = &HVError{Code: HV_BUSY, message: "hvf: VM already active in this process"}
)
