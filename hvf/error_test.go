package hvf

import (
	"errors"
	"strings"
	"testing"
)

func TestHVErrorDetailed(t *testing.T) {
	t.Setenv("BOOT_ENV", "development")

	tests := []struct {
		name string
		code uint32
		want string // substring the development message must carry
	}{
		{"general", HV_ERROR, "HV_ERROR"},
		{"busy", HV_BUSY, "HV_BUSY"},
		{"bad argument", HV_BAD_ARGUMENT, "alignment"},
		{"denied", HV_DENIED, "com.apple.security.hypervisor"},
		{"unsupported", HV_UNSUPPORTED, "HV_UNSUPPORTED"},
		{"unknown code", 0xDEADBEEF, "0xdeadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := HVError{Code: tt.code}.Error()
			if !strings.Contains(msg, tt.want) {
				t.Errorf("Error() = %q, want it to mention %q", msg, tt.want)
			}
		})
	}
}

func TestHVErrorSanitized(t *testing.T) {
	t.Setenv("BOOT_ENV", "production")

	tests := []struct {
		name string
		code uint32
		want string
	}{
		{"general", HV_ERROR, "hvf: general error"},
		{"busy", HV_BUSY, "hvf: resource busy"},
		{"bad argument", HV_BAD_ARGUMENT, "hvf: invalid argument"},
		{"illegal guest state", HV_ILLEGAL_GUEST_STATE, "hvf: illegal guest state"},
		{"no resources", HV_NO_RESOURCES, "hvf: insufficient resources"},
		{"no device", HV_NO_DEVICE, "hvf: device not found"},
		{"denied", HV_DENIED, "hvf: access denied"},
		{"exists", HV_EXISTS, "hvf: resource exists"},
		{"unsupported", HV_UNSUPPORTED, "hvf: operation unsupported"},
		{"unknown code", 0xDEADBEEF, "hvf: hypervisor error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (HVError{Code: tt.code}).Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHVErrorDebugDisabled(t *testing.T) {
	t.Setenv("BOOT_DEBUG", "0")

	if got := (HVError{Code: HV_BUSY}).Error(); got != "hvf: resource busy" {
		t.Errorf("Error() with BOOT_DEBUG=0 = %q, want the sanitized message", got)
	}
}

func TestHvErr(t *testing.T) {
	if err := hvErr(HV_SUCCESS); err != nil {
		t.Errorf("hvErr(HV_SUCCESS) = %v, want nil", err)
	}

	err := hvErr(HV_NO_DEVICE)
	var hv HVError
	if !errors.As(err, &hv) {
		t.Fatalf("hvErr(HV_NO_DEVICE) = %T, want HVError", err)
	}
	if hv.Code != HV_NO_DEVICE {
		t.Errorf("Code = %#x, want %#x", hv.Code, HV_NO_DEVICE)
	}
}

func TestSentinelMessages(t *testing.T) {
	// A sentinel's fixed message wins over the environment split.
	t.Setenv("BOOT_ENV", "production")

	tests := []struct {
		err  *HVError
		code uint32
		want string
	}{
		{ErrVMClosed, HV_ERROR, "hvf: VM is closed"},
		{ErrCoreClosed, HV_ERROR, "hvf: core is closed"},
		{ErrInvalidAlignment, HV_BAD_ARGUMENT, "hvf: address not page-aligned"},
		{ErrInvalidRegister, HV_BAD_ARGUMENT, "hvf: register not reachable from a framework guest"},
		{ErrVMAlreadyActive, HV_BUSY, "hvf: VM already active in this process"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %#x, want %#x", tt.err.Code, tt.code)
			}
		})
	}
}
