package bootloader

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrBadEntryEL", err: ErrBadEntryEL, expected: "boot: invalid entry exception level"},
		{name: "ErrStackAlign", err: ErrStackAlign, expected: "boot: stack base not 16-byte aligned"},
		{name: "ErrStackRange", err: ErrStackRange, expected: "boot: stack region outside memory"},
		{name: "ErrBSSAlign", err: ErrBSSAlign, expected: "boot: bss bounds not 0x1000-aligned"},
		{name: "ErrBSSRange", err: ErrBSSRange, expected: "boot: bss region invalid"},
		{name: "ErrRegionOverlap", err: ErrRegionOverlap, expected: "boot: stack and bss regions overlap"},
		{name: "ErrNoEntry", err: ErrNoEntry, expected: "boot: kernel entry invalid"},
		{name: "ErrEntryAlign", err: ErrEntryAlign, expected: "boot: kernel entry not instruction-aligned"},
		{name: "ErrKernelEntered", err: ErrKernelEntered, expected: "boot: kernel already entered on this core"},
		{name: "ErrIllegalReturn", err: ErrIllegalReturn, expected: "boot: illegal exception return"},
		{name: "ErrNoStack", err: ErrNoStack, expected: "boot: stack pointer not established"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestDetailErr(t *testing.T) {
	t.Run("development mode includes offending values", func(t *testing.T) {
		t.Setenv("BOOT_ENV", "")
		t.Setenv("BOOT_DEBUG", "")

		err := detailErr(ErrStackAlign, "stack base %#x", uint64(0x4000_0008))
		if !errors.Is(err, ErrStackAlign) {
			t.Errorf("detailErr() = %v, want wrapped ErrStackAlign", err)
		}
		if !strings.Contains(err.Error(), "0x40000008") {
			t.Errorf("Error message %q should contain the offending address", err.Error())
		}
	})

	t.Run("production mode returns the bare sentinel", func(t *testing.T) {
		t.Setenv("BOOT_ENV", "production")

		err := detailErr(ErrStackAlign, "stack base %#x", uint64(0x4000_0008))
		if err != ErrStackAlign {
			t.Errorf("detailErr() = %v, want bare ErrStackAlign", err)
		}
	})
}

func TestIsProductionEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		debug string
		want  bool
	}{
		{name: "default", want: false},
		{name: "BOOT_ENV production", env: "production", want: true},
		{name: "BOOT_ENV prod", env: "prod", want: true},
		{name: "BOOT_ENV development", env: "development", want: false},
		{name: "BOOT_DEBUG false", debug: "false", want: true},
		{name: "BOOT_DEBUG 0", debug: "0", want: true},
		{name: "BOOT_DEBUG true", debug: "true", want: false},
		{name: "BOOT_DEBUG unparseable", debug: "banana", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOOT_ENV", tt.env)
			t.Setenv("BOOT_DEBUG", tt.debug)

			if got := isProductionEnv(); got != tt.want {
				t.Errorf("isProductionEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}
