//go:build darwin && arm64

package hvf

import (
	"golang.org/x/sys/unix"
)

// Supported reports whether the hypervisor is available on this host.
// Creation can still fail afterwards when the binary lacks the
// com.apple.security.hypervisor entitlement.
func Supported() (bool, error) {
	supported, err := unix.SysctlUint32("kern.hv_support")
	if err != nil {
		return false, err
	}
	return supported != 0, nil
}
