//go:build darwin && arm64

package hvf

/*
#cgo darwin LDFLAGS: -framework Hypervisor
#include <Hypervisor/hv.h>
#include <Hypervisor/hv_vm.h>
#include <Hypervisor/hv_vm_config.h>
#include <Hypervisor/hv_vcpu.h>
#include <Hypervisor/hv_vcpu_types.h>
#include <os/object.h>

// Create the VM with the platform default IPA size where the config
// API exists, falling back to a NULL config on older SDKs.
static hv_return_t go_hv_vm_create_with_cfg() {
#if __has_include(<Hypervisor/hv_vm_config.h>)
	hv_vm_config_t config = hv_vm_config_create();
	if (!config) {
		return HV_ERROR;
	}

	uint32_t default_ipa_size = 0;
	hv_return_t ret = hv_vm_config_get_default_ipa_size(&default_ipa_size);
	if (ret == HV_SUCCESS) {
		ret = hv_vm_config_set_ipa_size(config, default_ipa_size);
		if (ret != HV_SUCCESS) {
			os_release(config);
			return ret;
		}
	}

	ret = hv_vm_create(config);
	os_release(config);
	return ret;
#else
	return hv_vm_create(NULL);
#endif
}

static hv_return_t go_hv_vcpu_create(hv_vcpu_t *vcpu, hv_vcpu_exit_t **exit) {
	return hv_vcpu_create(vcpu, exit, NULL);
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

var (
	vmMu     sync.Mutex
	vmActive bool
)

// NewVM creates the process's hypervisor VM. The framework allows one
// per process; a second call fails with ErrVMAlreadyActive until the
// first VM is closed.
func NewVM() (*VM, error) {
	vmMu.Lock()
	defer vmMu.Unlock()

	if vmActive {
		return nil, ErrVMAlreadyActive
	}

	if err := hvErr(uint32(C.go_hv_vm_create_with_cfg())); err != nil {
		return nil, fmt.Errorf("hvf: creating VM: %w", err)
	}

	vmActive = true
	vm := &VM{}

	// Safety net in case Close is never called.
	runtime.SetFinalizer(vm, (*VM).finalize)

	return vm, nil
}

// Close destroys the VM. Idempotent. Cores and RAM created from the
// VM must be closed first.
func (vm *VM) Close() error {
	if vm == nil {
		return nil
	}

	vm.closeMu.Lock()
	defer vm.closeMu.Unlock()

	if vm.closed {
		return nil
	}

	vmMu.Lock()
	defer vmMu.Unlock()

	if !vmActive {
		return nil
	}

	if err := hvErr(uint32(C.hv_vm_destroy())); err != nil {
		return fmt.Errorf("hvf: destroying VM: %w", err)
	}

	vm.closed = true
	vmActive = false
	runtime.SetFinalizer(vm, nil)
	return nil
}

func (vm *VM) finalize() {
	if vm == nil {
		return
	}
	// Non-blocking: a finalizer must never wait on a lock the caller
	// of Close might hold.
	if vm.closeMu.TryLock() {
		defer vm.closeMu.Unlock()
		if !vm.closed {
			vm.closed = true
			vmMu.Lock()
			if vmActive {
				C.hv_vm_destroy()
				vmActive = false
			}
			vmMu.Unlock()
		}
	}
}

// NewCore creates a vCPU and installs the architected entry state the
// handoff assumes: EL1h with all four exception masks set, and an
// MPIDR carrying the core index.
func (vm *VM) NewCore(id int) (*Core, error) {
	if vm == nil {
		return nil, fmt.Errorf("hvf: VM is nil")
	}

	vm.closeMu.Lock()
	defer vm.closeMu.Unlock()

	if vm.closed {
		return nil, ErrVMClosed
	}
	if id < 0 {
		return nil, fmt.Errorf("hvf: negative core id %d", id)
	}

	var vcpu C.hv_vcpu_t
	var exit *C.hv_vcpu_exit_t
	if err := hvErr(uint32(C.go_hv_vcpu_create(&vcpu, &exit))); err != nil {
		return nil, fmt.Errorf("hvf: creating vCPU: %w", err)
	}

	c := &Core{id: id, vcpu: uint64(vcpu), exit: unsafe.Pointer(exit)}
	if err := c.resetState(); err != nil {
		C.hv_vcpu_destroy(vcpu)
		return nil, fmt.Errorf("hvf: core %d reset state: %w", id, err)
	}

	runtime.SetFinalizer(c, (*Core).finalize)
	return c, nil
}

// resetState programs the registers a fresh core is defined to start
// with. Runs before the core is published, without the lock.
func (c *Core) resetState() error {
	if err := c.setReg(C.HV_REG_CPSR, arm64.SPSRKernel); err != nil {
		return err
	}
	return c.setSys(C.HV_SYS_REG_MPIDR_EL1, 1<<31|uint64(c.id))
}

// Close destroys the vCPU. Idempotent.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}

	if err := hvErr(uint32(C.hv_vcpu_destroy(C.hv_vcpu_t(c.vcpu)))); err != nil {
		return fmt.Errorf("hvf: destroying vCPU: %w", err)
	}

	c.closed = true
	runtime.SetFinalizer(c, nil)
	return nil
}

func (c *Core) finalize() {
	if c == nil {
		return
	}
	if c.closeMu.TryLock() {
		closed := c.closed
		c.closeMu.Unlock()
		if !closed {
			c.Close()
		}
	}
}
