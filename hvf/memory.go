//go:build darwin && arm64

package hvf

/*
#cgo darwin LDFLAGS: -framework Hypervisor
#include <Hypervisor/hv.h>
#include <Hypervisor/hv_vm.h>

static hv_return_t go_hv_vm_map(void *addr, uint64_t gpa, uint64_t size, int r, int w, int x) {
	hv_memory_flags_t flags = 0;
	if (r) flags |= HV_MEMORY_READ;
	if (w) flags |= HV_MEMORY_WRITE;
	if (x) flags |= HV_MEMORY_EXEC;
	return hv_vm_map(addr, (hv_ipa_t)gpa, (size_t)size, flags);
}

static hv_return_t go_hv_vm_unmap(uint64_t gpa, uint64_t size) {
	return hv_vm_unmap((hv_ipa_t)gpa, (size_t)size);
}
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	cachedPageSize int
	cachedPageMask uint64
	pageSizeOnce   sync.Once
)

// pageSize returns the host page size, cached. Apple Silicon uses 16K
// pages; the framework rejects mappings that are not page granular.
func pageSize() int {
	pageSizeOnce.Do(func() {
		cachedPageSize = unix.Getpagesize()
		cachedPageMask = uint64(cachedPageSize - 1)
	})
	return cachedPageSize
}

func isPageAligned(addr uint64) bool {
	pageSize()
	return addr&cachedPageMask == 0
}

// Map maps a host memory slice into the guest physical address space.
// The slice base address, its length, and guestPhys must all be page
// granular. The caller keeps host alive for as long as the mapping
// exists; AllocMemory packages that obligation up.
func (vm *VM) Map(host []byte, guestPhys uint64, perms MemPerm) error {
	if vm == nil {
		return fmt.Errorf("hvf: VM is nil")
	}

	vm.closeMu.Lock()
	defer vm.closeMu.Unlock()

	if vm.closed {
		return ErrVMClosed
	}
	if len(host) == 0 {
		return fmt.Errorf("hvf: map requires a non-empty host buffer")
	}
	if len(host) > math.MaxInt32 {
		return fmt.Errorf("hvf: host buffer too large (max %d bytes)", math.MaxInt32)
	}
	if guestPhys > math.MaxUint64-uint64(len(host)) {
		return fmt.Errorf("hvf: guest address range would overflow")
	}
	if perms == 0 {
		return fmt.Errorf("hvf: map requires at least one permission")
	}
	if valid := MemRead | MemWrite | MemExec; perms&^valid != 0 {
		return fmt.Errorf("hvf: invalid permission bits %#x (valid: %#x)", perms, valid)
	}
	if !isPageAligned(guestPhys) {
		return fmt.Errorf("hvf: guest address %#x: %w", guestPhys, ErrInvalidAlignment)
	}
	if !isPageAligned(uint64(len(host))) {
		return fmt.Errorf("hvf: host length %d is not a page multiple", len(host))
	}

	ptr := unsafe.Pointer(&host[0])
	if !isPageAligned(uint64(uintptr(ptr))) {
		return fmt.Errorf("hvf: host base %p: %w", ptr, ErrInvalidAlignment)
	}

	read, write, exec := 0, 0, 0
	if perms&MemRead != 0 {
		read = 1
	}
	if perms&MemWrite != 0 {
		write = 1
	}
	if perms&MemExec != 0 {
		exec = 1
	}

	ret := C.go_hv_vm_map(ptr, C.uint64_t(guestPhys), C.uint64_t(uint64(len(host))),
		C.int(read), C.int(write), C.int(exec))
	runtime.KeepAlive(host)
	if err := hvErr(uint32(ret)); err != nil {
		return fmt.Errorf("hvf: mapping %d bytes at %#x with perms %#x: %w",
			len(host), guestPhys, perms, err)
	}
	return nil
}

// Unmap removes a region from the guest physical address space.
func (vm *VM) Unmap(guestPhys, size uint64) error {
	if vm == nil {
		return fmt.Errorf("hvf: VM is nil")
	}

	vm.closeMu.Lock()
	defer vm.closeMu.Unlock()

	if vm.closed {
		return ErrVMClosed
	}
	if size == 0 {
		return fmt.Errorf("hvf: unmap requires a non-zero size")
	}
	if size > math.MaxInt32 {
		return fmt.Errorf("hvf: unmap size too large (max %d bytes)", math.MaxInt32)
	}
	if guestPhys > math.MaxUint64-size {
		return fmt.Errorf("hvf: guest address range would overflow")
	}
	if !isPageAligned(guestPhys) {
		return fmt.Errorf("hvf: guest address %#x: %w", guestPhys, ErrInvalidAlignment)
	}
	if !isPageAligned(size) {
		return fmt.Errorf("hvf: unmap size %d is not a page multiple", size)
	}

	if err := hvErr(uint32(C.go_hv_vm_unmap(C.uint64_t(guestPhys), C.uint64_t(size)))); err != nil {
		return fmt.Errorf("hvf: unmapping %#x+%d: %w", guestPhys, size, err)
	}
	return nil
}

// AllocMemory allocates size bytes of zeroed, page-aligned host memory
// and maps it into the guest at base with full permissions. The
// returned window satisfies the boot path's memory contract.
func (vm *VM) AllocMemory(base, size uint64) (*RAM, error) {
	if vm == nil {
		return nil, fmt.Errorf("hvf: VM is nil")
	}
	if size == 0 || !isPageAligned(size) {
		return nil, fmt.Errorf("hvf: ram size %#x is not a page multiple", size)
	}
	if uint64(int(size)) != size {
		return nil, fmt.Errorf("hvf: ram size %#x overflows the host", size)
	}
	if !isPageAligned(base) {
		return nil, fmt.Errorf("hvf: ram base %#x: %w", base, ErrInvalidAlignment)
	}

	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("hvf: allocating %d MiB guest ram: %w", size>>20, err)
	}
	if err := vm.Map(buf, base, MemRead|MemWrite|MemExec); err != nil {
		unix.Munmap(buf)
		return nil, err
	}
	return &RAM{vm: vm, base: base, data: buf, mapped: true}, nil
}

func (r *RAM) free() error {
	data, mapped := r.data, r.mapped
	r.data, r.mapped = nil, false
	if data == nil {
		return nil
	}

	var first error
	if mapped && r.vm != nil && !r.vm.Closed() {
		first = r.vm.Unmap(r.base, uint64(len(data)))
	}
	if err := unix.Munmap(data); err != nil && first == nil {
		first = fmt.Errorf("hvf: releasing guest ram: %w", err)
	}
	return first
}
