//go:build !darwin || !arm64

package hvf

import (
	"fmt"

	"github.com/yoshipep/aarch64-bootloader/arm64"
)

var errUnsupported = fmt.Errorf("hvf: not supported on this platform")

// Supported reports false away from darwin/arm64 hosts.
func Supported() (bool, error) {
	return false, errUnsupported
}

// NewVM fails away from darwin/arm64 hosts.
func NewVM() (*VM, error) {
	return nil, errUnsupported
}

func (vm *VM) Close() error { return errUnsupported }

func (vm *VM) Map(host []byte, guestPhys uint64, perms MemPerm) error { return errUnsupported }

func (vm *VM) Unmap(guestPhys, size uint64) error { return errUnsupported }

func (vm *VM) AllocMemory(base, size uint64) (*RAM, error) { return nil, errUnsupported }

func (vm *VM) NewCore(id int) (*Core, error) { return nil, errUnsupported }

func (c *Core) Close() error { return errUnsupported }

func (c *Core) CurrentEL() (arm64.EL, error) { return 0, errUnsupported }

func (c *Core) GetReg(r Reg) (uint64, error) { return 0, errUnsupported }

func (c *Core) SetReg(r Reg, v uint64) error { return errUnsupported }

func (c *Core) ReadSys(r arm64.SysReg) (uint64, error) { return 0, errUnsupported }

func (c *Core) WriteSys(r arm64.SysReg, v uint64) error { return errUnsupported }

func (c *Core) SetSP(v uint64) error { return errUnsupported }

func (c *Core) SP() (uint64, error) { return 0, errUnsupported }

func (c *Core) DropEL(spsr uint64) error { return errUnsupported }

func (c *Core) Enter(entry uint64) error { return errUnsupported }

func (c *Core) Run() (ExitInfo, error) { return ExitInfo{}, errUnsupported }

func (r *RAM) free() error { return nil }
