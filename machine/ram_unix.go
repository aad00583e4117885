//go:build unix

package machine

import "golang.org/x/sys/unix"

// allocRAM backs guest memory with an anonymous mapping so large
// machines stay untouched by the garbage collector and pages are
// born zero.
func allocRAM(size uint64) ([]byte, bool, error) {
	data, err := unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func freeRAM(data []byte, mapped bool) error {
	if !mapped || data == nil {
		return nil
	}
	return unix.Munmap(data)
}
