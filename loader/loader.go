// Package loader parses and loads the ELF64 kernel image the boot
// sequence hands off to. Validation is strict: the boot path would
// rather refuse an image than jump to one it half-understands.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
)

// Validation failures, one per rejected property.
var (
	ErrNotELF64        = errors.New("loader: not a 64-bit ELF file")
	ErrNotLittleEndian = errors.New("loader: not little-endian")
	ErrBadOSABI        = errors.New("loader: OS ABI not System V")
	ErrNotExecutable   = errors.New("loader: not an executable image")
	ErrWrongMachine    = errors.New("loader: not an AArch64 image")
	ErrNoEntry         = errors.New("loader: image has no entry point")
	ErrSegmentAlign    = errors.New("loader: segment alignment not a page multiple")
	ErrBadSegment      = errors.New("loader: segment file size exceeds memory size")
)

// Segment is one loadable program segment.
type Segment struct {
	Addr     uint64
	FileSize uint64
	MemSize  uint64
	Flags    elf.ProgFlag
}

// Image is a validated kernel image.
type Image struct {
	Entry    uint64
	Segments []Segment
}

// BSS returns the page-bounded uninitialized tail of the image: the
// [filesz, memsz) region of the highest loadable segment, rounded
// inward to KernelAlign so the bounds satisfy a Layout's alignment
// rule. Load already zeroes the full tail, slivers outside the
// returned bounds included. Zero bounds mean the image has no tail.
func (img *Image) BSS() (start, end uint64) {
	var seg *Segment
	for i := range img.Segments {
		s := &img.Segments[i]
		if s.MemSize <= s.FileSize {
			continue
		}
		if seg == nil || s.Addr > seg.Addr {
			seg = s
		}
	}
	if seg == nil {
		return 0, 0
	}

	start = seg.Addr + seg.FileSize
	end = seg.Addr + seg.MemSize
	start = (start + arm64.KernelAlign - 1) &^ (arm64.KernelAlign - 1)
	end &^= uint64(arm64.KernelAlign - 1)
	if start >= end {
		return 0, 0
	}
	return start, end
}

// Parse validates the image in r and returns its entry point and
// loadable segments without touching guest memory.
func Parse(r io.ReaderAt) (*Image, error) {
	img, _, err := parse(r)
	return img, err
}

func parse(r io.ReaderAt) (*Image, *elf.File, error) {
	// The ident checks run by hand so each rejection carries its own
	// error rather than debug/elf's.
	var ident [16]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return nil, nil, fmt.Errorf("loader: reading ident: %w", err)
	}
	if ident[0] != 0x7F || ident[1] != 'E' || ident[2] != 'L' || ident[3] != 'F' {
		return nil, nil, ErrNotELF64
	}
	if elf.Class(ident[elf.EI_CLASS]) != elf.ELFCLASS64 {
		return nil, nil, ErrNotELF64
	}
	if elf.Data(ident[elf.EI_DATA]) != elf.ELFDATA2LSB {
		return nil, nil, ErrNotLittleEndian
	}
	if elf.OSABI(ident[elf.EI_OSABI]) != elf.ELFOSABI_NONE {
		return nil, nil, ErrBadOSABI
	}

	f, err := elf.NewFile(r)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: %w", err)
	}

	if f.Type != elf.ET_EXEC {
		return nil, nil, ErrNotExecutable
	}
	if f.Machine != elf.EM_AARCH64 {
		return nil, nil, ErrWrongMachine
	}
	if f.Entry == 0 {
		return nil, nil, ErrNoEntry
	}

	img := &Image{Entry: f.Entry}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Filesz > p.Memsz {
			return nil, nil, ErrBadSegment
		}
		if p.Align == 0 || p.Align%arm64.KernelAlign != 0 {
			return nil, nil, ErrSegmentAlign
		}
		img.Segments = append(img.Segments, Segment{
			Addr:     p.Vaddr,
			FileSize: p.Filesz,
			MemSize:  p.Memsz,
			Flags:    p.Flags,
		})
	}

	return img, f, nil
}

// Load validates the image in r and copies every loadable segment into
// guest memory at its link address, zeroing the [filesz, memsz) tail
// the way the BSS convention expects.
func Load(mem bootloader.Memory, r io.ReaderAt) (*Image, error) {
	img, f, err := parse(r)
	if err != nil {
		return nil, err
	}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}

		if p.Filesz > 0 {
			buf := make([]byte, p.Filesz)
			if _, err := io.ReadFull(io.NewSectionReader(p, 0, int64(p.Filesz)), buf); err != nil {
				return nil, fmt.Errorf("loader: segment at %#x: %w", p.Vaddr, err)
			}
			if _, err := mem.WriteAt(buf, int64(p.Vaddr)); err != nil {
				return nil, fmt.Errorf("loader: segment at %#x: %w", p.Vaddr, err)
			}
		}

		if tail := p.Memsz - p.Filesz; tail > 0 {
			if err := mem.Zero(p.Vaddr+p.Filesz, tail); err != nil {
				return nil, fmt.Errorf("loader: segment tail at %#x: %w", p.Vaddr+p.Filesz, err)
			}
		}
	}

	return img, nil
}

// Open parses the image at path. The returned closer holds the file
// open for a later Load through the same *os.File.
func Open(path string) (*Image, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	img, err := Parse(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return img, f, nil
}
