package bootloader

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

// testMem is a flat window standing in for guest RAM.
type testMem struct {
	base uint64
	data []byte
}

var _ Memory = (*testMem)(nil)

func newTestMem(base, size uint64) *testMem {
	return &testMem{base: base, data: make([]byte, size)}
}

func (m *testMem) ReadAt(p []byte, addr int64) (int, error) {
	off := uint64(addr) - m.base
	if off >= uint64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *testMem) WriteAt(p []byte, addr int64) (int, error) {
	off := uint64(addr) - m.base
	if off >= uint64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	n := copy(m.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (m *testMem) Zero(addr, size uint64) error {
	off := addr - m.base
	if off > uint64(len(m.data)) || size > uint64(len(m.data))-off {
		return fmt.Errorf("zero [%#x, %#x) outside memory", addr, addr+size)
	}
	clear(m.data[off : off+size])
	return nil
}

func (m *testMem) Base() uint64 { return m.base }
func (m *testMem) Size() uint64 { return uint64(len(m.data)) }

func TestStackTop(t *testing.T) {
	l := Layout{StackBase: 0x4000_0000}

	tests := []struct {
		core int
		want uint64
	}{
		{core: 0, want: 0x4000_4000},
		{core: 1, want: 0x4000_8000},
		{core: 2, want: 0x4000_C000},
		{core: 3, want: 0x4001_0000},
	}

	for _, tt := range tests {
		if got := l.StackTop(tt.core); got != tt.want {
			t.Errorf("StackTop(%d) = %#x, want %#x", tt.core, got, tt.want)
		}
	}
}

func TestStackRegion(t *testing.T) {
	l := Layout{StackBase: 0x4000_0000}

	base, size := l.StackRegion(4)
	if base != 0x4000_0000 {
		t.Errorf("StackRegion base = %#x, want %#x", base, uint64(0x4000_0000))
	}
	if size != 4*0x4000 {
		t.Errorf("StackRegion size = %#x, want %#x", size, uint64(4*0x4000))
	}

	// Stack tops must land inside the combined region.
	for core := 0; core < 4; core++ {
		top := l.StackTop(core)
		if top <= base || top > base+size {
			t.Errorf("StackTop(%d) = %#x outside region [%#x, %#x]", core, top, base, base+size)
		}
	}
}

func TestLayoutValidate(t *testing.T) {
	mem := newTestMem(0x4000_0000, 0x10_0000)

	tests := []struct {
		name    string
		cores   int
		layout  Layout
		wantErr error
	}{
		{
			name:   "minimal single core",
			cores:  1,
			layout: Layout{StackBase: 0x4000_0000, Entry: 0x4008_0000},
		},
		{
			name:   "full layout four cores",
			cores:  4,
			layout: Layout{StackBase: 0x4000_0000, Entry: 0x4002_0000, BSSStart: 0x4003_0000, BSSEnd: 0x4003_2000},
		},
		{
			name:    "unaligned stack base",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0008, Entry: 0x4008_0000},
			wantErr: ErrStackAlign,
		},
		{
			name:    "stack region past end of memory",
			cores:   2,
			layout:  Layout{StackBase: 0x400F_E000, Entry: 0x4008_0000},
			wantErr: ErrStackRange,
		},
		{
			name:    "zero entry",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000},
			wantErr: ErrNoEntry,
		},
		{
			name:    "entry outside memory",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x5000_0000},
			wantErr: ErrNoEntry,
		},
		{
			name:    "entry mid-instruction",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x4008_0002},
			wantErr: ErrEntryAlign,
		},
		{
			name:    "bss start unaligned",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x4008_0000, BSSStart: 0x4003_0800, BSSEnd: 0x4004_0000},
			wantErr: ErrBSSAlign,
		},
		{
			name:    "bss inverted",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x4008_0000, BSSStart: 0x4004_0000, BSSEnd: 0x4003_0000},
			wantErr: ErrBSSRange,
		},
		{
			name:    "bss past end of memory",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x4008_0000, BSSStart: 0x400F_0000, BSSEnd: 0x4011_0000},
			wantErr: ErrBSSRange,
		},
		{
			name:    "stack overlaps bss",
			cores:   1,
			layout:  Layout{StackBase: 0x4000_0000, Entry: 0x4008_0000, BSSStart: 0x4000_2000, BSSEnd: 0x4000_6000},
			wantErr: ErrRegionOverlap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate(tt.cores, mem)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLayoutValidateNilMemory(t *testing.T) {
	// Without a memory window only the arithmetic invariants apply.
	l := Layout{StackBase: 0x9000_0000, Entry: 0xFFFF_0000}
	if err := l.Validate(1, nil); err != nil {
		t.Errorf("Validate(1, nil) = %v, want nil", err)
	}

	if err := l.Validate(0, nil); err == nil {
		t.Error("Validate(0, nil) = nil, want error for zero cores")
	}
}
