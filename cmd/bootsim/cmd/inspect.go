/*
Copyright © 2025 yoshipep

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/blacktop/go-macho"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/yoshipep/aarch64-bootloader/arm64"
	"github.com/yoshipep/aarch64-bootloader/cmd/bootsim/cmd/utils"
	"github.com/yoshipep/aarch64-bootloader/loader"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntP("dump", "d", 64, "Bytes of header to hex dump (0 = none)")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect IMAGE",
	Short: "Report what a kernel image looks like to the boot path",
	Long: `Report the header, segments and entry point of a kernel image.

ELF images go through the same parser the boot path uses, so every
rejection it would raise shows up here, along with alignment verdicts
for the entry point and each loadable segment. Mach-O images are
decoded for comparison; the boot path itself only loads ELF.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dumpLen, err := cmd.Flags().GetInt("dump")
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var magic [4]byte
		if _, err := f.ReadAt(magic[:], 0); err != nil {
			return fmt.Errorf("failed to read magic: %w", err)
		}

		if magic == [4]byte{0x7F, 'E', 'L', 'F'} {
			return inspectELF(args[0], f, dumpLen)
		}
		return inspectMachO(args[0], f, dumpLen)
	},
}

func inspectELF(name string, f *os.File, dumpLen int) error {
	img, err := loader.Parse(f)
	if err != nil {
		return err
	}

	color.New(color.Bold).Printf("%s: ELF64 AArch64 executable\n\n", name)

	fmt.Printf("entry:    %#x  %s\n", img.Entry, alignVerdict(img.Entry))
	fmt.Println("segments:")
	for i, s := range img.Segments {
		fmt.Printf("  [%d] addr=%#011x filesz=%#09x memsz=%#09x %s  %s\n",
			i, s.Addr, s.FileSize, s.MemSize, progFlags(s.Flags), alignVerdict(s.Addr))
	}
	if start, end := img.BSS(); end > start {
		fmt.Printf("bss:      [%#x, %#x)  %d bytes\n", start, end, end-start)
	} else {
		fmt.Println("bss:      none")
	}

	return dumpHeader(f, dumpLen)
}

func inspectMachO(name string, f *os.File, dumpLen int) error {
	m, err := macho.Open(name)
	if err != nil {
		return fmt.Errorf("not an ELF or Mach-O image: %w", err)
	}
	defer m.Close()

	color.New(color.Bold).Printf("%s: Mach-O %s %s\n\n", name, m.CPU, m.Type)

	if main := m.GetLoadsByName("LC_MAIN"); len(main) > 0 {
		entry := main[0].(*macho.EntryPoint).EntryOffset + m.GetBaseAddress()
		fmt.Printf("entry:    %#x\n", entry)
	} else {
		fmt.Println("entry:    unknown (no LC_MAIN)")
	}

	fmt.Println("segments:")
	for _, s := range m.Segments() {
		fmt.Printf("  %-16s addr=%#011x filesz=%#09x memsz=%#09x\n",
			s.Name, s.Addr, s.Filesz, s.Memsz)
	}

	return dumpHeader(f, dumpLen)
}

func verdict(ok bool) string {
	if ok {
		return color.New(color.FgGreen, color.Bold).Sprint("OK")
	}
	return color.New(color.FgRed, color.Bold).Sprint("FAIL")
}

func alignVerdict(addr uint64) string {
	if addr%arm64.KernelAlign == 0 {
		return verdict(true)
	}
	return fmt.Sprintf("%s (not %#x-aligned)", verdict(false), uint64(arm64.KernelAlign))
}

func progFlags(f elf.ProgFlag) string {
	b := []byte("---")
	if f&elf.PF_R != 0 {
		b[0] = 'r'
	}
	if f&elf.PF_W != 0 {
		b[1] = 'w'
	}
	if f&elf.PF_X != 0 {
		b[2] = 'x'
	}
	return string(b)
}

func dumpHeader(r io.ReaderAt, n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	got, err := r.ReadAt(buf, 0)
	if got == 0 {
		return err
	}
	fmt.Printf("\nheader:\n%s", utils.HexDump(buf[:got], 0))
	return nil
}
