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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-tty"
	"github.com/spf13/cobra"
	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
	"github.com/yoshipep/aarch64-bootloader/cmd/bootsim/cmd/utils"
	"github.com/yoshipep/aarch64-bootloader/loader"
	"github.com/yoshipep/aarch64-bootloader/machine"
	"github.com/yoshipep/aarch64-bootloader/mmio"
	"github.com/yoshipep/aarch64-bootloader/pl011"
)

const consoleBaud = 115200

// RunResult is the run command's JSON output.
type RunResult struct {
	Handoffs []*bootloader.Handoff `json:"handoffs"`
	UART     string                `json:"uart,omitempty"`
	Metrics  *bootloader.Metrics   `json:"metrics,omitempty"`
	Error    string                `json:"error,omitempty"`
}

var (
	runCores       int
	runEL          string
	runRAMSize     uint64
	runRAMBase     uint64
	runUART        bool
	runInteractive bool
	runJSON        bool
	runMetrics     bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&runCores, "cores", "c", 1, "Number of cores to boot")
	runCmd.Flags().StringVar(&runEL, "el", "el3", "Reset exception level (el1, el2, el3)")
	runCmd.Flags().Uint64Var(&runRAMSize, "ram", machine.DefaultRAMSize, "Guest RAM size (bytes)")
	runCmd.Flags().Uint64Var(&runRAMBase, "base", machine.DefaultRAMBase, "Guest RAM base address")
	runCmd.Flags().BoolVar(&runUART, "uart", false, "Stream UART output to stdout instead of capturing it")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Bridge the host terminal to the UART after boot")
	runCmd.Flags().BoolVarP(&runJSON, "json", "j", false, "Output handoff state as JSON")
	runCmd.Flags().BoolVar(&runMetrics, "metrics", false, "Include boot-path metrics in the report")
}

var runCmd = &cobra.Command{
	Use:   "run IMAGE",
	Short: "Boot an ELF kernel on the modeled machine",
	Long: `Boot an ELF kernel image on the modeled virt-style machine.

The image is loaded at its link addresses, every core runs the
reset-to-kernel handoff (core 0 first, it owns the BSS clear), and the
state each core handed to the kernel is reported. Boot stacks occupy
the bottom of guest RAM, one region per core, so the kernel must be
linked above them.

The PL011 console is wired to a capture buffer by default and its
output is printed after the boot. --uart streams it to stdout live,
and --interactive additionally feeds keystrokes from the host
terminal into the modeled receive FIFO, echoing them back through the
transmit path.`,
	Args: cobra.ExactArgs(1),
	RunE: runBoot,
}

func runBoot(cmd *cobra.Command, args []string) error {
	el, err := parseEL(runEL)
	if err != nil {
		return err
	}

	var capture bytes.Buffer
	var sink io.Writer = &capture
	if runUART || runInteractive {
		sink = os.Stdout
	}

	m, err := machine.New(machine.Config{
		Cores:   runCores,
		RAMSize: runRAMSize,
		RAMBase: runRAMBase,
		EntryEL: el,
		UART:    sink,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := loader.Load(m.RAM(), f)
	if err != nil {
		return err
	}

	bssStart, bssEnd := img.BSS()
	layout := bootloader.Layout{
		StackBase: m.Config().RAMBase,
		Entry:     img.Entry,
		BSSStart:  bssStart,
		BSSEnd:    bssEnd,
	}

	handoffs, err := bootloader.BootAll(m.Cores(), m.RAM(), layout)
	if err != nil {
		if runJSON {
			return printRunJSON(nil, &capture, err)
		}
		dumpFaults(m)
		return err
	}

	// Console bring-up and boot banner through the guest-side driver,
	// so the report reflects the full transmit path.
	console := pl011.New(mmio.Offset(m.Bus(), machine.UARTBase))
	console.Configure(machine.UARTClock, consoleBaud)
	fmt.Fprintf(console, "bootsim: %d core(s) entered kernel at %#x\n", len(handoffs), img.Entry)

	if runJSON {
		return printRunJSON(handoffs, &capture, nil)
	}

	printRunReport(handoffs, img.Entry, &capture, m)

	if runInteractive {
		return consoleBridge(m)
	}
	return nil
}

func parseEL(s string) (arm64.EL, error) {
	switch strings.ToLower(s) {
	case "el1", "1":
		return arm64.EL1, nil
	case "el2", "2":
		return arm64.EL2, nil
	case "el3", "3":
		return arm64.EL3, nil
	}
	return 0, fmt.Errorf("unknown exception level %q (want el1, el2 or el3)", s)
}

func printRunReport(handoffs []*bootloader.Handoff, entry uint64, capture *bytes.Buffer, m *machine.Machine) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen, color.Bold).Sprint("OK")

	bold.Printf("booted %d core(s), entry %v:\n", len(handoffs), handoffs[0].EntryEL)
	for _, h := range handoffs {
		fmt.Printf("  %s  %s\n", ok, h)
	}

	code := make([]byte, 64)
	if n, err := m.RAM().ReadAt(code, int64(entry)); err == nil || n > 0 {
		fmt.Printf("\nentry code, %#x:\n%s", entry, utils.HexDump(code[:n], entry))
	}

	if capture.Len() > 0 {
		bold.Println("\nuart:")
		os.Stdout.Write(capture.Bytes())
	}

	if runMetrics {
		printMetrics()
	}
}

func printRunJSON(handoffs []*bootloader.Handoff, capture *bytes.Buffer, bootErr error) error {
	result := RunResult{Handoffs: handoffs, UART: capture.String()}
	if bootErr != nil {
		result.Error = bootErr.Error()
	}
	if runMetrics {
		met := bootloader.GetMetrics()
		result.Metrics = &met
	}

	out, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func printMetrics() {
	out, err := json.MarshalIndent(bootloader.GetMetrics(), "", "  ")
	if err != nil {
		return
	}
	color.New(color.Bold).Println("\nmetrics:")
	fmt.Println(string(out))
}

// dumpFaults writes the exception state of every faulted core to
// stderr, with the code window around the faulting PC.
func dumpFaults(m *machine.Machine) {
	for i := 0; ; i++ {
		c := m.Core(i)
		if c == nil {
			return
		}
		if s := c.Fault(); s != nil {
			s.DumpWithCode(os.Stderr, m.RAM())
		}
	}
}

// consoleBridge runs the interactive session: keystrokes go into the
// modeled receive FIFO, get drained through the guest-side driver and
// echoed back through the transmit path. ^C or ^D ends the session.
func consoleBridge(m *machine.Machine) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer t.Close()

	console := pl011.New(mmio.Offset(m.Bus(), machine.UARTBase))
	fmt.Fprintf(os.Stdout, "interactive console, ^C or ^D ends the session\r\n")

	for {
		r, err := t.ReadRune()
		if err != nil {
			return err
		}
		if r == 0x03 || r == 0x04 {
			fmt.Fprintf(os.Stdout, "\r\n")
			return nil
		}
		m.UART().Feed([]byte(string(r)))
		for {
			b, ok := console.ReadByte()
			if !ok {
				break
			}
			console.WriteByte(b)
			if b == '\r' {
				console.WriteByte('\n')
			}
		}
	}
}
