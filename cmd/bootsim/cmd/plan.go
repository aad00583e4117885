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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	bootloader "github.com/yoshipep/aarch64-bootloader"
	"github.com/yoshipep/aarch64-bootloader/arm64"
	"github.com/yoshipep/aarch64-bootloader/machine"
)

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().String("el", "el3", "Reset exception level (el1, el2, el3)")
	planCmd.Flags().Uint64("stack-base", machine.DefaultRAMBase, "Boot stack base address")
	planCmd.Flags().Int("cores", 1, "Number of cores in the stack table")
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the register programming for a reset level",
	Long: `Print the register writes the handoff performs for a given reset
exception level, with each control bit decoded, and the per-core boot
stack table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		elStr, err := cmd.Flags().GetString("el")
		if err != nil {
			return err
		}
		el, err := parseEL(elStr)
		if err != nil {
			return err
		}
		stackBase, err := cmd.Flags().GetUint64("stack-base")
		if err != nil {
			return err
		}
		cores, err := cmd.Flags().GetInt("cores")
		if err != nil {
			return err
		}
		if cores <= 0 {
			cores = 1
		}
		printPlan(el, stackBase, cores)
		return nil
	},
}

func printPlan(el arm64.EL, stackBase uint64, cores int) {
	bold := color.New(color.Bold)
	reg := color.New(color.FgCyan).SprintFunc()

	bold.Printf("handoff plan, %v entry:\n\n", el)

	fmt.Printf(" 1. detect-el            expect CurrentEL = %v\n", el)

	switch el {
	case arm64.EL1:
		fmt.Println(" 2. configure            nothing to leave, HCR_EL2 and SCR_EL3 stay untouched")
		fmt.Println(" 3. build-spsr           no drop from EL1")
		fmt.Println(" 4. drop-el              no drop from EL1")
	case arm64.EL2:
		fmt.Printf(" 2. configure-hypervisor %s <- %#010x\n", reg("HCR_EL2"), arm64.HCREL2Reset)
		fmt.Println("      bit 31  RW    EL1 executes AArch64")
		fmt.Println("      bit 29  HCD   HVC disabled, no hypervisor-call handler exists")
		printSPSRPlan(reg, "SPSR_EL2")
		fmt.Println(" 4. drop-el              eret, EL2 -> EL1")
	case arm64.EL3:
		fmt.Printf(" 2. configure-secure     %s <- %#010x\n", reg("SCR_EL3"), arm64.SCREL3Reset)
		fmt.Println("      bit 0   NS    lower exception levels are non-secure")
		fmt.Println("      bits 5:4      reserved-one")
		fmt.Println("      bit 10  RW    next lower level executes AArch64")
		printSPSRPlan(reg, "SPSR_EL3")
		fmt.Println(" 4. drop-el              eret, EL3 -> EL1")
	}

	fmt.Printf(" 5. establish-stack      %s <- per-core stack top, %d-byte aligned\n", reg("SP_EL1"), arm64.StackAlign)
	fmt.Printf(" 6. reset-control-state  %s <- %#010x\n", reg("SCTLR_EL1"), arm64.SCTLRReset)
	fmt.Println("      bit 0   M     MMU off")
	fmt.Println("      bit 2   C     data cache off")
	fmt.Println("      bit 12  I     instruction cache off")
	fmt.Println(" 7. clear-bss            core 0 zeroes [bss_start, bss_end)")
	fmt.Println(" 8. enter-kernel         br entry, no return")

	bold.Printf("\nstacks, base %#x:\n", stackBase)
	l := bootloader.Layout{StackBase: stackBase}
	for i := 0; i < cores; i++ {
		top := l.StackTop(i)
		fmt.Printf("  core %-2d  [%#x, %#x)  sp %#x\n", i, top-arm64.BootStackSize, top, top)
	}
}

func printSPSRPlan(reg func(a ...interface{}) string, name string) {
	fmt.Printf(" 3. build-spsr           %s <- %#010x\n", reg(name), arm64.SPSRKernel)
	fmt.Println("      M[3:0]  EL1h  target EL1, SP_EL1 selected")
	fmt.Println("      M[4]    0     AArch64")
	fmt.Println("      DAIF    1111  debug, SError, IRQ, FIQ masked")
}
