// Command gopsx-asm is the assembler's own development tool and test
// driver (spec.md §1): "assemble" turns source into a raw binary, "run"
// assembles and steps the result through a fresh hardware/system.System
// until it hits a break exception or a cycle budget runs out. Grounded on
// go-jeebie's urfave/cli wiring (cmd/jeebie/main.go), the only repo in the
// pack that builds a CLI rather than hand-rolling flag parsing.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/kallistipsx/gopsx/assembler"
	"github.com/kallistipsx/gopsx/hardware/cpu"
	"github.com/kallistipsx/gopsx/hardware/system"
)

func main() {
	app := cli.NewApp()
	app.Name = "gopsx-asm"
	app.Usage = "assemble and run MIPS R3000 test programs against this core"
	app.Commands = []cli.Command{
		{
			Name:      "assemble",
			Usage:     "assemble a source file to a raw binary",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "base", Usage: "load address", Value: 0xbfc00000},
				cli.StringFlag{Name: "out", Usage: "output binary path (default: <file>.bin)"},
			},
			Action: assembleCmd,
		},
		{
			Name:      "run",
			Usage:     "assemble and run a source file to completion",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "base", Usage: "load address", Value: 0xbfc00000},
				cli.IntFlag{Name: "max-cycles", Usage: "step budget before giving up", Value: 1_000_000},
			},
			Action: runCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gopsx-asm:", err)
		os.Exit(1)
	}
}

func assembleCmd(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("assemble: missing source file", 1)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	base := uint32(c.Uint64("base"))
	code, entry, err := assembler.Assemble(string(source), base)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("assemble: %v", err), 1)
	}

	out := c.String("out")
	if out == "" {
		out = path + ".bin"
	}
	if err := os.WriteFile(out, code, 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d bytes), entry point %#08x\n", out, len(code), entry)
	return nil
}

func runCmd(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("run: missing source file", 1)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	base := uint32(c.Uint64("base"))
	code, entry, err := assembler.Assemble(string(source), base)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
	}

	sys := system.New()
	if base != 0xbfc00000 {
		return cli.NewExitError("run: only BIOS-region (0xbfc00000) base addresses are supported", 1)
	}
	if err := sys.LoadBIOS(code); err != nil {
		return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
	}

	maxCycles := c.Int("max-cycles")
	machine := sys.CPU()
	for i := 0; i < maxCycles; i++ {
		if machine.Regs.PC == 0x80000080 || machine.Regs.PC == 0xbfc00180 {
			break
		}
		if err := sys.Step(); err != nil {
			return cli.NewExitError(fmt.Sprintf("run: %v", err), 1)
		}
	}

	fmt.Printf("entry %#08x, halted at pc=%#08x after %d cycles\n", entry, machine.Regs.PC, machine.Cycles())
	dumpRegisters(machine)
	return nil
}

func dumpRegisters(c *cpu.CPU) {
	for i := 1; i < 32; i++ {
		fmt.Printf("$%-4s = %#08x", assembler.RegisterNames[i], c.Regs.Get(uint8(i)))
		if i%4 == 0 {
			fmt.Println()
		} else {
			fmt.Print("  ")
		}
	}
	fmt.Println()
	fmt.Printf("hi = %#08x  lo = %#08x\n", c.Regs.Hi, c.Regs.Lo)
}
