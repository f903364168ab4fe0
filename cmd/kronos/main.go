// Command kronos is the CLI front door for the Kronos execution core:
// run and compile JSON-encoded programs, disassemble the resulting
// bytecode, and inspect GC tracker statistics. Structured the way the
// go-probeum devp2p tooling lays out a urfave/cli.v1 app (a package-level
// []cli.Command, one Action function per subcommand), since this package
// has no source-language front end of its own to drive a richer REPL.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kristofer/kronos/pkg/ast"
	"github.com/kristofer/kronos/pkg/builtins"
	"github.com/kristofer/kronos/pkg/bytecode"
	"github.com/kristofer/kronos/pkg/compiler"
	"github.com/kristofer/kronos/pkg/kronosconfig"
	"github.com/kristofer/kronos/pkg/kronoslog"
	"github.com/kristofer/kronos/pkg/kruntime"
	"github.com/kristofer/kronos/pkg/vm"
	cli "gopkg.in/urfave/cli.v1"
)

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path to a TOML tuning-knobs file (defaults unused knobs)",
}

func main() {
	app := cli.NewApp()
	app.Name = "kronos"
	app.Usage = "compiler and VM for the Kronos execution core"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		runCommand,
		compileCommand,
		disasmCommand,
		replCommand,
		gcStatsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kronos:", err)
		os.Exit(1)
	}
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "compile and execute a JSON-encoded program",
	ArgsUsage: "<program.json>",
	Flags:     []cli.Flag{configFlag},
	Action:    runAction,
}

var compileCommand = cli.Command{
	Name:      "compile",
	Usage:     "compile a JSON-encoded program and report success",
	ArgsUsage: "<program.json>",
	Action:    compileAction,
}

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "compile a JSON-encoded program and print its disassembly",
	ArgsUsage: "<program.json>",
	Action:    disasmAction,
}

var replCommand = cli.Command{
	Name:   "repl",
	Usage:  "read one JSON-encoded statement per line from stdin and execute it",
	Action: replAction,
}

var gcStatsCommand = cli.Command{
	Name:      "gc-stats",
	Usage:     "run a program, force a cycle collection, and report tracker stats",
	ArgsUsage: "<program.json>",
	Action:    gcStatsAction,
}

func loadProgram(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ast.DecodeProgram(data)
}

func runAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: kronos run <program.json>", 1)
	}
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}

	cfg := kronosconfig.Default()
	if configPath := c.String("config"); configPath != "" {
		loaded, err := kronosconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}

	// run is the one subcommand that represents an actual process
	// invocation of the execution core, so it participates in the shared
	// process runtime singleton instead of building its own isolated
	// tracker the way the other subcommands do.
	rt := kruntime.InitRuntime()
	defer kruntime.CleanupRuntime()

	comp := compiler.New(rt)
	bc, err := comp.Compile(prog)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	logger := kronoslog.New()
	kruntime.SetWarnHook(logger.WarnHook())

	machine := vm.NewWithStackCap(rt, builtins.NewRegistry(), cfg.VM.InitialStackCap)
	machine.SetOutput(os.Stdout)
	if err := machine.Run(context.Background(), bc); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func compileAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: kronos compile <program.json>", 1)
	}
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}
	rt := kruntime.NewStandaloneRuntime()
	comp := compiler.New(rt)
	bc, err := comp.Compile(prog)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	fmt.Printf("ok: %d instruction bytes, %d constants\n", len(bc.Code), len(bc.Constants))
	return nil
}

func disasmAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: kronos disasm <program.json>", 1)
	}
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}
	rt := kruntime.NewStandaloneRuntime()
	comp := compiler.New(rt)
	bc, err := comp.Compile(prog)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	fmt.Println(bytecode.Disassemble(bc))
	return nil
}

// replAction runs a persistent VM and runtime across lines, compiling and
// executing one statement at a time the way the teacher's line-buffered
// REPL worked, but reading JSON statement objects instead of source text.
func replAction(c *cli.Context) error {
	rt := kruntime.NewStandaloneRuntime()
	machine := vm.New(rt, builtins.NewRegistry())
	machine.SetOutput(os.Stdout)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("kronos repl — one JSON statement per line, Ctrl-D to exit")
	for {
		fmt.Print("kronos> ")
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := replEval(rt, machine, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func replEval(rt *kruntime.Runtime, machine *vm.VM, line string) error {
	stmt, err := ast.DecodeStatement([]byte(line))
	if err != nil {
		return err
	}
	comp := compiler.New(rt)
	bc, err := comp.Compile(&ast.Program{Statements: []ast.Statement{stmt}})
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return machine.Run(context.Background(), bc)
}

func gcStatsAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.NewExitError("usage: kronos gc-stats <program.json>", 1)
	}
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}

	rt := kruntime.NewStandaloneRuntime()
	comp := compiler.New(rt)
	bc, err := comp.Compile(prog)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	machine := vm.New(rt, builtins.NewRegistry())
	var discard bytes.Buffer
	machine.SetOutput(io.Writer(&discard))
	runErr := machine.Run(context.Background(), bc)

	swept := rt.Tracker.CollectCycles()
	fmt.Printf("objects live: %d\n", rt.Tracker.ObjectCount())
	fmt.Printf("bytes allocated: %d\n", rt.Tracker.AllocatedBytes())
	fmt.Printf("cycle collector swept: %d\n", swept)
	return runErr
}
