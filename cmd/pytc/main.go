// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command pytc compiles a Python source file to a native executable and
// runs it: source -> .pyc -> decoded code object tree -> LLIR -> assembly
// -> linked binary -> relayed stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tomek20225/pytc/builtin"
	"github.com/Tomek20225/pytc/bytecode"
	"github.com/Tomek20225/pytc/bytecode/cursor"
	"github.com/Tomek20225/pytc/config"
	"github.com/Tomek20225/pytc/llir"
	"github.com/Tomek20225/pytc/toolchain"
)

// pycHeaderSize is the fixed-size magic/flags/hash-or-mtime header CPython
// prepends to every .pyc file before the marshalled root Var (spec §6: the
// driver is responsible for stripping any such header before decoding).
const pycHeaderSize = 16

const banner = "==== OUTPUT FROM THE EXECUTABLE ===="

// cacheDirName holds the build cache's stamp files, next to the input file,
// the same __pycache__-adjacent placement toolchain.CompilePyToPyc uses for
// its own generated artifacts.
const cacheDirName = ".pytc-cache"

var listBuiltins = flag.Bool("list-builtins", false, "print the registered builtins and their arity, then exit")

func main() {
	flag.Parse()

	if *listBuiltins {
		printBuiltins()
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: pytc <input.py>")
		os.Exit(1)
	}
	inputPath := args[0]

	if err := validateInput(inputPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output, err := compileAndRun(inputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnose(err))
		os.Exit(1)
	}
	fmt.Printf("\n%s\n%s", banner, output)
}

// printBuiltins implements -list-builtins: every registered builtin, sorted,
// with its expected argument count.
func printBuiltins() {
	arity := builtin.AritySnapshot()
	for _, name := range builtin.Names() {
		fmt.Printf("%s\t%d\n", name, arity[name])
	}
}

// validateInput enforces the .py extension check of spec §6.
func validateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("error: input must be a Python (.py) file")
	}
	if strings.ToLower(filepath.Ext(path)) != ".py" {
		return fmt.Errorf("error: input file must have .py extension")
	}
	return nil
}

// compileAndRun drives the full pipeline for one input file.
func compileAndRun(pyPath string) (string, error) {
	cfg, err := config.Load(filepath.Dir(pyPath))
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	pycPath, err := toolchain.CompilePyToPyc(pyPath)
	if err != nil {
		return "", fmt.Errorf("failed to compile Python file to bytecode: %w", err)
	}

	raw, err := os.ReadFile(pycPath)
	if err != nil {
		return "", fmt.Errorf("couldn't read the .pyc file: %w", err)
	}
	if len(raw) < pycHeaderSize {
		return "", fmt.Errorf("couldn't parse the .pyc file: truncated header")
	}
	root, table, err := bytecode.Decode(raw[pycHeaderSize:])
	if err != nil {
		return "", fmt.Errorf("couldn't parse the .pyc file: %w", err)
	}

	resolver := bytecode.NewResolver(table)
	module, err := llir.New(resolver).Emit(root)
	if err != nil {
		return "", fmt.Errorf("failed to generate LLVM IR: %w", err)
	}

	stem := strings.TrimSuffix(pyPath, filepath.Ext(pyPath))
	_, _, binPath := toolchain.IntermediatePaths(stem)
	ir := []byte(module.String())

	cache, err := toolchain.NewCache(filepath.Join(filepath.Dir(pyPath), cacheDirName))
	if err != nil {
		return "", fmt.Errorf("failed to open build cache: %w", err)
	}

	if !cache.Fresh(stem, ir) {
		// UniqueStem keeps a build in progress from clobbering a binary a
		// concurrent compile of the same stem is still running; the result
		// is only moved to the stable, cache-addressed binPath once linked.
		buildStem := toolchain.UniqueStem(stem)
		llPath, asmPath, builtBinPath := toolchain.IntermediatePaths(buildStem)
		if err := toolchain.WriteIntermediate(llPath, ir); err != nil {
			return "", fmt.Errorf("failed to write LLVM IR: %w", err)
		}
		if err := toolchain.IRToAssembly(llPath, asmPath, cfg.TargetTriple); err != nil {
			return "", fmt.Errorf("failed to compile LLVM IR to assembly: %w", err)
		}
		if err := toolchain.AssemblyToBinary(asmPath, builtBinPath, cfg.OptLevel); err != nil {
			return "", fmt.Errorf("failed to compile assembly to binary: %w", err)
		}
		if err := os.Rename(builtBinPath, binPath); err != nil {
			return "", fmt.Errorf("failed to place built executable: %w", err)
		}
		if err := cache.Stamp(stem, ir); err != nil {
			return "", fmt.Errorf("failed to stamp build cache: %w", err)
		}
	}

	out, err := toolchain.RunBinary(binPath)
	if err != nil {
		return "", fmt.Errorf("failed to run the executable: %w", err)
	}
	return out, nil
}

// diagnose maps an internal error onto the one-line taxonomy of spec §7.
func diagnose(err error) string {
	var (
		unknownTag    *bytecode.UnknownTagError
		unknownOpcode *bytecode.UnknownOpcodeError
		unboundName   *llir.UnboundNameError
		underflow     *llir.StackUnderflowError
		imbalance     *llir.StackImbalanceAtReturnError
		unimplCall    *llir.UnimplementedCallError
		unimplOp      *llir.UnimplementedOperationError
		toolErr       *toolchain.ExternalToolError
	)
	switch {
	case errors.Is(err, bytecode.ErrNotACodeObject), errors.Is(err, cursor.ErrTruncated):
		return fmt.Sprintf("MalformedBytecode: %s", err)
	case errors.As(err, &unknownTag):
		return fmt.Sprintf("UnsupportedValueKind: %s", err)
	case errors.As(err, &unknownOpcode):
		return fmt.Sprintf("UnsupportedOperation: %s", err)
	case errors.As(err, &unboundName), errors.As(err, &underflow), errors.As(err, &imbalance):
		return fmt.Sprintf("CompileFailure: %s", err)
	case errors.As(err, &unimplCall), errors.As(err, &unimplOp):
		return fmt.Sprintf("Unsupported: %s", err)
	case errors.As(err, &toolErr):
		return fmt.Sprintf("ExternalToolFailure: %s", err)
	default:
		return err.Error()
	}
}
