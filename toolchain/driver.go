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

// Package toolchain wraps the external translator, linker, and binary
// invocations the driver needs after LLIR has been emitted (C6), the same
// way cmd/snellerd/peercmd.go wraps subprocess lifecycles (exec.CommandContext,
// captured stderr, *exec.ExitError unwrapping) rather than hand-rolling
// os/exec plumbing inline.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// stageTimeout bounds how long any single external tool invocation may run.
// Spec §5 specifies no timeout at the core level; this is driver-level
// defensive plumbing, grounded on cmd/snellerd/peercmd.go's cmdTimeout.
const stageTimeout = 2 * time.Minute

// ExternalToolError is §7's ExternalToolFailure(stage, stderr): a wrapped
// subprocess non-zero exit, captured verbatim.
type ExternalToolError struct {
	Stage  string
	Args   []string
	Stderr string
	Err    error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s (%v) failed: %s: %s", e.Stage, e.Args, e.Err, e.Stderr)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// runID namespaces intermediate filenames across concurrent invocations
// sharing a working directory (e.g. parallel test runs), mirroring the role
// google/uuid plays for sneller's tenant/session identifiers.
func runID() string {
	return uuid.NewString()
}

// run executes name with args, killing it on stageTimeout and arranging for
// the kernel to kill it if this process dies first (golang.org/x/sys/unix's
// Pdeathsig), so a killed pytc process never leaves an orphaned llc/cc/binary
// child behind.
func run(stage, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &unix.SysProcAttr{Pdeathsig: unix.SIGKILL}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExternalToolError{Stage: stage, Args: args, Stderr: stderr.String(), Err: fmt.Errorf("timed out after %s", stageTimeout)}
	}
	return &ExternalToolError{Stage: stage, Args: args, Stderr: stderr.String(), Err: err}
}

// IRToAssembly runs the LLIR-to-assembly translator (§4.8): llc. If triple
// is non-empty it is passed through as -mtriple (config.Config.TargetTriple).
func IRToAssembly(irPath, asmPath, triple string) error {
	args := []string{irPath, "-o", asmPath}
	if triple != "" {
		args = append(args, "-mtriple="+triple)
	}
	return run("llc", "llc", args...)
}

// AssemblyToBinary runs the system C compiler in linker mode (§4.8), at
// optLevel (config.Config.OptLevel; 0 is cc's own default).
func AssemblyToBinary(asmPath, binPath string, optLevel int) error {
	args := []string{asmPath, "-o", binPath}
	if optLevel > 0 {
		args = append(args, fmt.Sprintf("-O%d", optLevel))
	}
	return run("cc", "cc", args...)
}

// RunBinary executes path and returns its captured standard output (§4.8).
func RunBinary(path string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path)
	cmd.SysProcAttr = &unix.SysProcAttr{Pdeathsig: unix.SIGKILL}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", &ExternalToolError{Stage: "run", Args: []string{path}, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// WriteIntermediate writes data to path, namespacing nothing itself — callers
// that need collision-free intermediates across concurrent invocations
// should derive path from a runID().
func WriteIntermediate(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Intermediate paths returns the <stem>.ll, <stem>.s, and <stem> (executable)
// paths for a given input stem, per spec §6. A caller that needs uniqueness
// across concurrent compiles of the same stem should namespace stem with
// runID() itself.
func IntermediatePaths(stem string) (llPath, asmPath, binPath string) {
	return stem + ".ll", stem + ".s", stem
}

// UniqueStem appends a short run-scoped suffix to base, for callers that
// need non-colliding intermediate file names (e.g. concurrent test runs
// sharing a directory).
func UniqueStem(base string) string {
	return base + "." + runID()[:8]
}
