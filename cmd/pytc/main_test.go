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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tomek20225/pytc/builtin"
	"github.com/Tomek20225/pytc/bytecode"
)

func TestValidateInputRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := validateInput(path); err == nil {
		t.Fatal("validateInput() expected an error for a non-.py file")
	}
}

func TestValidateInputRejectsMissingFile(t *testing.T) {
	if err := validateInput(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Fatal("validateInput() expected an error for a missing file")
	}
}

func TestValidateInputAcceptsPy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.py")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := validateInput(path); err != nil {
		t.Fatalf("validateInput() = %v, want nil", err)
	}
}

func TestDiagnoseMalformedBytecode(t *testing.T) {
	_, _, err := bytecode.Decode([]byte{'N'}) // None is not a Code object
	got := diagnose(err)
	if !strings.HasPrefix(got, "MalformedBytecode:") {
		t.Fatalf("diagnose() = %q, want MalformedBytecode prefix", got)
	}
}

func TestDiagnoseUnsupportedValueKind(t *testing.T) {
	_, _, err := bytecode.Decode([]byte{'?'})
	got := diagnose(err)
	if !strings.HasPrefix(got, "UnsupportedValueKind:") {
		t.Fatalf("diagnose() = %q, want UnsupportedValueKind prefix", got)
	}
}

func TestPrintBuiltinsListsPrint(t *testing.T) {
	// printBuiltins itself just formats this data to stdout; the part worth
	// asserting is that the registry it reads from carries what -list-builtins
	// promises to show.
	names := builtin.Names()
	found := false
	for _, n := range names {
		if n == builtin.Print {
			found = true
		}
	}
	if !found {
		t.Fatalf("builtin.Names() = %v, want %q", names, builtin.Print)
	}
	arity := builtin.AritySnapshot()
	if arity[builtin.Print] != 1 {
		t.Fatalf("AritySnapshot()[%q] = %d, want 1", builtin.Print, arity[builtin.Print])
	}
}
