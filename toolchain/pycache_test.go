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

package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func havePython3() bool {
	_, err := exec.LookPath("python3")
	return err == nil
}

func TestCompilePyToPyc(t *testing.T) {
	if !havePython3() {
		t.Skip("python3 not installed")
	}
	dir := t.TempDir()
	pyPath := filepath.Join(dir, "prog.py")
	if err := os.WriteFile(pyPath, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	pycPath, err := CompilePyToPyc(pyPath)
	if err != nil {
		t.Fatalf("CompilePyToPyc: %v", err)
	}
	if filepath.Dir(pycPath) != dir {
		t.Fatalf("pycPath = %q, want it alongside %q", pycPath, dir)
	}
	if _, err := os.Stat(pycPath); err != nil {
		t.Fatalf("expected .pyc at %q: %v", pycPath, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "__pycache__")); !os.IsNotExist(err) {
		t.Fatal("__pycache__ should have been removed once emptied")
	}
}

func TestCompilePyToPycMissingFile(t *testing.T) {
	if !havePython3() {
		t.Skip("python3 not installed")
	}
	_, err := CompilePyToPyc(filepath.Join(t.TempDir(), "missing.py"))
	if err == nil {
		t.Fatal("CompilePyToPyc() expected an error for a missing source file")
	}
}
