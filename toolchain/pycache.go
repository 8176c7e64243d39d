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
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CompilePyToPyc shells out to python3 -m py_compile to produce the .pyc
// bytecode file for pyPath, then moves it out of the __pycache__ directory
// py_compile creates it in, returning the final .pyc path next to pyPath.
// Grounded on the Rust original's PyCacheGenerator.compile_py_to_pyc.
func CompilePyToPyc(pyPath string) (string, error) {
	dir := filepath.Dir(pyPath)
	stem := strings.TrimSuffix(filepath.Base(pyPath), filepath.Ext(pyPath))
	pycPath := filepath.Join(dir, stem+".pyc")

	version, err := pythonVersionTag()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "python3", "-m", "py_compile", pyPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ExternalToolError{Stage: "py_compile", Args: []string{pyPath}, Stderr: stderr.String(), Err: err}
	}

	cacheDir := filepath.Join(dir, "__pycache__")
	cacheFile := filepath.Join(cacheDir, fmt.Sprintf("%s.cpython-%s.pyc", stem, version))

	if _, err := os.Stat(cacheFile); err != nil {
		return "", fmt.Errorf("could not find compiled .pyc file at %s: %w", cacheFile, err)
	}
	if err := os.Rename(cacheFile, pycPath); err != nil {
		return "", err
	}
	if entries, err := os.ReadDir(cacheDir); err == nil && len(entries) == 0 {
		os.Remove(cacheDir)
	}
	return pycPath, nil
}

// pythonVersionTag returns e.g. "311" for CPython 3.11, the tag py_compile
// embeds in the __pycache__ filename.
func pythonVersionTag() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stageTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "python3", "-c",
		"import sys; print(f'{sys.version_info.major}{sys.version_info.minor}')")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ExternalToolError{Stage: "python3-version", Stderr: stderr.String(), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}
