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

package llir

import (
	"fmt"

	"github.com/Tomek20225/pytc/builtin"
)

// UnboundNameError is a CompileFailure (spec §7): LoadName against a name
// that is neither in the current function's symbol map nor a builtin.
type UnboundNameError struct {
	Name string
}

func (e *UnboundNameError) Error() string {
	return fmt.Sprintf("name %q is not bound and is not a builtin (known builtins: %v)", e.Name, builtin.Names())
}

// StackUnderflowError is an internal CompileFailure: the emitter tried to
// pop an empty operand stack.
type StackUnderflowError struct {
	Op string
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow executing %s", e.Op)
}

// StackImbalanceAtReturnError is an internal CompileFailure: the operand
// stack was not empty immediately after ReturnValue consumed its operand.
type StackImbalanceAtReturnError struct {
	Depth int
}

func (e *StackImbalanceAtReturnError) Error() string {
	return fmt.Sprintf("operand stack has %d leftover value(s) after ReturnValue", e.Depth)
}

// UnimplementedCallError is an Unsupported error: CallFunction targeted a
// callee that is neither a builtin nor something this emitter can lower.
type UnimplementedCallError struct {
	Name string
}

func (e *UnimplementedCallError) Error() string {
	return fmt.Sprintf("unsupported: call to non-builtin %q is not implemented", e.Name)
}

// UnimplementedOperationError is an Unsupported error: the interpreter hit
// an Operation kind outside the supported subset.
type UnimplementedOperationError struct {
	Op fmt.Stringer
}

func (e *UnimplementedOperationError) Error() string {
	return fmt.Sprintf("unsupported: operation %s is not implemented", e.Op)
}
