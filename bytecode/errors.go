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

// Package bytecode decodes a CPython marshal stream into a tree of typed
// Vars rooted at a CodeObject, and decodes a code object's raw instruction
// stream into a sequence of Operations.
package bytecode

import "fmt"

// UnknownTagError is returned when the decoder sees a tag byte outside the
// table in spec §4.2.
type UnknownTagError struct {
	Tag byte
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unsupported value kind: unknown tag %q (0x%02x)", e.Tag, e.Tag)
}

// UnknownOpcodeError is returned when the operation decoder sees an opcode
// byte outside the supported subset.
type UnknownOpcodeError struct {
	Opcode byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unsupported operation: unknown opcode 0x%02x", e.Opcode)
}

// ErrNotACodeObject is returned by Decode when the root Var is neither Code
// nor a reference to a Code value.
var ErrNotACodeObject = fmt.Errorf("malformed bytecode: root value is not a code object")
