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

package bytecode

import "github.com/Tomek20225/pytc/bytecode/cursor"

// OpKind identifies one of the supported bytecode instructions.
type OpKind int

const (
	OpLoadConst OpKind = iota
	OpStoreName
	OpLoadName
	OpCallFunction
	OpBinaryAdd
	OpBinarySubtract
	OpPopTop
	OpReturnValue
	OpStopCode
)

func (k OpKind) String() string {
	switch k {
	case OpLoadConst:
		return "LOAD_CONST"
	case OpStoreName:
		return "STORE_NAME"
	case OpLoadName:
		return "LOAD_NAME"
	case OpCallFunction:
		return "CALL_FUNCTION"
	case OpBinaryAdd:
		return "BINARY_ADD"
	case OpBinarySubtract:
		return "BINARY_SUBTRACT"
	case OpPopTop:
		return "POP_TOP"
	case OpReturnValue:
		return "RETURN_VALUE"
	case OpStopCode:
		return "STOP_CODE"
	default:
		return "UNKNOWN_OP"
	}
}

// Operation is one decoded bytecode instruction: a tag plus the optional
// 8-bit argument the argumented opcodes carry.
type Operation struct {
	Kind OpKind
	Arg  byte
}

// opcode byte values, matching CPython's wordcode instruction set for the
// subset this compiler supports (one stopcode sentinel byte plus the
// argumented/nullary families of spec §4.4).
const (
	opcodeStopCode        byte = 0
	opcodePopTop          byte = 1
	opcodeBinaryAdd       byte = 23
	opcodeBinarySubtract  byte = 24
	opcodeReturnValue     byte = 83
	opcodeStoreName       byte = 90
	opcodeLoadConst       byte = 100
	opcodeLoadName        byte = 101
	opcodeCallFunction    byte = 131
)

// opKind maps opcode to its OpKind and reports whether it carries a
// meaningful argument byte, and whether opcode is recognized at all.
func opKind(opcode byte) (kind OpKind, argumented bool, ok bool) {
	switch opcode {
	case opcodeLoadConst:
		return OpLoadConst, true, true
	case opcodeStoreName:
		return OpStoreName, true, true
	case opcodeLoadName:
		return OpLoadName, true, true
	case opcodeCallFunction:
		return OpCallFunction, true, true
	case opcodeBinaryAdd:
		return OpBinaryAdd, false, true
	case opcodeBinarySubtract:
		return OpBinarySubtract, false, true
	case opcodePopTop:
		return OpPopTop, false, true
	case opcodeReturnValue:
		return OpReturnValue, false, true
	case opcodeStopCode:
		return OpStopCode, false, true
	default:
		return 0, false, false
	}
}

// decodeOperations reads exactly the raw bytecode slice and decodes it into
// a sequence of Operations, following the 2-byte (opcode, arg-or-padding)
// instruction grid described in spec §4.4: every instruction consumes
// exactly two bytes regardless of whether its opcode is argumented.
func decodeOperations(raw []byte) ([]Operation, error) {
	c := cursor.New(raw)
	var ops []Operation
	for !c.IsEOF() {
		opcodeByte, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		kind, argumented, ok := opKind(opcodeByte)
		if !ok {
			return nil, &UnknownOpcodeError{Opcode: opcodeByte}
		}
		argByte, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		op := Operation{Kind: kind}
		if argumented {
			op.Arg = argByte
		}
		ops = append(ops, op)
	}
	return ops, nil
}
