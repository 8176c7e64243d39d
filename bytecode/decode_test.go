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

import (
	"errors"
	"testing"

	"github.com/Tomek20225/pytc/bytecode/cursor"
)

// shortAscii builds the wire bytes for a flagged ShortAscii(Interned) Var:
// 0x80|tag, length byte, then the ASCII payload.
func shortAscii(tag byte, s string) []byte {
	return append([]byte{0x80 | tag, byte(len(s))}, s...)
}

func smallTuple(elems ...[]byte) []byte {
	out := []byte{')', byte(len(elems))}
	for _, e := range elems {
		out = append(out, e...)
	}
	return out
}

func int32LE(tag byte, v int32) []byte {
	return []byte{tag, byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// buildCode assembles a flagged code object wrapping a single
// instruction sequence, with empty names/const/etc tuples except for the
// ones callers fill in via the opts.
type codeOpts struct {
	argcount, kwonly, nlocals, posonly, stacksize, flags, firstline int32
	code                                                            []byte
	constants                                                       []byte // pre-built SmallTuple bytes
	names                                                           []byte
	varnames                                                        []byte
	freevars                                                        []byte
	cellvars                                                        []byte
	filename                                                        []byte
	name                                                            []byte
}

func buildCode(o codeOpts) []byte {
	emptyTuple := smallTuple()
	emptyText := shortAscii('z', "")
	pick := func(b, zero []byte) []byte {
		if b == nil {
			return zero
		}
		return b
	}
	buf := []byte{0x80 | 'c'}
	buf = append(buf, int32LE(0, o.argcount)[1:]...)
	buf = append(buf, int32LE(0, o.kwonly)[1:]...)
	buf = append(buf, int32LE(0, o.nlocals)[1:]...)
	buf = append(buf, int32LE(0, o.posonly)[1:]...)
	buf = append(buf, int32LE(0, o.stacksize)[1:]...)
	buf = append(buf, int32LE(0, o.flags)[1:]...)
	buf = append(buf, 's')
	buf = append(buf, int32LE(0, int32(len(o.code)))[1:]...)
	buf = append(buf, o.code...)
	buf = append(buf, pick(o.constants, emptyTuple)...)
	buf = append(buf, pick(o.names, emptyTuple)...)
	buf = append(buf, pick(o.varnames, emptyTuple)...)
	buf = append(buf, pick(o.freevars, emptyTuple)...)
	buf = append(buf, pick(o.cellvars, emptyTuple)...)
	buf = append(buf, pick(o.filename, emptyText)...)
	buf = append(buf, pick(o.name, emptyText)...)
	buf = append(buf, int32LE(0, o.firstline)[1:]...)
	buf = append(buf, 'N') // lnotab: opaque None
	return buf
}

func TestDecodeEndianness(t *testing.T) {
	d := &decoder{}
	d.cur = cursor.New([]byte{0x2A, 0x00, 0x00, 0x00})
	v, err := d.decodeTag('i')
	if err != nil {
		t.Fatalf("decodeTag: %v", err)
	}
	if v.Kind != KindInt || v.Num != 42 {
		t.Fatalf("decodeTag('i') = %+v, want Int(42)", v)
	}

	d2 := &decoder{}
	d2.cur = cursor.New([]byte{0xFE, 0xFF, 0xFF, 0xFF})
	v2, err := d2.decodeTag('i')
	if err != nil {
		t.Fatalf("decodeTag: %v", err)
	}
	if v2.Kind != KindInt || v2.Num != -2 {
		t.Fatalf("decodeTag('i') = %+v, want Int(-2)", v2)
	}
}

func TestDecodeRootShapeCode(t *testing.T) {
	code := buildCode(codeOpts{code: []byte{opcodeReturnValue, 0}})
	obj, table, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if obj == nil {
		t.Fatal("Decode returned a nil object")
	}
	if len(table) == 0 {
		t.Fatal("expected a non-empty intern table for a flagged root")
	}
}

func TestDecodeRootShapeRejectsNonCode(t *testing.T) {
	_, _, err := Decode([]byte{'N'})
	if !errors.Is(err, ErrNotACodeObject) {
		t.Fatalf("Decode() err = %v, want ErrNotACodeObject", err)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	_, _, err := Decode([]byte{'?'})
	var ute *UnknownTagError
	if !errors.As(err, &ute) {
		t.Fatalf("Decode() err = %v, want *UnknownTagError", err)
	}
}

func TestInternTableRefsInBounds(t *testing.T) {
	name := shortAscii('Z', "x")
	code := buildCode(codeOpts{
		code: []byte{opcodeLoadConst, 0, opcodeReturnValue, 0},
		constants: smallTuple([]byte{'i', 1, 0, 0, 0}),
		names:     smallTuple(name),
	})
	obj, table, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := NewResolver(table)
	names, err := r.Names(obj)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names[0] != "x" {
		t.Fatalf("Names() = %v, want [x]", names)
	}
	// Every Ref produced during decode must be in bounds.
	var walk func(v Var)
	walk = func(v Var) {
		if v.Kind == KindRef {
			if v.Ref < 0 || v.Ref >= len(table) {
				t.Fatalf("Ref(%d) out of bounds of table with %d entries", v.Ref, len(table))
			}
		}
		for _, e := range v.Tuple {
			walk(e)
		}
	}
	walk(obj.Names)
}

func TestTagCoverage(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want Kind
	}{
		{"Null", []byte{'0'}, KindNull},
		{"None", []byte{'N'}, KindNone},
		{"True", []byte{'T'}, KindTrue},
		{"False", []byte{'F'}, KindFalse},
		{"Int", append([]byte{'i'}, 1, 0, 0, 0), KindInt},
		{"Long", append([]byte{'l'}, 1, 0, 0, 0), KindLong},
		{"String", append([]byte{'s', 1, 0, 0, 0}, 'a'), KindString},
		{"ShortAscii", append([]byte{'z', 1}, 'a'), KindShortAscii},
		{"ShortAsciiInterned", append([]byte{'Z', 1}, 'a'), KindShortAsciiInterned},
		{"SmallTuple", []byte{')', 0}, KindSmallTuple},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &decoder{cur: cursor.New(tc.buf[1:])}
			v, err := d.decodeTag(tc.buf[0])
			if err != nil {
				t.Fatalf("decodeTag: %v", err)
			}
			if v.Kind != tc.want {
				t.Fatalf("decodeTag(%q) kind = %v, want %v", tc.buf[0], v.Kind, tc.want)
			}
		})
	}

	// 'c' and 'r' are exercised by TestDecodeRootShapeCode and
	// TestRefTag respectively.
}

func TestRefTag(t *testing.T) {
	d := &decoder{cur: cursor.New([]byte{5, 0, 0, 0})}
	v, err := d.decodeTag('r')
	if err != nil {
		t.Fatalf("decodeTag: %v", err)
	}
	if v.Kind != KindRef || v.Ref != 5 {
		t.Fatalf("decodeTag('r') = %+v, want Ref(5)", v)
	}
}
