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

import "testing"

func TestResolveNameFollowsRef(t *testing.T) {
	code := buildCode(codeOpts{
		code: []byte{opcodeLoadConst, 0, opcodeReturnValue, 0},
		constants: smallTuple([]byte{'i', 7, 0, 0, 0}),
		name:      shortAscii('Z', "baz"),
	})
	obj, table, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := NewResolver(table)
	name, err := r.ResolveName(obj)
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if name != "baz" {
		t.Fatalf("ResolveName() = %q, want %q", name, "baz")
	}
}

func TestReturnTypeFromLoadConstPredecessor(t *testing.T) {
	code := buildCode(codeOpts{
		code: []byte{opcodeLoadConst, 0, opcodeReturnValue, 0},
		constants: smallTuple([]byte{'i', 5, 0, 0, 0}),
	})
	obj, table, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := NewResolver(table)
	rt, err := r.ReturnType(obj)
	if err != nil {
		t.Fatalf("ReturnType: %v", err)
	}
	if rt != ReturnKindInt32 {
		t.Fatalf("ReturnType() = %v, want ReturnKindInt32", rt)
	}
}

func TestReturnTypeUnsupportedPredecessor(t *testing.T) {
	code := buildCode(codeOpts{
		code: []byte{opcodePopTop, 0, opcodeReturnValue, 0},
	})
	obj, table, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := NewResolver(table)
	if _, err := r.ReturnType(obj); err == nil {
		t.Fatal("ReturnType() expected an error for a non-LoadConst predecessor")
	}
}

func TestNestedCodeObjectsIncludesOuterAndNested(t *testing.T) {
	inner := buildCode(codeOpts{
		code: []byte{opcodeLoadConst, 0, opcodeReturnValue, 0},
		constants: smallTuple([]byte{'i', 1, 0, 0, 0}),
		name:      shortAscii('Z', "baz"),
	})
	outer := buildCode(codeOpts{
		code:      []byte{opcodeLoadConst, 1, opcodeReturnValue, 0},
		constants: smallTuple(inner, []byte{'i', 0, 0, 0, 0}),
		names:     smallTuple(shortAscii('Z', "baz")),
		name:      shortAscii('z', "main"),
	})
	obj, table, err := Decode(outer)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	r := NewResolver(table)
	all, err := r.NestedCodeObjects(obj)
	if err != nil {
		t.Fatalf("NestedCodeObjects: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("NestedCodeObjects() returned %d objects, want 2", len(all))
	}
	outerName, _ := r.ResolveName(all[0])
	if outerName != "main" {
		t.Fatalf("NestedCodeObjects()[0] name = %q, want main (outer-first)", outerName)
	}
	innerName, _ := r.ResolveName(all[1])
	if innerName != "baz" {
		t.Fatalf("NestedCodeObjects()[1] name = %q, want baz", innerName)
	}
}

func TestResolveTupleRejectsRefField(t *testing.T) {
	r := NewResolver(nil)
	if _, err := r.ResolveTuple(Var{Kind: KindRef, Ref: 0}); err == nil {
		t.Fatal("ResolveTuple() expected an error when given a Ref instead of a SmallTuple")
	}
}
