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
	"fmt"

	"github.com/dchest/siphash"
)

// Object is a single unit of compiled code: a CPython code object,
// stripped down to the fields the supported operation subset needs.
type Object struct {
	ArgCount        int32
	PosOnlyArgCount int32
	KwOnlyArgCount  int32
	NLocals         int32
	StackSize       int32
	Flags           int32
	Code            []Operation
	Const           Var
	Names           Var
	Varnames        Var
	Freevars        Var
	Cellvars        Var
	Filename        Var
	Name            Var
	FirstLineNo     int32
	Lnotab          Var // parsed opaquely, never consumed
}

// ReturnKind is the (very small) type lattice the return-type inference of
// spec §4.5 produces.
type ReturnKind int

const (
	ReturnKindUnknown ReturnKind = iota
	ReturnKindInt32
)

// Resolver combines a decoded Object tree with the intern table it was
// decoded against, and offers the dereferencing helpers spec §4.5
// describes. The zero value is a Resolver over an empty intern table, the
// same as NewResolver(nil).
type Resolver struct {
	Table []Var
}

// NewResolver builds a Resolver over an intern table produced by Decode.
func NewResolver(table []Var) Resolver {
	return Resolver{Table: table}
}

func (r Resolver) derefOnce(v Var) (Var, error) {
	if v.Kind != KindRef {
		return v, nil
	}
	if v.Ref < 0 || v.Ref >= len(r.Table) {
		return Var{}, fmt.Errorf("ref index %d out of bounds (intern table has %d entries)", v.Ref, len(r.Table))
	}
	return r.Table[v.Ref], nil
}

// ResolveName returns the string behind co.Name, following a Ref if
// present.
func (r Resolver) ResolveName(co *Object) (string, error) {
	v, err := r.derefOnce(co.Name)
	if err != nil {
		return "", err
	}
	s, ok := v.TextValue()
	if !ok {
		return "", fmt.Errorf("co_name is a %s, not a textual variant", v.Kind)
	}
	return s, nil
}

// ResolveTuple expects field to be a SmallTuple (not itself a Ref) and
// returns its elements with every Ref element replaced by the intern-table
// entry it points at (one hop only; further indirection is unsupported).
func (r Resolver) ResolveTuple(field Var) ([]Var, error) {
	if field.Kind != KindSmallTuple {
		return nil, fmt.Errorf("expected a SmallTuple, got %s", field.Kind)
	}
	out := make([]Var, len(field.Tuple))
	for i, el := range field.Tuple {
		v, err := r.derefOnce(el)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Constants returns co.Const's elements.
func (r Resolver) Constants(co *Object) ([]Var, error) {
	return r.ResolveTuple(co.Const)
}

// Names returns co.Names's elements as strings; any non-textual element is
// an error.
func (r Resolver) Names(co *Object) ([]string, error) {
	vars, err := r.ResolveTuple(co.Names)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(vars))
	for i, v := range vars {
		s, ok := v.TextValue()
		if !ok {
			return nil, fmt.Errorf("found non-string value %s in co_names", v.Kind)
		}
		names[i] = s
	}
	return names, nil
}

// signature derives a stable hash of a code object's identity so
// NestedCodeObjects can detect a code object that (transitively)
// references its own enclosing scope in its constants tuple — legal for
// recursive closures, but fatal to a naive recursive walk.
func (r Resolver) signature(co *Object) uint64 {
	name, _ := r.ResolveName(co)
	filenameVar, _ := r.derefOnce(co.Filename)
	filename, _ := filenameVar.TextValue()
	key := fmt.Sprintf("%s\x00%s\x00%d\x00%d", filename, name, co.FirstLineNo, co.ArgCount)
	return siphash.Hash(0, 0, []byte(key))
}

// NestedCodeObjects enumerates co and every Code value transitively
// reachable through its constants, outer-first, each code object visited
// exactly once.
func (r Resolver) NestedCodeObjects(co *Object) ([]*Object, error) {
	seen := make(map[uint64]bool)
	var out []*Object
	var walk func(*Object) error
	walk = func(cur *Object) error {
		sig := r.signature(cur)
		if seen[sig] {
			return nil
		}
		seen[sig] = true
		out = append(out, cur)
		consts, err := r.Constants(cur)
		if err != nil {
			return err
		}
		for _, c := range consts {
			if c.Kind == KindCode {
				if err := walk(c.Code); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(co); err != nil {
		return nil, err
	}
	return out, nil
}

// ReturnType inspects the instruction immediately preceding the function's
// ReturnValue and reports the type of the operand it will pop, per spec
// §4.5. Only a LoadConst predecessor is supported.
func (r Resolver) ReturnType(co *Object) (ReturnKind, error) {
	ops := co.Code
	idx := -1
	for i, op := range ops {
		if op.Kind == OpReturnValue {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return ReturnKindUnknown, fmt.Errorf("code object has no ReturnValue instruction with a preceding operation")
	}
	pred := ops[idx-1]
	if pred.Kind != OpLoadConst {
		return ReturnKindUnknown, fmt.Errorf("unsupported return-type predecessor %s", pred.Kind)
	}
	consts, err := r.Constants(co)
	if err != nil {
		return ReturnKindUnknown, err
	}
	if int(pred.Arg) >= len(consts) {
		return ReturnKindUnknown, fmt.Errorf("LoadConst argument %d out of range of %d constants", pred.Arg, len(consts))
	}
	c := consts[pred.Arg]
	switch c.Kind {
	case KindInt, KindLong, KindNone:
		return ReturnKindInt32, nil
	default:
		return ReturnKindUnknown, fmt.Errorf("unsupported return constant type %s", c.Kind)
	}
}
