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

	"github.com/Tomek20225/pytc/bytecode/cursor"
)

// referenceFlag is the high bit of a tag byte (spec §4.2): when set, the
// payload participates in the intern table.
const referenceFlag byte = 0x80

// decoder holds the mutable state of a single decode pass: the cursor over
// the input buffer and the intern table being built up.
type decoder struct {
	cur    *cursor.Cursor
	intern []Var
}

// Decode reads exactly one Var from the start of buf and, if it is a Code
// value (directly, or via a reference whose payload is Code), returns the
// decoded code object together with the intern table built up while
// decoding it. Any other root shape is ErrNotACodeObject.
func Decode(buf []byte) (*Object, []Var, error) {
	d := &decoder{cur: cursor.New(buf)}

	tag, err := d.cur.ReadByte()
	if err != nil {
		return nil, nil, err
	}

	var root Var
	if tag&referenceFlag != 0 {
		// Root exception (spec §4.2): the flag is honored for intern-table
		// bookkeeping only. A placeholder is inserted at index 0 and the
		// payload itself (not a Ref) is what we return to the caller.
		slot := len(d.intern)
		d.intern = append(d.intern, Var{Kind: KindNone})
		payload, err := d.decodeTag(tag &^ referenceFlag)
		if err != nil {
			return nil, nil, err
		}
		d.intern[slot] = payload
		root = payload
	} else {
		root, err = d.decodeTag(tag)
		if err != nil {
			return nil, nil, err
		}
	}

	if root.Kind != KindCode {
		return nil, nil, ErrNotACodeObject
	}
	return root.Code, d.intern, nil
}

// readVar implements the single-Var protocol of spec §4.2 in full,
// including the store-on-flag/return-Ref behavior for every non-root Var.
func (d *decoder) readVar() (Var, error) {
	tag, err := d.cur.ReadByte()
	if err != nil {
		return Var{}, err
	}
	if tag&referenceFlag != 0 {
		slot := len(d.intern)
		d.intern = append(d.intern, Var{Kind: KindNone})
		payload, err := d.decodeTag(tag &^ referenceFlag)
		if err != nil {
			return Var{}, err
		}
		d.intern[slot] = payload
		return Var{Kind: KindRef, Ref: slot}, nil
	}
	return d.decodeTag(tag)
}

// decodeTag decodes the payload for an already-flag-stripped tag byte.
func (d *decoder) decodeTag(tag byte) (Var, error) {
	switch tag {
	case '0':
		return Var{Kind: KindNull}, nil
	case 'N':
		return Var{Kind: KindNone}, nil
	case 'T':
		return Var{Kind: KindTrue}, nil
	case 'F':
		return Var{Kind: KindFalse}, nil
	case 'i':
		n, err := d.cur.ReadLong()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindInt, Num: n}, nil
	case 'l':
		n, err := d.cur.ReadLong()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindLong, Num: n}, nil
	case 'c':
		obj, err := d.readCodeObject()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindCode, Code: obj}, nil
	case 'r':
		n, err := d.cur.ReadULong()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindRef, Ref: int(n)}, nil
	case 's':
		s, err := d.cur.ReadString()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindString, Text: s}, nil
	case 'z':
		// 0xfa is this same tag with the reference flag set; by the time
		// decodeTag runs the caller has already stripped that flag, so
		// only the bare 'z' value is ever seen here.
		s, err := d.cur.ReadShortString()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindShortAscii, Text: s}, nil
	case 'Z':
		// Same relationship to 0xda as 'z' has to 0xfa, see above.
		s, err := d.cur.ReadShortString()
		if err != nil {
			return Var{}, err
		}
		return Var{Kind: KindShortAsciiInterned, Text: s}, nil
	case ')':
		n, err := d.cur.ReadByte()
		if err != nil {
			return Var{}, err
		}
		tuple := make([]Var, n)
		for i := range tuple {
			v, err := d.readVar()
			if err != nil {
				return Var{}, err
			}
			tuple[i] = v
		}
		return Var{Kind: KindSmallTuple, Tuple: tuple}, nil
	default:
		return Var{}, &UnknownTagError{Tag: tag}
	}
}

// readCodeObject decodes the body of a 'c' tagged Var, per spec §4.3: the
// six integer fields, the raw bytecode decoded via the operation decoder,
// the seven sub-Vars, firstlineno, and the opaque lnotab.
func (d *decoder) readCodeObject() (*Object, error) {
	obj := &Object{}

	var err error
	if obj.ArgCount, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}
	if obj.KwOnlyArgCount, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}
	if obj.NLocals, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}
	if obj.PosOnlyArgCount, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}
	if obj.StackSize, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}
	if obj.Flags, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}

	// One tag byte (expected 's'), discarded, then a 4-byte length.
	if _, err := d.cur.ReadByte(); err != nil {
		return nil, err
	}
	codeSize, err := d.cur.ReadLong()
	if err != nil {
		return nil, err
	}
	if codeSize < 0 {
		return nil, fmt.Errorf("negative co_code size %d", codeSize)
	}
	raw, err := d.cur.ReadBytes(int(codeSize))
	if err != nil {
		return nil, err
	}
	if obj.Code, err = decodeOperations(raw); err != nil {
		return nil, err
	}

	fields := []*Var{
		&obj.Const, &obj.Names, &obj.Varnames,
		&obj.Freevars, &obj.Cellvars, &obj.Filename, &obj.Name,
	}
	for _, f := range fields {
		v, err := d.readVar()
		if err != nil {
			return nil, err
		}
		*f = v
	}

	if obj.FirstLineNo, err = d.cur.ReadLong(); err != nil {
		return nil, err
	}

	// lnotab is parsed opaquely and never consumed (spec §9(b)).
	if obj.Lnotab, err = d.readVar(); err != nil {
		return nil, err
	}

	return obj, nil
}
