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

import "fmt"

// Kind identifies which variant of Var a value holds.
type Kind int

const (
	KindNull Kind = iota
	KindNone
	KindTrue
	KindFalse
	KindInt
	KindLong
	KindString
	KindShortAscii
	KindShortAsciiInterned
	KindSmallTuple
	KindCode
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindNone:
		return "None"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindInt:
		return "Int"
	case KindLong:
		return "Long"
	case KindString:
		return "String"
	case KindShortAscii:
		return "ShortAscii"
	case KindShortAsciiInterned:
		return "ShortAsciiInterned"
	case KindSmallTuple:
		return "SmallTuple"
	case KindCode:
		return "Code"
	case KindRef:
		return "Ref"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Var is the universal decoded value: a tagged sum over every marshal value
// kind the decoder understands. Only the fields relevant to Kind are
// meaningful.
type Var struct {
	Kind  Kind
	Num   int32    // Int, Long
	Text  string   // String, ShortAscii, ShortAsciiInterned
	Tuple []Var    // SmallTuple
	Code  *Object  // Code
	Ref   int      // Ref: index into the owning intern table
}

// Text variants report the string they carry through TextValue; any other
// Kind reports ok == false.
func (v Var) TextValue() (string, bool) {
	switch v.Kind {
	case KindString, KindShortAscii, KindShortAsciiInterned:
		return v.Text, true
	default:
		return "", false
	}
}

// IsNumeric reports whether v is an Int or Long.
func (v Var) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindLong
}
