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

// Package builtin is the table-driven registry of host routines the LLIR
// emitter may call on behalf of a LoadName/CallFunction pair, mirroring how
// sneller's expr package keeps its builtin function table (expr.BuiltinOp,
// expr/builtin.go) separate from the code that evaluates it.
package builtin

import (
	"fmt"

	"github.com/llir/llvm/ir/value"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is the minimal description of an already-emitted operand a
// built-in handler needs: its LLIR value and whether its static type is
// integer (selects the print format string, per spec §4.7).
type Value struct {
	LL        value.Value
	IsInteger bool
}

// EmitContext is the surface the emitter exposes to built-in handlers, kept
// narrow so this package never has to import the emitter itself.
type EmitContext interface {
	// Printf returns the module-scope declaration of the host's formatted
	// output routine.
	Printf() value.Value
	// GlobalString materializes a NUL-terminated constant string and
	// returns an i8* pointer to its first byte.
	GlobalString(label, text string) value.Value
	// Call emits a call to callee with args and returns its result.
	Call(callee value.Value, args ...value.Value) value.Value
}

// Handler emits the LLIR for one call to a built-in, given its
// already-evaluated arguments.
type Handler func(ctx EmitContext, args []Value) (Value, error)

type entry struct {
	arity   int
	handler Handler
}

var registry = map[string]entry{}

func init() {
	Register(Print, 1, printHandler)
}

// Print is the name of the mandated built-in of spec §4.7.
const Print = "print"

// Register adds (or replaces) a built-in. Adding a built-in is meant to be
// a single-entry extension, per spec §4.7.
func Register(name string, arity int, h Handler) {
	registry[name] = entry{arity: arity, handler: h}
}

// IsBuiltin reports whether name is a recognized built-in.
func IsBuiltin(name string) bool {
	_, ok := registry[name]
	return ok
}

// Arity reports a built-in's expected argument count.
func Arity(name string) (int, bool) {
	e, ok := registry[name]
	return e.arity, ok
}

// Call dispatches to a built-in's handler, checking arity first.
func Call(name string, ctx EmitContext, args []Value) (Value, error) {
	e, ok := registry[name]
	if !ok {
		return Value{}, fmt.Errorf("%q is not a builtin", name)
	}
	if len(args) != e.arity {
		return Value{}, fmt.Errorf("builtin %q expects %d argument(s), got %d", name, e.arity, len(args))
	}
	return e.handler(ctx, args)
}

// Names returns every registered built-in name in a stable, sorted order —
// used by diagnostics that enumerate what is callable (e.g. an UnboundName
// error naming the built-ins the caller could have meant).
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// AritySnapshot returns a defensive copy of the name->arity table, for
// callers (such as cmd/pytc's -list-builtins flag) that want to inspect the
// registry without being able to mutate it.
func AritySnapshot() map[string]int {
	out := make(map[string]int, len(registry))
	for n, e := range registry {
		out[n] = e.arity
	}
	return maps.Clone(out)
}

// printHandler implements the mandated "print" built-in: format-string
// selection by argument type, then a call to the host's printf.
func printHandler(ctx EmitContext, args []Value) (Value, error) {
	arg := args[0]
	format := "%s\n"
	if arg.IsInteger {
		format = "%d\n"
	}
	fstr := ctx.GlobalString("print_format", format)
	ctx.Call(ctx.Printf(), fstr, arg.LL)
	return Value{}, nil
}
