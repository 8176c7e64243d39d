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

// Package llir lowers a decoded bytecode.Object tree to LLVM IR text,
// interpreting the stack-machine Operations of spec §4.4 directly into
// github.com/llir/llvm IR construction calls, the way vm/ssa.go lowers
// sneller's own query plan into a register-machine program.
package llir

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/Tomek20225/pytc/builtin"
	"github.com/Tomek20225/pytc/bytecode"
)

// mainFunctionName is what the outermost code object's LLIR function is
// called, regardless of its co_name (spec.md supplemented feature, see
// SPEC_FULL.md "Nested function naming").
const mainFunctionName = "main"

// Emitter lowers one decoded code-object tree into an *ir.Module.
type Emitter struct {
	resolver bytecode.Resolver
	module   *ir.Module
	printf   *ir.Func
	strings  map[string]value.Value
}

// New builds an Emitter over the intern table a bytecode.Decode call
// produced.
func New(resolver bytecode.Resolver) *Emitter {
	return &Emitter{resolver: resolver, strings: map[string]value.Value{}}
}

// Emit lowers root (and every code object transitively reachable from its
// constants) into a single LLIR module and returns it.
func (e *Emitter) Emit(root *bytecode.Object) (*ir.Module, error) {
	e.module = ir.NewModule()
	e.declarePrintf()

	objs, err := e.resolver.NestedCodeObjects(root)
	if err != nil {
		return nil, fmt.Errorf("enumerating nested code objects: %w", err)
	}

	for i, co := range objs {
		name := mainFunctionName
		if co != root {
			n, err := e.resolver.ResolveName(co)
			if err != nil {
				return nil, fmt.Errorf("naming function %d: %w", i, err)
			}
			name = n
		}
		if err := e.emitFunction(name, co); err != nil {
			return nil, fmt.Errorf("emitting function %q: %w", name, err)
		}
	}

	return e.module, nil
}

// declarePrintf declares the C library's variadic printf, the only host
// routine the built-ins registry calls into (spec §4.7).
func (e *Emitter) declarePrintf() {
	fn := e.module.NewFunc("printf", types.I32, ir.NewParam("format", types.NewPointer(types.I8)))
	fn.Sig.Variadic = true
	e.printf = fn
}

// llvalue is one operand-stack entry: either a materialized LLIR value
// backed by stack storage, or a reference to a built-in callee that has not
// been evaluated yet (builtins are not first-class LLIR values).
type llvalue struct {
	typ         types.Type
	ptr         value.Value
	val         value.Value
	isBuiltin   bool
	builtinName string
}

// funcState is the per-function interpreter state for the stack machine of
// spec §4.4/§4.6: an operand stack plus a symbol map from co_names/assigned
// identifiers to their storage.
type funcState struct {
	block   *ir.Block
	stack   []llvalue
	symbols map[string]llvalue
}

func (fs *funcState) push(v llvalue) {
	fs.stack = append(fs.stack, v)
}

func (fs *funcState) pop(op fmt.Stringer) (llvalue, error) {
	if len(fs.stack) == 0 {
		return llvalue{}, &StackUnderflowError{Op: op.String()}
	}
	top := fs.stack[len(fs.stack)-1]
	fs.stack = fs.stack[:len(fs.stack)-1]
	return top, nil
}

// emitFunction lowers one code object into an LLIR function named name.
func (e *Emitter) emitFunction(name string, co *bytecode.Object) error {
	retType, err := e.resolver.ReturnType(co)
	if err != nil {
		return err
	}
	var llRet types.Type
	switch retType {
	case bytecode.ReturnKindInt32:
		llRet = types.I32
	default:
		return fmt.Errorf("unsupported return kind for function %q", name)
	}

	fn := e.module.NewFunc(name, llRet)
	block := fn.NewBlock("entry")
	fs := &funcState{block: block, symbols: map[string]llvalue{}}

	consts, err := e.resolver.Constants(co)
	if err != nil {
		return err
	}
	names, err := e.resolver.Names(co)
	if err != nil {
		return err
	}

	for _, op := range co.Code {
		if err := e.step(fs, op, consts, names); err != nil {
			return fmt.Errorf("%s: %w", op.Kind, err)
		}
	}
	return nil
}

// step interprets a single Operation against fs, per the operand-stack
// semantics of spec §4.6.
func (e *Emitter) step(fs *funcState, op bytecode.Operation, consts []bytecode.Var, names []string) error {
	switch op.Kind {
	case bytecode.OpLoadConst:
		if int(op.Arg) >= len(consts) {
			return fmt.Errorf("LoadConst argument %d out of range of %d constants", op.Arg, len(consts))
		}
		lv, err := e.materializeConst(fs, consts[op.Arg])
		if err != nil {
			return err
		}
		fs.push(lv)
		return nil

	case bytecode.OpStoreName:
		lv, err := fs.pop(op.Kind)
		if err != nil {
			return err
		}
		if int(op.Arg) >= len(names) {
			return fmt.Errorf("StoreName argument %d out of range of %d names", op.Arg, len(names))
		}
		name := names[op.Arg]
		if alloca, ok := lv.ptr.(*ir.InstAlloca); ok {
			alloca.SetName(name)
		}
		fs.symbols[name] = lv
		fs.block.NewStore(lv.val, lv.ptr)
		return nil

	case bytecode.OpLoadName:
		if int(op.Arg) >= len(names) {
			return fmt.Errorf("LoadName argument %d out of range of %d names", op.Arg, len(names))
		}
		name := names[op.Arg]
		if sym, ok := fs.symbols[name]; ok {
			loaded := fs.block.NewLoad(sym.typ, sym.ptr)
			fs.push(llvalue{typ: sym.typ, ptr: sym.ptr, val: loaded})
			return nil
		}
		if builtin.IsBuiltin(name) {
			fs.push(llvalue{isBuiltin: true, builtinName: name})
			return nil
		}
		return &UnboundNameError{Name: name}

	case bytecode.OpBinaryAdd, bytecode.OpBinarySubtract:
		b, err := fs.pop(op.Kind)
		if err != nil {
			return err
		}
		a, err := fs.pop(op.Kind)
		if err != nil {
			return err
		}
		var result value.Value
		if op.Kind == bytecode.OpBinaryAdd {
			result = fs.block.NewAdd(a.val, b.val)
		} else {
			result = fs.block.NewSub(a.val, b.val)
		}
		fs.push(llvalue{typ: types.I32, val: result})
		return nil

	case bytecode.OpCallFunction:
		n := int(op.Arg)
		args := make([]llvalue, n)
		for i := n - 1; i >= 0; i-- {
			a, err := fs.pop(op.Kind)
			if err != nil {
				return err
			}
			args[i] = a
		}
		callee, err := fs.pop(op.Kind)
		if err != nil {
			return err
		}
		if !callee.isBuiltin {
			return &UnimplementedCallError{Name: "<non-builtin callee>"}
		}
		bargs := make([]builtin.Value, n)
		for i, a := range args {
			bargs[i] = builtin.Value{LL: a.val, IsInteger: a.typ == types.I32}
		}
		if _, err := builtin.Call(callee.builtinName, &emitContext{e: e, fs: fs}, bargs); err != nil {
			return err
		}
		// CallFunction always leaves a result on the stack; this subset's
		// only built-in (print) returns nothing meaningful, so push a
		// placeholder the following PopTop/ReturnValue can consume.
		fs.push(llvalue{typ: types.I32, val: constant.NewInt(types.I32, 0)})
		return nil

	case bytecode.OpPopTop:
		_, err := fs.pop(op.Kind)
		return err

	case bytecode.OpReturnValue:
		lv, err := fs.pop(op.Kind)
		if err != nil {
			return err
		}
		fs.block.NewRet(lv.val)
		if len(fs.stack) != 0 {
			return &StackImbalanceAtReturnError{Depth: len(fs.stack)}
		}
		return nil

	case bytecode.OpStopCode:
		return nil

	default:
		return &UnimplementedOperationError{Op: op.Kind}
	}
}

// materializeConst lowers a decoded constant Var into stack-backed LLIR
// storage: an alloca under a temporary name, stored immediately, per the
// LoadConst step of spec §4.6.
func (e *Emitter) materializeConst(fs *funcState, v bytecode.Var) (llvalue, error) {
	switch v.Kind {
	case bytecode.KindInt, bytecode.KindLong, bytecode.KindNone:
		n := v.Num
		c := constant.NewInt(types.I32, int64(n))
		ptr := fs.block.NewAlloca(types.I32)
		fs.block.NewStore(c, ptr)
		return llvalue{typ: types.I32, ptr: ptr, val: c}, nil
	case bytecode.KindString, bytecode.KindShortAscii, bytecode.KindShortAsciiInterned:
		text, _ := v.TextValue()
		strPtr := e.globalString("const", text)
		strType := types.NewPointer(types.I8)
		ptr := fs.block.NewAlloca(strType)
		fs.block.NewStore(strPtr, ptr)
		return llvalue{typ: strType, ptr: ptr, val: strPtr}, nil
	default:
		return llvalue{}, fmt.Errorf("unsupported constant kind %s for LoadConst", v.Kind)
	}
}

// globalString returns (creating and caching on first use) a pointer to a
// module-scope NUL-terminated constant string.
func (e *Emitter) globalString(label, text string) value.Value {
	if v, ok := e.strings[text]; ok {
		return v
	}
	data := constant.NewCharArrayFromString(text + "\x00")
	name := fmt.Sprintf(".str.%s.%d", label, len(e.strings))
	g := e.module.NewGlobalDef(name, data)
	zero := constant.NewInt(types.I64, 0)
	ptr := constant.NewGetElementPtr(data.Typ, g, zero, zero)
	e.strings[text] = ptr
	return ptr
}

// emitContext adapts one function's in-progress block to builtin.EmitContext
// for the duration of a single CallFunction step.
type emitContext struct {
	e  *Emitter
	fs *funcState
}

func (c *emitContext) Printf() value.Value { return c.e.printf }

func (c *emitContext) GlobalString(label, text string) value.Value {
	return c.e.globalString(label, text)
}

func (c *emitContext) Call(callee value.Value, args ...value.Value) value.Value {
	return c.fs.block.NewCall(callee, args...)
}
