// internal/vm/vm.go
package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	pkgerrors "github.com/pkg/errors"

	"plum/internal/bytecode"
	"plum/internal/compiler"
	"plum/internal/errors"
)

// ErrInterrupted is returned by Interpret when the interrupt callback fires
// mid-execution.
var ErrInterrupted = pkgerrors.New("interrupted")

// interruptStride is how many instructions run between interrupt checks.
const interruptStride = 1024

type frame struct {
	fn       *compiler.Function
	chunk    *bytecode.Chunk
	ip       int
	slotBase int
}

// VM is a stack machine over bytecode chunks. Globals persist across calls to
// Interpret, so an interactive session accumulates definitions while each
// statement runs in a fresh frame.
type VM struct {
	stack     []interface{}
	frames    []frame
	globals   map[string]interface{}
	stdout    io.Writer
	interrupt func() bool
	ticks     int
}

func NewVM(stdout io.Writer) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &VM{
		globals: make(map[string]interface{}),
		stdout:  stdout,
	}
}

// SetInterrupt installs a callback polled periodically during execution.
// When it returns true the VM stops with ErrInterrupted.
func (v *VM) SetInterrupt(f func() bool) {
	v.interrupt = f
}

// Global returns the value bound to name, if any.
func (v *VM) Global(name string) (interface{}, bool) {
	val, ok := v.globals[name]
	return val, ok
}

// Interpret executes a chunk to completion. The value stack and frame stack
// are reset first; the global table is kept.
func (v *VM) Interpret(chunk *bytecode.Chunk) error {
	v.stack = v.stack[:0]
	v.frames = v.frames[:0]
	v.frames = append(v.frames, frame{chunk: chunk})
	return v.run()
}

func (v *VM) run() error {
	for len(v.frames) > 0 {
		f := &v.frames[len(v.frames)-1]

		if f.ip >= len(f.chunk.Code) {
			// Top-level chunks end without an explicit return.
			v.frames = v.frames[:len(v.frames)-1]
			continue
		}

		v.ticks++
		if v.interrupt != nil && v.ticks%interruptStride == 0 && v.interrupt() {
			return ErrInterrupted
		}

		op := bytecode.OpCode(f.chunk.Code[f.ip])
		f.ip++

		switch op {
		case bytecode.OpConstant:
			v.push(f.chunk.Constants[v.readByte(f)])

		case bytecode.OpAdd:
			b, a := v.pop(), v.pop()
			switch left := a.(type) {
			case float64:
				right, ok := b.(float64)
				if !ok {
					return typeErrorf("cannot add %s to a number", typeName(b))
				}
				v.push(left + right)
			case string:
				right, ok := b.(string)
				if !ok {
					return typeErrorf("cannot add %s to a string", typeName(b))
				}
				v.push(left + right)
			default:
				return typeErrorf("cannot add values of type %s", typeName(a))
			}

		case bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			b, a := v.pop(), v.pop()
			left, lok := a.(float64)
			right, rok := b.(float64)
			if !lok || !rok {
				return typeErrorf("arithmetic requires numbers, got %s and %s", typeName(a), typeName(b))
			}
			switch op {
			case bytecode.OpSub:
				v.push(left - right)
			case bytecode.OpMul:
				v.push(left * right)
			case bytecode.OpDiv:
				if right == 0 {
					return runtimeErrorf("division by zero")
				}
				v.push(left / right)
			case bytecode.OpMod:
				if right == 0 {
					return runtimeErrorf("modulo by zero")
				}
				v.push(math.Mod(left, right))
			}

		case bytecode.OpNegate:
			a := v.pop()
			n, ok := a.(float64)
			if !ok {
				return typeErrorf("cannot negate %s", typeName(a))
			}
			v.push(-n)

		case bytecode.OpNot:
			v.push(!Truthy(v.pop()))

		case bytecode.OpEqual:
			b, a := v.pop(), v.pop()
			v.push(valuesEqual(a, b))

		case bytecode.OpNotEqual:
			b, a := v.pop(), v.pop()
			v.push(!valuesEqual(a, b))

		case bytecode.OpLess, bytecode.OpLessEqual, bytecode.OpGreater, bytecode.OpGreaterEqual:
			b, a := v.pop(), v.pop()
			left, lok := a.(float64)
			right, rok := b.(float64)
			if !lok || !rok {
				return typeErrorf("comparison requires numbers, got %s and %s", typeName(a), typeName(b))
			}
			switch op {
			case bytecode.OpLess:
				v.push(left < right)
			case bytecode.OpLessEqual:
				v.push(left <= right)
			case bytecode.OpGreater:
				v.push(left > right)
			case bytecode.OpGreaterEqual:
				v.push(left >= right)
			}

		case bytecode.OpNil:
			v.push(nil)

		case bytecode.OpPop:
			v.pop()

		case bytecode.OpPrint:
			fmt.Fprintln(v.stdout, FormatValue(v.pop()))

		case bytecode.OpJump:
			offset := v.readShort(f)
			f.ip += offset

		case bytecode.OpJumpIfFalse:
			offset := v.readShort(f)
			if !Truthy(v.pop()) {
				f.ip += offset
			}

		case bytecode.OpLoop:
			offset := v.readShort(f)
			f.ip -= offset

		case bytecode.OpDefineGlobal:
			name := f.chunk.Constants[v.readByte(f)].(string)
			v.globals[name] = v.pop()

		case bytecode.OpGetGlobal:
			name := f.chunk.Constants[v.readByte(f)].(string)
			val, ok := v.globals[name]
			if !ok {
				return referenceErrorf("undefined variable '%s'", name)
			}
			v.push(val)

		case bytecode.OpSetGlobal:
			name := f.chunk.Constants[v.readByte(f)].(string)
			if _, ok := v.globals[name]; !ok {
				return referenceErrorf("undefined variable '%s'", name)
			}
			v.globals[name] = v.peek()

		case bytecode.OpGetLocal:
			slot := v.readByte(f)
			v.push(v.stack[f.slotBase+slot])

		case bytecode.OpSetLocal:
			slot := v.readByte(f)
			v.stack[f.slotBase+slot] = v.peek()

		case bytecode.OpCall:
			argc := v.readByte(f)
			callee := v.stack[len(v.stack)-argc-1]
			fn, ok := callee.(*compiler.Function)
			if !ok {
				return typeErrorf("%s is not callable", typeName(callee))
			}
			if fn.Arity != argc {
				return typeErrorf("%s expects %d argument(s), got %d", fn.Name, fn.Arity, argc)
			}
			v.frames = append(v.frames, frame{
				fn:       fn,
				chunk:    fn.Chunk,
				slotBase: len(v.stack) - argc,
			})

		case bytecode.OpReturn:
			result := v.pop()
			done := &v.frames[len(v.frames)-1]
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == 0 {
				return nil
			}
			// Discard the callee and its arguments, leave the result.
			v.stack = v.stack[:done.slotBase-1]
			v.push(result)

		default:
			return errors.New(errors.InternalError, "unknown opcode %d", byte(op))
		}
	}
	return nil
}

func (v *VM) readByte(f *frame) int {
	b := f.chunk.Code[f.ip]
	f.ip++
	return int(b)
}

func (v *VM) readShort(f *frame) int {
	hi, lo := f.chunk.Code[f.ip], f.chunk.Code[f.ip+1]
	f.ip += 2
	return int(hi)<<8 | int(lo)
}

func (v *VM) push(val interface{}) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() interface{} {
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val
}

func (v *VM) peek() interface{} {
	return v.stack[len(v.stack)-1]
}

func valuesEqual(a, b interface{}) bool {
	return a == b
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "a boolean"
	case float64:
		return "a number"
	case string:
		return "a string"
	case *compiler.Function:
		return "a function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func typeErrorf(format string, args ...interface{}) error {
	return errors.New(errors.TypeError, format, args...)
}

func runtimeErrorf(format string, args ...interface{}) error {
	return errors.New(errors.RuntimeError, format, args...)
}

func referenceErrorf(format string, args ...interface{}) error {
	return errors.New(errors.ReferenceError, format, args...)
}
