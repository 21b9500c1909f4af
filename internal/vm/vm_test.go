package vm

import (
	"strings"
	"testing"

	"plum/internal/compiler"
	"plum/internal/errors"
	"plum/internal/lexer"
)

// runSource compiles and executes input, returning everything printed.
func runSource(t *testing.T, input string) string {
	t.Helper()
	prog, err := compiler.Compile(lexer.NewStringSource(input), "test", 0)
	if err != nil {
		t.Fatalf("compiling failed: %v", err)
	}

	var out strings.Builder
	if err := NewVM(&out).Interpret(prog.Chunk); err != nil {
		t.Fatalf("executing failed: %v", err)
	}
	return out.String()
}

// runSourceErr compiles and executes input that is expected to fail at
// runtime.
func runSourceErr(t *testing.T, input string) error {
	t.Helper()
	prog, err := compiler.Compile(lexer.NewStringSource(input), "test", 0)
	if err != nil {
		t.Fatalf("compiling failed: %v", err)
	}

	var out strings.Builder
	err = NewVM(&out).Interpret(prog.Chunk)
	if err == nil {
		t.Fatalf("executing %q succeeded, want a runtime error", input)
	}
	return err
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"arithmetic", "print(1 + 2 * 3)\n", "7\n"},
		{"division", "print(7 / 2)\n", "3.5\n"},
		{"modulo", "print(7 % 3)\n", "1\n"},
		{"negation", "print(-(1 + 2))\n", "-3\n"},
		{"underscored literal", "print(1_000_000)\n", "1e+06\n"},
		{"string concat", `print("foo" + "bar")` + "\n", "foobar\n"},
		{"string escapes", `print("a\tb")` + "\n", "a\tb\n"},
		{"booleans", "print(1 < 2)\nprint(2 < 1)\n", "true\nfalse\n"},
		{"nil", "print(nil)\n", "nil\n"},
		{"not", "print(!nil)\nprint(!1)\n", "true\nfalse\n"},
		{"equality", `print(1 == 1)` + "\n" + `print("a" == "b")` + "\n", "true\nfalse\n"},

		{"globals", "let x = 10\nlet y = x * 2\nprint(x + y)\n", "30\n"},
		{"reassignment", "let x = 1\nx = x + 1\nprint(x)\n", "2\n"},

		{"if taken", "if 1 < 2 {\n  print(1)\n}\n", "1\n"},
		{"if not taken", "if 2 < 1 {\n  print(1)\n}\nprint(2)\n", "2\n"},
		{"else branch", "if false {\n  print(1)\n} else {\n  print(2)\n}\n", "2\n"},
		{"else if chain", "let x = 2\nif x == 1 {\n  print(1)\n} else if x == 2 {\n  print(2)\n} else {\n  print(3)\n}\n", "2\n"},

		{"while", "let i = 0\nwhile i < 3 {\n  print(i)\n  i = i + 1\n}\n", "0\n1\n2\n"},
		{"break", "let i = 0\nwhile true {\n  if i == 2 {\n    break\n  }\n  print(i)\n  i = i + 1\n}\nprint(9)\n", "0\n1\n9\n"},

		{"function call", "fn add(a, b) {\n  return a + b\n}\nprint(add(1, 2))\n", "3\n"},
		{"implicit return", "fn noop() {\n}\nprint(noop())\n", "nil\n"},
		{"recursion", "fn fib(n) {\n  if n < 2 {\n    return n\n  }\n  return fib(n - 1) + fib(n - 2)\n}\nprint(fib(10))\n", "55\n"},
		{"locals shadow globals", "let x = 1\nfn f() {\n  let x = 2\n  return x\n}\nprint(f())\nprint(x)\n", "2\n1\n"},
		{"locals in branches", "fn f(flag) {\n  let a = 0\n  if flag {\n    let b = 10\n    a = b\n  }\n  return a\n}\nprint(f(true))\nprint(f(false))\n", "10\n0\n"},
		{"function uses globals", "let base = 100\nfn bump(n) {\n  return base + n\n}\nprint(bump(5))\n", "105\n"},

		{"and short-circuits", "fn boom() {\n  print(999)\n  return true\n}\nprint(false && boom())\n", "false\n"},
		{"or short-circuits", "fn boom() {\n  print(999)\n  return true\n}\nprint(1 || boom())\n", "true\n"},
		{"and yields right value", "print(true && 5)\n", "5\n"},
		{"or falls through", "print(false || 7)\n", "7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runSource(t, tt.input)
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  errors.Kind
	}{
		{"undefined variable", "print(missing)\n", errors.ReferenceError},
		{"assign to undefined", "x = 1\n", errors.ReferenceError},
		{"division by zero", "let x = 0\nprint(1 / x)\n", errors.RuntimeError},
		{"modulo by zero", "let x = 0\nprint(1 % x)\n", errors.RuntimeError},
		{"add number to string", `print("a" + 1)` + "\n", errors.TypeError},
		{"negate a string", `print(-"a")` + "\n", errors.TypeError},
		{"compare mixed types", `print(1 < "a")` + "\n", errors.TypeError},
		{"call a number", "let x = 1\nx(2)\n", errors.TypeError},
		{"wrong arity", "fn f(a) {\n  return a\n}\nf(1, 2)\n", errors.TypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runSourceErr(t, tt.input)
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("got %T (%v), want *errors.Error", err, err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tt.kind)
			}
		})
	}
}

func TestGlobalsPersistAcrossInterpretCalls(t *testing.T) {
	var out strings.Builder
	machine := NewVM(&out)

	first, err := compiler.Compile(lexer.NewStringSource("let x = 41\n"), "test", 0)
	if err != nil {
		t.Fatalf("compiling first chunk failed: %v", err)
	}
	if err := machine.Interpret(first.Chunk); err != nil {
		t.Fatalf("first chunk failed: %v", err)
	}

	second, err := compiler.Compile(lexer.NewStringSource("print(x + 1)\n"), "test", 0)
	if err != nil {
		t.Fatalf("compiling second chunk failed: %v", err)
	}
	if err := machine.Interpret(second.Chunk); err != nil {
		t.Fatalf("second chunk failed: %v", err)
	}

	if out.String() != "42\n" {
		t.Errorf("output = %q, want 42", out.String())
	}

	if val, ok := machine.Global("x"); !ok || val != 41.0 {
		t.Errorf("Global(x) = (%v, %v), want (41, true)", val, ok)
	}
}

func TestInterruptStopsExecution(t *testing.T) {
	prog, err := compiler.Compile(lexer.NewStringSource("while true {\n}\n"), "test", 0)
	if err != nil {
		t.Fatalf("compiling failed: %v", err)
	}

	var out strings.Builder
	machine := NewVM(&out)
	machine.SetInterrupt(func() bool { return true })

	if err := machine.Interpret(prog.Chunk); err != ErrInterrupted {
		t.Errorf("Interpret = %v, want ErrInterrupted", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "nil"},
		{true, "true"},
		{false, "false"},
		{3.0, "3"},
		{3.5, "3.5"},
		{"text", "text"},
		{&compiler.Function{Name: "f"}, "<fn f>"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
