package repl

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"plum/internal/lexer"
	"plum/internal/vm"
)

func runSession(t *testing.T, script *scriptedSource) string {
	t.Helper()
	color.NoColor = true

	var out strings.Builder
	machine := vm.NewVM(&out)
	if err := New(script, machine, &out, 0).Run(); err != nil {
		t.Fatalf("session failed: %v", err)
	}
	return out.String()
}

func markers(output string) int {
	return strings.Count(output, restartMarker+"\n")
}

func TestSessionRunsStatements(t *testing.T) {
	script := &scriptedSource{events: lines(
		"let x = 1",
		"print(x + 1)",
	)}
	out := runSession(t, script)

	if !strings.Contains(out, "2\n") {
		t.Errorf("output %q does not contain the printed result", out)
	}
	// Two statements plus the final iteration that sees end of input.
	if got := markers(out); got != 3 {
		t.Errorf("got %d restart markers, want 3", got)
	}
}

// A complete single-line statement must compile from the one entered line,
// without prompting for a continuation.
func TestSessionDoesNotOverPrompt(t *testing.T) {
	script := &scriptedSource{events: lines("let x = 1", "print(x)")}
	runSession(t, script)

	// One prompt per entered line, one more for the end-of-input iteration.
	want := []string{" 1| ", " 1| ", " 1| "}
	if len(script.prompts) != len(want) {
		t.Fatalf("prompts = %q, want %q", script.prompts, want)
	}
	for i, prompt := range script.prompts {
		if prompt != want[i] {
			t.Errorf("prompt %d = %q, want %q", i, prompt, want[i])
		}
	}
}

func TestSessionPromptsForContinuationLines(t *testing.T) {
	script := &scriptedSource{events: lines(
		"fn double(n) {",
		"return n * 2",
		"}",
		"print(double(21))",
	)}
	out := runSession(t, script)

	if !strings.Contains(out, "42\n") {
		t.Errorf("output %q does not contain the printed result", out)
	}
	want := []string{" 1| ", " 2| ", " 3| ", " 1| ", " 1| "}
	if len(script.prompts) != len(want) {
		t.Fatalf("prompts = %q, want %q", script.prompts, want)
	}
	for i, prompt := range script.prompts {
		if prompt != want[i] {
			t.Errorf("prompt %d = %q, want %q", i, prompt, want[i])
		}
	}
}

func TestSessionSurvivesCompileErrors(t *testing.T) {
	script := &scriptedSource{events: lines(
		"x +",
		"print(40 + 2)",
	)}
	out := runSession(t, script)

	if !strings.Contains(out, "SyntaxError") {
		t.Errorf("output %q does not report the syntax error", out)
	}
	if !strings.Contains(out, "42\n") {
		t.Errorf("output %q shows the session did not continue after the error", out)
	}
}

func TestSessionSurvivesRuntimeErrors(t *testing.T) {
	script := &scriptedSource{events: lines(
		"print(missing)",
		"print(1)",
	)}
	out := runSession(t, script)

	if !strings.Contains(out, "ReferenceError") {
		t.Errorf("output %q does not report the runtime error", out)
	}
	if !strings.Contains(out, "1\n") {
		t.Errorf("output %q shows the session did not continue after the error", out)
	}
}

func TestSessionStatePersistsAcrossIterations(t *testing.T) {
	script := &scriptedSource{events: lines(
		"let count = 0",
		"count = count + 1",
		"count = count + 1",
		"print(count)",
	)}
	out := runSession(t, script)

	if !strings.Contains(out, "2\n") {
		t.Errorf("output %q: definitions did not persist across iterations", out)
	}
}

func TestSessionEndsOnEmptyLine(t *testing.T) {
	script := &scriptedSource{events: lines(
		"print(1)",
		"",
	)}
	out := runSession(t, script)

	if got := markers(out); got != 2 {
		t.Errorf("got %d restart markers, want 2 (statement, then end)", got)
	}
}

func TestSessionInterruptedWhileEnteringLine(t *testing.T) {
	script := &scriptedSource{events: []lineEvent{
		{err: lexer.ErrInterrupted},
		{text: "print(7)"},
	}}
	out := runSession(t, script)

	if !strings.Contains(out, "interrupted") {
		t.Errorf("output %q does not acknowledge the interrupt", out)
	}
	if !strings.Contains(out, "7\n") {
		t.Errorf("output %q shows the session did not continue after the interrupt", out)
	}
}

func TestSessionInterruptedDuringExecution(t *testing.T) {
	script := &scriptedSource{
		events: lines(
			"while true {",
			"}",
		),
		interrupt: true,
	}
	out := runSession(t, script)

	if !strings.Contains(out, "interrupted") {
		t.Errorf("output %q does not acknowledge the interrupt", out)
	}
	// The loop recovered and reached the end-of-input iteration.
	if got := markers(out); got != 2 {
		t.Errorf("got %d restart markers, want 2", got)
	}
}
