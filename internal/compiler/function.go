// internal/compiler/function.go
package compiler

import "plum/internal/bytecode"

// Function is a compiled function value. The VM calls it by pushing a frame
// over its chunk.
type Function struct {
	Name  string
	Arity int
	Chunk *bytecode.Chunk
}

func (f *Function) String() string {
	return "<fn " + f.Name + ">"
}
