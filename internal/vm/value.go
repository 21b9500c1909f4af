// internal/vm/value.go
package vm

import (
	"fmt"

	"plum/internal/compiler"
)

// FormatValue renders a runtime value the way print displays it.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", val)
	case string:
		return val
	case *compiler.Function:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Truthy reports how a value behaves in a condition: nil and false are falsy,
// everything else is truthy.
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}
