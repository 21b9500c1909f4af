package bytecode

type OpCode byte

const (
	OpConstant OpCode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNegate
	OpNot
	OpEqual
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpNil
	OpPop
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpCall
	OpReturn
)

var opNames = map[OpCode]string{
	OpConstant:     "CONSTANT",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpDiv:          "DIV",
	OpMod:          "MOD",
	OpNegate:       "NEGATE",
	OpNot:          "NOT",
	OpEqual:        "EQUAL",
	OpNotEqual:     "NOT_EQUAL",
	OpGreater:      "GREATER",
	OpLess:         "LESS",
	OpGreaterEqual: "GREATER_EQUAL",
	OpLessEqual:    "LESS_EQUAL",
	OpNil:          "NIL",
	OpPop:          "POP",
	OpPrint:        "PRINT",
	OpJump:         "JUMP",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpLoop:         "LOOP",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetGlobal:    "GET_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpCall:         "CALL",
	OpReturn:       "RETURN",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
