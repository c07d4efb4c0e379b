package value

import "fmt"

// Opcode identifies a single bytecode instruction (spec.md §4.4). Most
// opcodes come in a short/long pair: the short form takes an 8-bit operand,
// the long form the same operand encoded big-endian on 16 bits, selected by
// the compiler depending on whether the index fits in a byte.
type Opcode byte

//nolint:revive
const (
	OpConstant     Opcode = iota // const idx (u8)   -> push constant
	OpConstantLong               // const idx (u16)  -> push constant
	OpByteNum                    // u8               -> push as number
	OpNil                        // -                -> push nil
	OpTrue                       // -                -> push true
	OpFalse                      // -                -> push false

	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpShiftLeft
	OpShiftRight
	OpBitAnd
	OpBitOr
	OpBitXor

	OpNegate
	OpInvert
	OpNot

	OpDefineGlobal
	OpDefineGlobalLong
	OpGetGlobal
	OpGetGlobalLong
	OpSetGlobal
	OpSetGlobalLong

	OpGetLocal
	OpSetLocal

	OpGetUpvalue
	OpSetUpvalue

	OpGetProperty
	OpGetPropertyLong
	OpSetProperty
	OpSetPropertyLong

	OpGetSuper
	OpGetSuperLong
	OpSuperInvoke
	OpSuperInvokeLong

	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpBackwards

	OpCall
	OpInvoke
	OpInvokeLong

	OpClosure
	OpClosureLong
	OpCloseUpvalue

	OpReturn
	OpReturnNil

	OpSubscript
	OpSubscriptAssign
	OpNewArray

	OpClass
	OpClassLong
	OpInherit
	OpMethod
	OpMethodLong

	OpPrint
	OpPop

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpConstant:         "OP_CONSTANT",
	OpConstantLong:     "OP_CONSTANT_LONG",
	OpByteNum:          "OP_BYTE_NUM",
	OpNil:              "OP_NIL",
	OpTrue:             "OP_TRUE",
	OpFalse:            "OP_FALSE",
	OpEqual:            "OP_EQUAL",
	OpNotEqual:         "OP_NOT_EQUAL",
	OpLess:             "OP_LESS",
	OpLessEqual:        "OP_LESS_EQUAL",
	OpGreater:          "OP_GREATER",
	OpGreaterEqual:     "OP_GREATER_EQUAL",
	OpAdd:              "OP_ADD",
	OpSubtract:         "OP_SUBTRACT",
	OpMultiply:         "OP_MULTIPLY",
	OpDivide:           "OP_DIVIDE",
	OpShiftLeft:        "OP_SHIFT_LEFT",
	OpShiftRight:       "OP_SHIFT_RIGHT",
	OpBitAnd:           "OP_BIT_AND",
	OpBitOr:            "OP_BIT_OR",
	OpBitXor:           "OP_BIT_XOR",
	OpNegate:           "OP_NEGATE",
	OpInvert:           "OP_INVERT",
	OpNot:              "OP_NOT",
	OpDefineGlobal:     "OP_DEFINE_GLOBAL",
	OpDefineGlobalLong: "OP_DEFINE_GLOBAL_LONG",
	OpGetGlobal:        "OP_GET_GLOBAL",
	OpGetGlobalLong:    "OP_GET_GLOBAL_LONG",
	OpSetGlobal:        "OP_SET_GLOBAL",
	OpSetGlobalLong:    "OP_SET_GLOBAL_LONG",
	OpGetLocal:         "OP_GET_LOCAL",
	OpSetLocal:         "OP_SET_LOCAL",
	OpGetUpvalue:       "OP_GET_UPVALUE",
	OpSetUpvalue:       "OP_SET_UPVALUE",
	OpGetProperty:      "OP_GET_PROPERTY",
	OpGetPropertyLong:  "OP_GET_PROPERTY_LONG",
	OpSetProperty:      "OP_SET_PROPERTY",
	OpSetPropertyLong:  "OP_SET_PROPERTY_LONG",
	OpGetSuper:         "OP_GET_SUPER",
	OpGetSuperLong:     "OP_GET_SUPER_LONG",
	OpSuperInvoke:      "OP_SUPER_INVOKE",
	OpSuperInvokeLong:  "OP_SUPER_INVOKE_LONG",
	OpJump:             "OP_JUMP",
	OpJumpIfFalse:      "OP_JUMP_IF_FALSE",
	OpJumpIfTrue:       "OP_JUMP_IF_TRUE",
	OpJumpBackwards:    "OP_JUMP_BACKWARDS",
	OpCall:             "OP_CALL",
	OpInvoke:           "OP_INVOKE",
	OpInvokeLong:       "OP_INVOKE_LONG",
	OpClosure:          "OP_CLOSURE",
	OpClosureLong:      "OP_CLOSURE_LONG",
	OpCloseUpvalue:     "OP_CLOSE_UPVALUE",
	OpReturn:           "OP_RETURN",
	OpReturnNil:        "OP_RETURN_NIL",
	OpSubscript:        "OP_SUBSCRIPT",
	OpSubscriptAssign:  "OP_SUBSCRIPT_ASSIGN",
	OpNewArray:         "OP_NEW_ARRAY",
	OpClass:            "OP_CLASS",
	OpClassLong:        "OP_CLASS_LONG",
	OpInherit:          "OP_INHERIT",
	OpMethod:           "OP_METHOD",
	OpMethodLong:       "OP_METHOD_LONG",
	OpPrint:            "OP_PRINT",
	OpPop:              "OP_POP",
}

func (op Opcode) String() string {
	if op < opcodeCount {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", byte(op))
}
