// Package op defines the opcodes shared by the daedalus compiler and virtual
// machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Control
	Nop     Code = 1
	Loop    Code = 2
	If      Code = 3
	IfNull  Code = 4
	Else    Code = 5
	End     Code = 6
	Jump    Code = 7
	Return  Code = 8
	Try     Code = 9
	Catch   Code = 10
	Finally Code = 11
	TryEnd  Code = 12
	Throw   Code = 13
	Call    Code = 14
	CallKw  Code = 15
	CallEx  Code = 16

	// Stack
	Dup  Code = 20
	Pop  Code = 21
	Rot2 Code = 22
	Rot3 Code = 23
	Rot4 Code = 24

	// Local variables
	LocalGet    Code = 30
	LocalSet    Code = 31
	LocalDelete Code = 32

	// Global variables
	GlobalGet    Code = 35
	GlobalSet    Code = 36
	GlobalDelete Code = 37

	// Cell variables
	CellLoad   Code = 40
	CellGet    Code = 41
	CellSet    Code = 42
	CellDelete Code = 43

	// Constants
	Int       Code = 50
	Float     Code = 51
	String    Code = 52
	Bool      Code = 53
	Null      Code = 54
	Undefined Code = 55

	// Comparison
	LessThan           Code = 60
	LessThanOrEqual    Code = 61
	Equal              Code = 62
	NotEqual           Code = 63
	GreaterThanOrEqual Code = 64
	GreaterThan        Code = 65
	StrictEqual        Code = 66
	StrictNotEqual     Code = 67

	// Math and logic
	Positive   Code = 70
	Negative   Code = 71
	BitwiseNot Code = 72
	Not        Code = 73
	And        Code = 74
	Or         Code = 75
	Add        Code = 76
	Subtract   Code = 77
	Multiply   Code = 78
	Divide     Code = 79
	Modulo     Code = 80
	Power      Code = 81
	BitwiseAnd Code = 82
	BitwiseOr  Code = 83
	BitwiseXor Code = 84
	ShiftLeft  Code = 85
	ShiftRight Code = 86

	// Objects
	GetAttr      Code = 90
	SetAttr      Code = 91
	DelAttr      Code = 92
	HasAttr      Code = 93
	GetIndex     Code = 94
	SetIndex     Code = 95
	DelIndex     Code = 96
	GetTypename  Code = 97
	UpdateArray  Code = 98
	UpdateObject Code = 99

	// Aggregates
	CreateObject   Code = 100
	CreateArray    Code = 101
	CreateTuple    Code = 102
	CreateSet      Code = 103
	CreateFunction Code = 104
)

// Category groups related opcodes.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryControl
	CategoryStack
	CategoryLocal
	CategoryGlobal
	CategoryCell
	CategoryConst
	CategoryCompare
	CategoryMath
	CategoryObject
	CategoryAggregate
)

func (c Category) String() string {
	switch c {
	case CategoryControl:
		return "ctrl"
	case CategoryStack:
		return "stack"
	case CategoryLocal:
		return "localvar"
	case CategoryGlobal:
		return "globalvar"
	case CategoryCell:
		return "cellvar"
	case CategoryConst:
		return "const"
	case CategoryCompare:
		return "comp"
	case CategoryMath:
		return "math"
	case CategoryObject:
		return "obj"
	case CategoryAggregate:
		return "create"
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
	Category     Category
}

// Valid reports whether the info describes a defined opcode.
func (i Info) Valid() bool {
	return i.Code != Invalid
}

var infos [256]Info

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
		cat   Category
	}
	ops := []opInfo{
		{Nop, "NOP", 0, CategoryControl},
		{Loop, "LOOP", 0, CategoryControl},
		{If, "IF", 1, CategoryControl},
		{IfNull, "IFNULL", 1, CategoryControl},
		{Else, "ELSE", 1, CategoryControl},
		{End, "END", 0, CategoryControl},
		{Jump, "JUMP", 1, CategoryControl},
		{Return, "RETURN", 1, CategoryControl},
		{Try, "TRY", 0, CategoryControl},
		{Catch, "CATCH", 0, CategoryControl},
		{Finally, "FINALLY", 0, CategoryControl},
		{TryEnd, "TRYEND", 0, CategoryControl},
		{Throw, "THROW", 0, CategoryControl},
		{Call, "CALL", 1, CategoryControl},
		{CallKw, "CALL_KW", 1, CategoryControl},
		{CallEx, "CALL_EX", 0, CategoryControl},

		{Dup, "DUP", 0, CategoryStack},
		{Pop, "POP", 0, CategoryStack},
		{Rot2, "ROT2", 0, CategoryStack},
		{Rot3, "ROT3", 0, CategoryStack},
		{Rot4, "ROT4", 0, CategoryStack},

		{LocalGet, "LOCAL_GET", 1, CategoryLocal},
		{LocalSet, "LOCAL_SET", 1, CategoryLocal},
		{LocalDelete, "LOCAL_DELETE", 1, CategoryLocal},

		{GlobalGet, "GLOBAL_GET", 1, CategoryGlobal},
		{GlobalSet, "GLOBAL_SET", 1, CategoryGlobal},
		{GlobalDelete, "GLOBAL_DELETE", 1, CategoryGlobal},

		{CellLoad, "CELL_LOAD", 1, CategoryCell},
		{CellGet, "CELL_GET", 1, CategoryCell},
		{CellSet, "CELL_SET", 1, CategoryCell},
		{CellDelete, "CELL_DELETE", 1, CategoryCell},

		{Int, "INT", 1, CategoryConst},
		{Float, "FLOAT", 1, CategoryConst},
		{String, "STRING", 1, CategoryConst},
		{Bool, "BOOL", 1, CategoryConst},
		{Null, "NULL", 0, CategoryConst},
		{Undefined, "UNDEFINED", 0, CategoryConst},

		{LessThan, "LT", 0, CategoryCompare},
		{LessThanOrEqual, "LE", 0, CategoryCompare},
		{Equal, "EQ", 0, CategoryCompare},
		{NotEqual, "NE", 0, CategoryCompare},
		{GreaterThanOrEqual, "GE", 0, CategoryCompare},
		{GreaterThan, "GT", 0, CategoryCompare},
		{StrictEqual, "TEQ", 0, CategoryCompare},
		{StrictNotEqual, "TNE", 0, CategoryCompare},

		{Positive, "POSITIVE", 0, CategoryMath},
		{Negative, "NEGATIVE", 0, CategoryMath},
		{BitwiseNot, "BITWISE_NOT", 0, CategoryMath},
		{Not, "NOT", 0, CategoryMath},
		{And, "AND", 0, CategoryMath},
		{Or, "OR", 0, CategoryMath},
		{Add, "ADD", 0, CategoryMath},
		{Subtract, "SUB", 0, CategoryMath},
		{Multiply, "MUL", 0, CategoryMath},
		{Divide, "DIV", 0, CategoryMath},
		{Modulo, "REM", 0, CategoryMath},
		{Power, "EXP", 0, CategoryMath},
		{BitwiseAnd, "BITWISE_AND", 0, CategoryMath},
		{BitwiseOr, "BITWISE_OR", 0, CategoryMath},
		{BitwiseXor, "BITWISE_XOR", 0, CategoryMath},
		{ShiftLeft, "SHIFTL", 0, CategoryMath},
		{ShiftRight, "SHIFTR", 0, CategoryMath},

		{GetAttr, "GET_ATTR", 1, CategoryObject},
		{SetAttr, "SET_ATTR", 1, CategoryObject},
		{DelAttr, "DEL_ATTR", 1, CategoryObject},
		{HasAttr, "HAS_ATTR", 0, CategoryObject},
		{GetIndex, "GET_INDEX", 0, CategoryObject},
		{SetIndex, "SET_INDEX", 0, CategoryObject},
		{DelIndex, "DEL_INDEX", 0, CategoryObject},
		{GetTypename, "GET_TYPENAME", 0, CategoryObject},
		{UpdateArray, "UPDATE_ARRAY", 0, CategoryObject},
		{UpdateObject, "UPDATE_OBJECT", 0, CategoryObject},

		{CreateObject, "CREATE_OBJECT", 1, CategoryAggregate},
		{CreateArray, "CREATE_ARRAY", 1, CategoryAggregate},
		{CreateTuple, "CREATE_TUPLE", 1, CategoryAggregate},
		{CreateSet, "CREATE_SET", 1, CategoryAggregate},
		{CreateFunction, "CREATE_FUNCTION", 1, CategoryAggregate},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
			Category:     o.cat,
		}
	}
}

// GetInfo returns information about the given opcode. The zero Info is
// returned for undefined opcodes.
func GetInfo(op Code) Info {
	return infos[op]
}

// String returns the opcode name.
func (c Code) String() string {
	if info := infos[c]; info.Valid() {
		return info.Name
	}
	return "INVALID"
}

// IsJump reports whether the opcode's immediate is a relative jump delta
// that the compiler must resolve.
func (c Code) IsJump() bool {
	switch c {
	case If, IfNull, Else, Jump:
		return true
	}
	return false
}

// Codes returns every defined opcode in ascending order.
func Codes() []Code {
	var codes []Code
	for i := range infos {
		if infos[i].Valid() {
			codes = append(codes, Code(i))
		}
	}
	return codes
}
