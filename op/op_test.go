package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(CreateFunction)
	require.Equal(t, "CREATE_FUNCTION", info.Name)
	require.Equal(t, 1, info.OperandCount)
	require.Equal(t, CreateFunction, info.Code)
	require.Equal(t, CategoryAggregate, info.Category)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Nop, "NOP", 0},
		{Loop, "LOOP", 0},
		{If, "IF", 1},
		{IfNull, "IFNULL", 1},
		{Else, "ELSE", 1},
		{End, "END", 0},
		{Jump, "JUMP", 1},
		{Return, "RETURN", 1},
		{Try, "TRY", 0},
		{TryEnd, "TRYEND", 0},
		{Call, "CALL", 1},
		{CallKw, "CALL_KW", 1},
		{CallEx, "CALL_EX", 0},
		{Rot4, "ROT4", 0},
		{LocalGet, "LOCAL_GET", 1},
		{GlobalDelete, "GLOBAL_DELETE", 1},
		{CellLoad, "CELL_LOAD", 1},
		{Int, "INT", 1},
		{Float, "FLOAT", 1},
		{String, "STRING", 1},
		{Undefined, "UNDEFINED", 0},
		{StrictNotEqual, "TNE", 0},
		{ShiftRight, "SHIFTR", 0},
		{HasAttr, "HAS_ATTR", 0},
		{UpdateObject, "UPDATE_OBJECT", 0},
		{CreateTuple, "CREATE_TUPLE", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
			require.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestTableIsExhaustive(t *testing.T) {
	codes := Codes()
	require.Len(t, codes, 77)
	seen := map[string]bool{}
	for _, c := range codes {
		info := GetInfo(c)
		require.True(t, info.Valid())
		require.NotEqual(t, CategoryNone, info.Category, info.Name)
		require.LessOrEqual(t, info.OperandCount, 1, info.Name)
		require.False(t, seen[info.Name], "duplicate name %s", info.Name)
		seen[info.Name] = true
	}
}

func TestInvalidOpcode(t *testing.T) {
	require.False(t, GetInfo(Code(250)).Valid())
	require.Equal(t, "INVALID", Code(250).String())
}

func TestIsJump(t *testing.T) {
	for _, c := range []Code{If, IfNull, Else, Jump} {
		require.True(t, c.IsJump(), c.String())
	}
	for _, c := range []Code{End, Loop, Try, Int, Return} {
		require.False(t, c.IsJump(), c.String())
	}
}
