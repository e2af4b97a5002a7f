package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUT_EN_07_01_ParseOpCode_WithKnownName_ReturnsMatchingCode tests that every published opname round-trips through ParseOpCode and String
func TestUT_EN_07_01_ParseOpCode_WithKnownName_ReturnsMatchingCode(t *testing.T) {
	names := []string{
		"read", "random_read", "create", "append", "write", "random_write",
		"truncate", "softlink", "hardlink", "delete", "rename", "readdir",
		"random_discard", "remount",
	}

	for _, name := range names {
		op, ok := ParseOpCode(name)
		assert.True(t, ok, "expected %q to parse", name)
		assert.Equal(t, name, op.String())
	}
}

// TestUT_EN_07_02_ParseOpCode_WithUnknownName_ReturnsFalse tests that an unrecognized opname is rejected rather than silently mapped to a zero value
func TestUT_EN_07_02_ParseOpCode_WithUnknownName_ReturnsFalse(t *testing.T) {
	_, ok := ParseOpCode("not_a_real_operation")

	assert.False(t, ok)
}

// TestUT_EN_07_03_String_WithUnknownCode_ReturnsUnknown tests the String fallback for a code outside the published set
func TestUT_EN_07_03_String_WithUnknownCode_ReturnsUnknown(t *testing.T) {
	assert.Equal(t, "unknown", OpCode(-1).String())
}
