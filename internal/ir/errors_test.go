package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileError_Error(t *testing.T) {
	err := NewUnknownLabelError("a").WithNode(7, "select")
	assert.Equal(t, `UNKNOWN_LABEL: label "a" is not bound (node=7, kind=select) [label=a]`, err.Error())

	plain := Errorf(ErrCodeInvalidPlan, "vertex %d has no input", 3)
	assert.Equal(t, "INVALID_PLAN: vertex 3 has no input", plain.Error())
}

func TestIsCode_Wrapped(t *testing.T) {
	base := NewIllegalArgumentError("coin probability %v outside [0,1]", 1.5)
	wrapped := fmt.Errorf("compile: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeIllegalArgument))
	assert.False(t, IsCode(wrapped, ErrCodeUnknownLabel))
	assert.False(t, IsCode(nil, ErrCodeIllegalArgument))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}

func TestWithNode_DoesNotMutate(t *testing.T) {
	base := NewUnsupportedNestingError("group", "where")
	_ = base.WithNode(4, "group")
	assert.Equal(t, 0, base.NodeID)
}

func TestAttachNode(t *testing.T) {
	err := AttachNode(NewUnknownLabelError("x"), 3, "select")
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.NodeID)

	again := AttachNode(err, 9, "has")
	assert.ErrorAs(t, again, &ce)
	assert.Equal(t, 3, ce.NodeID)

	plain := fmt.Errorf("io")
	assert.Same(t, plain, AttachNode(plain, 1, "V"))
}
