package matiria

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterner_StructuralSharing(t *testing.T) {
	in := NewInterner(nil)

	a1 := in.InternArray(TypeInt)
	a2 := in.InternArray(TypeInt)
	assert.Same(t, a1, a2, "two arrays of Int must be the identical pointer")

	m1 := in.InternMap(TypeString, TypeInt)
	m2 := in.InternMap(TypeString, TypeInt)
	assert.Same(t, m1, m2)

	f1 := in.InternFunction(TypeInt, []*Type{TypeInt, TypeFloat})
	f2 := in.InternFunction(TypeInt, []*Type{TypeInt, TypeFloat})
	assert.Same(t, f1, f2)

	nested1 := in.InternArray(in.InternArray(TypeInt))
	nested2 := in.InternArray(in.InternArray(TypeInt))
	assert.Same(t, nested1, nested2)
}

func TestTypeMatch(t *testing.T) {
	in := NewInterner(nil)
	assert.True(t, TypeMatch(TypeInt, TypeInt))
	assert.False(t, TypeMatch(TypeInt, TypeFloat))
	assert.True(t, TypeMatch(TypeAny, TypeInt), "Any is universal")
	assert.True(t, TypeMatch(TypeInt, TypeAny), "Any is universal on either side")
	assert.False(t, TypeMatch(TypeInvalid, TypeInt), "Invalid is the absorbing bottom")

	arr := in.InternArray(TypeInt)
	assert.True(t, TypeMatch(arr, in.InternArray(TypeInt)))
	assert.False(t, TypeMatch(arr, in.InternArray(TypeFloat)))
}

func TestCheckAssignment_UnionVariant(t *testing.T) {
	in := NewInterner(nil)
	union := in.RegisterUnion(Token{Type: TokenIdentifier}, "Shape", []*Type{TypeInt, TypeString})
	assert.True(t, CheckAssignment(union, TypeInt))
	assert.True(t, CheckAssignment(union, TypeString))
	assert.False(t, CheckAssignment(union, TypeFloat))
	assert.True(t, CheckAssignment(TypeAny, TypeFloat), "Any accepts anything")
}

// OperatorResultType preserves the original implementation's bug: it
// picks the higher-ranked operand's type, but still rejects mixed
// Int/Float pairs outright because the operands must match by
// identity first (SPEC_FULL.md section 3).
func TestOperatorResultType_NoImplicitPromotion(t *testing.T) {
	assert.Equal(t, TypeInt, OperatorResultType(TokenPlus, TypeInt, TypeInt))
	assert.Equal(t, TypeInvalid, OperatorResultType(TokenPlus, TypeInt, TypeFloat),
		"mixed Int/Float must be rejected, not promoted")
	assert.Equal(t, TypeFloat, OperatorResultType(TokenLess, TypeFloat, TypeFloat))
}
