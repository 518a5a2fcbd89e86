package matiria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_ResolveLocal(t *testing.T) {
	s := NewScope(nil)
	s.Add("x", &Symbol{Type: TypeInt, Index: 0})
	sym, ok := s.ResolveLocal("x")
	require.True(t, ok)
	assert.Equal(t, TypeInt, sym.Type)

	_, ok = s.ResolveLocal("y")
	assert.False(t, ok)
}

func TestScope_ResolveUpvalue_DirectParent(t *testing.T) {
	outer := NewScope(nil)
	outer.Add("x", &Symbol{Type: TypeInt, Index: 2})

	inner := NewScope(outer)
	inner.IsClosure = true

	idx, ok := inner.ResolveUpvalue("x")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	require.Len(t, inner.Upvalues, 1)
	assert.True(t, inner.Upvalues[0].Local)
	assert.Equal(t, 2, inner.Upvalues[0].Index)
}

func TestScope_ResolveUpvalue_Transitive(t *testing.T) {
	grandparent := NewScope(nil)
	grandparent.Add("x", &Symbol{Type: TypeInt, Index: 5})

	parent := NewScope(grandparent)
	parent.IsClosure = true

	inner := NewScope(parent)
	inner.IsClosure = true

	idx, ok := inner.ResolveUpvalue("x")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.False(t, inner.Upvalues[0].Local, "captured through another closure, not a direct local")

	// the intermediate closure must have registered its own upvalue too
	require.Len(t, parent.Upvalues, 1)
	assert.True(t, parent.Upvalues[0].Local)
}

func TestScope_ResolveUpvalue_Dedup(t *testing.T) {
	outer := NewScope(nil)
	outer.Add("x", &Symbol{Type: TypeInt, Index: 0})
	inner := NewScope(outer)
	inner.IsClosure = true

	idx1, _ := inner.ResolveUpvalue("x")
	idx2, _ := inner.ResolveUpvalue("x")
	assert.Equal(t, idx1, idx2, "capturing the same identifier twice reuses the earlier slot")
	assert.Len(t, inner.Upvalues, 1)
}

func TestScope_ResolveUpvalue_Unbound(t *testing.T) {
	outer := NewScope(nil)
	inner := NewScope(outer)
	inner.IsClosure = true
	_, ok := inner.ResolveUpvalue("nope")
	assert.False(t, ok)
}
