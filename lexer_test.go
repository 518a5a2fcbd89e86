package matiria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, source string) []Token {
	t.Helper()
	l := NewLexer([]byte(source))
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return toks
}

func TestLexer_Punctuation(t *testing.T) {
	tests := []struct {
		Name     string
		Source   string
		Expected []TokenType
	}{
		{"arrow", "->", []TokenType{TokenArrow, TokenEOF}},
		{"assign", ":=", []TokenType{TokenAssign, TokenEOF}},
		{"colon alone", ":", []TokenType{TokenColon, TokenEOF}},
		{"bang equal", "!=", []TokenType{TokenBangEqual, TokenEOF}},
		{"bang alone", "!", []TokenType{TokenBang, TokenEOF}},
		{"ellipsis", "...", []TokenType{TokenEllipsis, TokenEOF}},
		{"dot alone", ".", []TokenType{TokenDot, TokenEOF}},
		{"and", "&&", []TokenType{TokenAnd, TokenEOF}},
		{"or", "||", []TokenType{TokenOr, TokenEOF}},
		{"pipe alone", "|", []TokenType{TokenPipe, TokenEOF}},
		{"double slash", "//", []TokenType{TokenDoubleSlash, TokenEOF}},
		{"slash alone", "/", []TokenType{TokenSlash, TokenEOF}},
		{"comparisons", "<= >= < >", []TokenType{TokenLessEqual, TokenGreaterEqual, TokenLess, TokenGreater, TokenEOF}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			toks := scanAll(t, test.Source)
			require.Len(t, toks, len(test.Expected))
			for i, want := range test.Expected {
				assert.Equal(t, want, toks[i].Type, "token %d", i)
			}
		})
	}
}

func TestLexer_Keywords(t *testing.T) {
	src := "Any type if else true false fn return while for Int Float Bool String"
	want := []TokenType{
		TokenAny, TokenType_, TokenIf, TokenElse, TokenTrue, TokenFalse,
		TokenFn, TokenReturn, TokenWhile, TokenFor, TokenInt, TokenFloat,
		TokenBool, TokenString, TokenEOF,
	}
	toks := scanAll(t, src)
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w, toks[i].Type)
	}
}

func TestLexer_Identifiers(t *testing.T) {
	toks := scanAll(t, "foo _bar baz123")
	require.Len(t, toks, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, TokenIdentifier, toks[i].Type)
	}
}

func TestLexer_Numbers(t *testing.T) {
	source := []byte("123 4.5 6")
	toks := scanAll(t, string(source))
	require.Len(t, toks, 4)
	assert.Equal(t, TokenIntLiteral, toks[0].Type)
	assert.Equal(t, "123", toks[0].Text(source))
	assert.Equal(t, TokenFloatLiteral, toks[1].Type)
	assert.Equal(t, "4.5", toks[1].Text(source))
	assert.Equal(t, TokenIntLiteral, toks[2].Type)
}

func TestLexer_String(t *testing.T) {
	source := []byte("'hello world'")
	toks := scanAll(t, string(source))
	require.Len(t, toks, 2)
	assert.Equal(t, TokenStringLiteral, toks[0].Type)
	assert.Equal(t, "'hello world'", toks[0].Text(source))
}

func TestLexer_Comment(t *testing.T) {
	source := []byte("# a comment\n123")
	toks := scanAll(t, string(source))
	require.Len(t, toks, 3)
	assert.Equal(t, TokenComment, toks[0].Type)
	assert.Equal(t, TokenIntLiteral, toks[1].Type)
}
