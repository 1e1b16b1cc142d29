//go:build !lean

package treesitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestParse_SExpression(t *testing.T) {
	reg := NewRegistry()
	res := reg.Parse([]byte("fn main() {}"), LangRust)
	defer res.Close()

	require.True(t, res.OK())
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.SExpr, "(source_file"))
	assert.Contains(t, res.SExpr, "(function_item")
	assert.Contains(t, res.SExpr, "(identifier)")
	assert.False(t, res.HasError())
}

func TestParse_EachGrammar(t *testing.T) {
	reg := NewRegistry(WithExtended())
	tests := []struct {
		id   int
		src  string
		root string
	}{
		{LangRust, "let x = 1;", "(source_file"},
		{LangC, "int x;", "(translation_unit"},
		{LangPython, "x = 1", "(module"},
		{LangOdin, "package main", "("},
		{LangJSON, "[1]", "(document"},
	}
	for _, tt := range tests {
		res := reg.Parse([]byte(tt.src), tt.id)
		require.True(t, res.OK(), "id %d: %s", tt.id, res.SExpr)
		assert.True(t, strings.HasPrefix(res.SExpr, tt.root), "id %d: %s", tt.id, res.SExpr)
		res.Close()
	}
}

func TestParse_SyntaxErrorStillProducesTree(t *testing.T) {
	reg := NewRegistry()
	res := reg.Parse([]byte("fn (x: { let = ;"), LangRust)
	defer res.Close()

	require.True(t, res.OK())
	assert.True(t, res.HasError())
	assert.Contains(t, res.SExpr, "ERROR")
}

func TestParse_Unsupported(t *testing.T) {
	res := NewRegistry().Parse([]byte("fn main() {}"), 999)
	defer res.Close()

	assert.False(t, res.OK())
	assert.Nil(t, res.Tree)
	assert.Equal(t, PlaceholderUnsupported, res.SExpr)
	assert.True(t, errors.Is(res.Err, ErrUnsupportedLanguage))
	assert.False(t, res.HasError())
}

func TestParse_InvalidInputParsesEmpty(t *testing.T) {
	reg := NewRegistry()
	empty := reg.Parse([]byte{}, LangRust)
	defer empty.Close()

	for _, src := range [][]byte{nil, {0xff, 0xfe, 0xfd}} {
		res := reg.Parse(src, LangRust)
		require.True(t, res.OK())
		assert.NoError(t, res.Err)
		assert.Equal(t, empty.SExpr, res.SExpr)
		res.Close()
	}
	assert.Equal(t, "(source_file)", empty.SExpr)
}

func TestParseResult_Close(t *testing.T) {
	res := NewRegistry().Parse([]byte("x = 1"), LangPython)
	require.NotNil(t, res.Tree)
	res.Close()
	assert.Nil(t, res.Tree)
	res.Close()

	var nilResult *ParseResult
	assert.NotPanics(t, nilResult.Close)
	assert.False(t, nilResult.OK())
}
